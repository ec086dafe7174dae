// Package types defines the public domain types for the lakeline pipeline assembler.
package types

// StageKind identifies which role a stage plays in the ingestion flow.
type StageKind string

// StageKind values enumerate the concrete stage roles.
const (
	StageCapture        StageKind = "capture"
	StageLightTransform StageKind = "light-transform"
	StageHeavyTransform StageKind = "heavy-transform"
)

// StageStatus records the registry lifecycle state carried in a Descriptor.
type StageStatus string

// StageStatus values enumerate descriptor lifecycle states.
const (
	StageActive     StageStatus = "ACTIVE"
	StageDeprecated StageStatus = "DEPRECATED"
)

// Capability identifies a class of resource access granted to a principal.
type Capability string

// Capability values enumerate the grantable resource capabilities.
const (
	StorageReadWrite Capability = "storage-read-write"
	KeyOps           Capability = "key-ops"
	QueueOps         Capability = "queue-ops"
	ParamRead        Capability = "param-read"
)

// TargetRef is an opaque reference to a downstream invocation target
// (a queue, a function) that rules bind to.
type TargetRef struct {
	ID       string `json:"id" yaml:"id"`
	Resource string `json:"resource" yaml:"resource"`
}

// RouterRef is an opaque handle to a provisioned routing function.
type RouterRef struct {
	Name     string `json:"name" yaml:"name"`
	Resource string `json:"resource" yaml:"resource"`
}

// PermissionGrant binds one capability, scoped to a resource reference or
// pattern, to a principal. Grants are additive and never revoked within a
// single assembly pass.
type PermissionGrant struct {
	Principal  RouterRef  `json:"principal" yaml:"principal"`
	Capability Capability `json:"capability" yaml:"capability"`
	Scope      string     `json:"scope" yaml:"scope"`
}

// Descriptor is registry/audit metadata attached to a stage. It carries no
// behavioral effect and must round-trip through construction unchanged.
type Descriptor struct {
	ID          string      `json:"id" yaml:"id"`
	Version     string      `json:"version" yaml:"version"`
	Status      StageStatus `json:"status" yaml:"status"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// Stage is a named processing step with its own trigger condition and
// downstream targets. Stages are created once at pipeline-definition time and
// are immutable after construction; a Stage is owned exclusively by the
// Pipeline that contains it.
type Stage struct {
	ID          string          `json:"id"`
	Kind        StageKind       `json:"kind"`
	TriggerSpec TriggerTemplate `json:"triggerSpec"`
	Targets     []TargetRef     `json:"targets"`
	Descriptor  Descriptor      `json:"descriptor"`
}

// Rule is a standing association between a trigger filter and the targets to
// invoke when the filter matches.
type Rule struct {
	ID      string          `json:"id"`
	Filter  TriggerTemplate `json:"filter"`
	Targets []TargetRef     `json:"targets"`
}

// DatasetConfig describes one data source attached to an existing pipeline.
// A dataset has an independent lifecycle from the base pipeline: it can be
// registered at any time after the pipeline exists, never before.
type DatasetConfig struct {
	Dataset         string            `yaml:"dataset" json:"dataset"`
	Team            string            `yaml:"team" json:"team"`
	StageATransform string            `yaml:"stageATransform,omitempty" json:"stageATransform,omitempty"`
	StageBTransform string            `yaml:"stageBTransform,omitempty" json:"stageBTransform,omitempty"`
	ResourceRefs    map[string]string `yaml:"resourceRefs,omitempty" json:"resourceRefs,omitempty"`
}

// DefaultStageATransform and DefaultStageBTransform are the pipeline-standard
// transform selectors applied when a DatasetConfig leaves them unset.
const (
	DefaultStageATransform = "light"
	DefaultStageBTransform = "heavy"
)

// ResolveTransforms returns the dataset's stage transform selectors with
// pipeline defaults applied.
func ResolveTransforms(cfg DatasetConfig) (stageA, stageB string) {
	stageA = cfg.StageATransform
	if stageA == "" {
		stageA = DefaultStageATransform
	}
	stageB = cfg.StageBTransform
	if stageB == "" {
		stageB = DefaultStageBTransform
	}
	return stageA, stageB
}

// KeyPrefix returns the storage-key prefix that scopes events to this
// dataset: "<team>/<dataset>/".
func (c DatasetConfig) KeyPrefix() string {
	return c.Team + "/" + c.Dataset + "/"
}
