// Package provision defines the collaborator interfaces the assembly core
// delegates resource binding to. The core treats object storage, compute
// functions, queues, and the event bus as opaque capabilities behind these
// interfaces; resource lifecycle (create/update/delete of infrastructure) is
// the collaborator's problem, not the core's.
package provision

import (
	"context"

	"github.com/lakeline/lakeline/pkg/types"
)

// Provisioner binds the declarative pipeline model to real resources. All
// calls are synchronous and definition-time; failures are surfaced to the
// caller unchanged and never retried by the core.
type Provisioner interface {
	// BindFunction resolves an existing compute function by name and returns
	// an opaque handle to it.
	BindFunction(ctx context.Context, name string) (types.RouterRef, error)

	// SetEnvironment applies environment key/value bindings to a function.
	SetEnvironment(ctx context.Context, ref types.RouterRef, env map[string]string) error

	// ApplyGrant registers the grant's principal for the grant's capability.
	ApplyGrant(ctx context.Context, grant types.PermissionGrant) error

	// AllowInvoke authorizes the named external service to invoke the function.
	AllowInvoke(ctx context.Context, ref types.RouterRef, service string) error

	// PutRule materializes a rule (filter plus targets) on the named event bus.
	PutRule(ctx context.Context, bus string, rule *types.Rule) error

	// EnsureQueue resolves a managed queue by name, creating it when absent,
	// and returns its resource reference.
	EnsureQueue(ctx context.Context, name string) (string, error)

	// CheckBucket verifies the named object storage bucket is reachable.
	CheckBucket(ctx context.Context, name string) error
}

// StackRequest carries the resolved selectors and resource references for
// one dataset's scoped resources. The core passes selectors through
// unchanged; interpretation belongs to the stack builder.
type StackRequest struct {
	Team            string
	Dataset         string
	StageATransform string
	StageBTransform string
	ResourceRefs    map[string]string
}

// DatasetStackBuilder instantiates dataset-scoped resources (storage layout,
// compute role, registration callback wiring) for a registered dataset.
type DatasetStackBuilder interface {
	BuildDatasetStack(ctx context.Context, req StackRequest) error
}
