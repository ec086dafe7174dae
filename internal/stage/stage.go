// Package stage constructs the three concrete pipeline stages: capture,
// light transform, and heavy transform. A stage is immutable after
// construction; its descriptor is registry metadata only and round-trips
// through construction unchanged.
package stage

import (
	"github.com/lakeline/lakeline/pkg/types"
)

// Config is the scoping configuration shared by stage constructors.
type Config struct {
	Team           string
	PipelineKind   string
	Environment    string
	ResourcePrefix string
	RawBucket      string // upstream storage for capture / light transform
	StageBucket    string // downstream storage, upstream for heavy transform
}

func (c Config) validate() error {
	if c.Team == "" {
		return types.ConfigErrorf("stage config requires a team")
	}
	if c.RawBucket == "" || c.StageBucket == "" {
		return types.ConfigErrorf("stage config requires raw and stage buckets")
	}
	return nil
}

// queueTarget builds the stage's own queue target reference.
func queueTarget(cfg Config, name string) types.TargetRef {
	return types.TargetRef{
		ID:       name + "-queue",
		Resource: cfg.ResourcePrefix + "-" + name + "-queue",
	}
}

// NewCapture builds the capture stage: it reacts to object-created events on
// the raw bucket and exposes its intake queue as the downstream target.
func NewCapture(name string, cfg Config, desc types.Descriptor) (*types.Stage, error) {
	if name == "" {
		return nil, types.ConfigErrorf("capture stage requires a name")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &types.Stage{
		ID:          name,
		Kind:        types.StageCapture,
		TriggerSpec: types.ObjectCreatedTemplate(cfg.RawBucket),
		Targets:     []types.TargetRef{queueTarget(cfg, name)},
		Descriptor:  desc,
	}, nil
}

// NewLightTransform builds the stage-A transform. Its trigger spec shares
// the capture template's shape — dataset registration narrows a copy of the
// base template and binds the derived rule to this stage's targets. The
// routing function rides alongside the intake queue in the target set so a
// matched event both lands on the queue and reaches the router.
func NewLightTransform(name string, cfg Config, routing types.RouterRef, desc types.Descriptor) (*types.Stage, error) {
	if name == "" {
		return nil, types.ConfigErrorf("light-transform stage requires a name")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if routing.Resource == "" {
		return nil, types.ConfigErrorf("light-transform stage requires a routing function")
	}
	return &types.Stage{
		ID:          name,
		Kind:        types.StageLightTransform,
		TriggerSpec: types.ObjectCreatedTemplate(cfg.RawBucket),
		Targets: []types.TargetRef{
			queueTarget(cfg, name),
			{ID: name + "-routing", Resource: routing.Resource},
		},
		Descriptor: desc,
	}, nil
}

// HeavyTransform is the stage-B transform. Unlike the other stages it
// carries its own router reference, distinct from the pipeline's primary
// router: callers re-routing after the light transform completes dispatch
// through RoutingB.
type HeavyTransform struct {
	*types.Stage
	routingB types.RouterRef
}

// NewHeavyTransform builds the stage-B transform, triggered off the stage
// bucket where light-transform output lands.
func NewHeavyTransform(name string, cfg Config, routingB types.RouterRef, desc types.Descriptor) (*HeavyTransform, error) {
	if name == "" {
		return nil, types.ConfigErrorf("heavy-transform stage requires a name")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if routingB.Resource == "" {
		return nil, types.ConfigErrorf("heavy-transform stage requires its stage-B router")
	}
	return &HeavyTransform{
		Stage: &types.Stage{
			ID:          name,
			Kind:        types.StageHeavyTransform,
			TriggerSpec: types.ObjectCreatedTemplate(cfg.StageBucket),
			Targets: []types.TargetRef{
				queueTarget(cfg, name),
				{ID: name + "-routing-b", Resource: routingB.Resource},
			},
			Descriptor: desc,
		},
		routingB: routingB,
	}, nil
}

// RoutingB returns the stage-B dispatch router.
func (h *HeavyTransform) RoutingB() types.RouterRef { return h.routingB }
