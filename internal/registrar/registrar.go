// Package registrar attaches datasets to an assembled pipeline at runtime,
// extending it with dataset-scoped rules without altering the stage
// sequence.
package registrar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lakeline/lakeline/internal/metrics"
	"github.com/lakeline/lakeline/internal/provision"
	"github.com/lakeline/lakeline/pkg/types"
)

// Registrar registers datasets against pipelines. Callers must serialize
// registrations per pipeline: the rule-id uniqueness check is not
// transactional across concurrent callers.
type Registrar struct {
	stacks   provision.DatasetStackBuilder
	callback *CallbackClient
	logger   *slog.Logger
}

// New creates a registrar. The callback client is optional.
func New(stacks provision.DatasetStackBuilder, callback *CallbackClient, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{stacks: stacks, callback: callback, logger: logger}
}

// RuleID returns the deterministic rule id for a dataset on a pipeline kind.
func RuleID(pipelineKind, dataset string) string {
	return fmt.Sprintf("%s-dataset-%s-rule", pipelineKind, dataset)
}

// Register attaches one dataset to the pipeline:
//
//  1. resolves the stage transform selectors, defaulting to the pipeline's
//     standard light/heavy transforms;
//  2. delegates dataset-scoped resource instantiation to the stack builder,
//     passing the resolved selectors through unchanged;
//  3. derives the new rule's filter by copying the capture stage's base
//     trigger template and narrowing it to the dataset's key prefix — the
//     shared template is never mutated;
//  4. adds the rule under its deterministic id, bound to the light-transform
//     stage's targets.
//
// A rule-id collision is a configuration error and leaves the pipeline's
// rule set unchanged.
func (r *Registrar) Register(ctx context.Context, p *types.Pipeline, cfg types.DatasetConfig) error {
	if p == nil {
		return types.ConfigErrorf("dataset registration requires an assembled pipeline")
	}
	if cfg.Dataset == "" || cfg.Team == "" {
		return types.ConfigErrorf("dataset registration requires dataset and team")
	}

	ruleID := RuleID(p.Kind(), cfg.Dataset)
	if p.HasRule(ruleID) {
		return types.ConfigErrorf("rule %q already exists in pipeline %q", ruleID, p.ID())
	}

	capture, ok := p.StageByKind(types.StageCapture)
	if !ok {
		return types.ConfigErrorf("pipeline %q has no capture stage", p.ID())
	}
	light, ok := p.StageByKind(types.StageLightTransform)
	if !ok {
		return types.ConfigErrorf("pipeline %q has no light-transform stage", p.ID())
	}
	if !p.HasExtension(light.ID) {
		return types.ConfigErrorf("stage %q is not an open extension point in pipeline %q", light.ID, p.ID())
	}

	stageA, stageB := types.ResolveTransforms(cfg)

	if r.stacks != nil {
		req := provision.StackRequest{
			Team:            cfg.Team,
			Dataset:         cfg.Dataset,
			StageATransform: stageA,
			StageBTransform: stageB,
			ResourceRefs:    cfg.ResourceRefs,
		}
		// Upstream provisioning failures propagate unchanged.
		if err := r.stacks.BuildDatasetStack(ctx, req); err != nil {
			metrics.ProvisioningFailures.Add(1)
			return err
		}
	}

	// NOTE: the filter is sourced from the capture stage but the rule binds
	// to the light-transform stage's targets. Intentional for now, pending
	// product confirmation.
	filter, err := capture.TriggerSpec.WithKeyPrefix(cfg.KeyPrefix())
	if err != nil {
		return fmt.Errorf("deriving filter for dataset %q: %w", cfg.Dataset, err)
	}

	rule := &types.Rule{
		ID:      ruleID,
		Filter:  filter,
		Targets: copyTargets(light.Targets),
	}
	if err := p.AddRule(rule); err != nil {
		return err
	}

	metrics.DatasetsRegistered.Add(1)
	metrics.RulesCreated.Add(1)
	r.logger.Info("dataset registered",
		"pipeline", p.ID(),
		"dataset", cfg.Dataset,
		"team", cfg.Team,
		"rule", ruleID,
		"prefix", cfg.KeyPrefix())

	if r.callback != nil {
		// Best-effort: a callback failure never unwinds a completed registration.
		r.callback.Notify(ctx, Notification{
			Pipeline: p.ID(),
			Dataset:  cfg.Dataset,
			Team:     cfg.Team,
			RuleID:   ruleID,
		})
	}
	return nil
}

func copyTargets(targets []types.TargetRef) []types.TargetRef {
	out := make([]types.TargetRef, len(targets))
	copy(out, targets)
	return out
}
