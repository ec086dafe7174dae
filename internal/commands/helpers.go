// Package commands implements the lakeline CLI commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lakeline/lakeline/internal/assembler"
	"github.com/lakeline/lakeline/internal/config"
	"github.com/lakeline/lakeline/internal/grants"
	"github.com/lakeline/lakeline/internal/provision"
	"github.com/lakeline/lakeline/internal/registrar"
	"github.com/lakeline/lakeline/internal/router"
	"github.com/lakeline/lakeline/internal/stage"
	"github.com/lakeline/lakeline/pkg/types"
)

const (
	captureStageName = "capture"
	lightStageName   = "light"
	heavyStageName   = "heavy"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func loadConfig() (*types.ProjectConfig, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// stageASelectors maps team/dataset keys to resolved stage-A transform
// selectors, skipping datasets on the default so the router's environment
// only carries overrides.
func stageASelectors(datasets []types.DatasetConfig) map[string]string {
	out := make(map[string]string)
	for _, ds := range datasets {
		stageA, _ := types.ResolveTransforms(ds)
		if stageA != types.DefaultStageATransform {
			out[ds.Team+"/"+ds.Dataset] = stageA
		}
	}
	return out
}

// stageBSelectors is the stage-B counterpart, bound to the stage-B router.
func stageBSelectors(datasets []types.DatasetConfig) map[string]string {
	out := make(map[string]string)
	for _, ds := range datasets {
		_, stageB := types.ResolveTransforms(ds)
		if stageB != types.DefaultStageBTransform {
			out[ds.Team+"/"+ds.Dataset] = stageB
		}
	}
	return out
}

// buildPipeline runs one full assembly pass: create the primary and stage-B
// routers with the datasets' selector bindings, construct the three stages,
// and assemble them. The capture stage gets its default rule; the transform
// stages are left as open extension points for dataset registration.
func buildPipeline(ctx context.Context, cfg *types.ProjectConfig, datasets []types.DatasetConfig, prov provision.Provisioner, logger *slog.Logger) (*types.Pipeline, *stage.HeavyTransform, error) {
	factory := router.NewFactory(prov, logger)
	grantCfg := grants.Config{
		RawBucket:      cfg.RawBucket,
		StageBucket:    cfg.StageBucket,
		ResourcePrefix: cfg.ResourcePrefix,
		App:            cfg.App,
		Environment:    cfg.Environment,
	}
	grantFor := func(ref types.RouterRef) []types.PermissionGrant {
		return grants.ForRouter(ref, grantCfg)
	}

	routingA, err := factory.Create(ctx, router.Env{
		App:              cfg.App,
		Org:              cfg.Org,
		Environment:      cfg.Environment,
		ResourcePrefix:   cfg.ResourcePrefix,
		FunctionName:     cfg.RouterFunction,
		DatasetSelectors: stageASelectors(datasets),
	}, grantFor)
	if err != nil {
		return nil, nil, err
	}

	routingB, err := factory.Create(ctx, router.Env{
		App:              cfg.App,
		Org:              cfg.Org,
		Environment:      cfg.Environment,
		ResourcePrefix:   cfg.ResourcePrefix,
		FunctionName:     cfg.RouterBFunction,
		DatasetSelectors: stageBSelectors(datasets),
	}, grantFor)
	if err != nil {
		return nil, nil, err
	}

	stageCfg := stage.Config{
		Team:           cfg.Team,
		PipelineKind:   cfg.PipelineKind,
		Environment:    cfg.Environment,
		ResourcePrefix: cfg.ResourcePrefix,
		RawBucket:      cfg.RawBucket,
		StageBucket:    cfg.StageBucket,
	}
	descriptor := func(id string) types.Descriptor {
		return types.Descriptor{
			ID:          id,
			Version:     "1",
			Status:      types.StageActive,
			Description: fmt.Sprintf("%s stage of the %s pipeline", id, cfg.PipelineKind),
		}
	}

	capture, err := stage.NewCapture(captureStageName, stageCfg, descriptor(captureStageName))
	if err != nil {
		return nil, nil, err
	}
	light, err := stage.NewLightTransform(lightStageName, stageCfg, routingA, descriptor(lightStageName))
	if err != nil {
		return nil, nil, err
	}
	heavy, err := stage.NewHeavyTransform(heavyStageName, stageCfg, routingB, descriptor(heavyStageName))
	if err != nil {
		return nil, nil, err
	}

	asm := assembler.New(logger)
	p, err := asm.Assemble(cfg.ResourcePrefix+"-pipeline", cfg.PipelineKind, []assembler.Entry{
		{Stage: capture},
		{Stage: light, SkipRule: true, After: []string{captureStageName}},
		{Stage: heavy.Stage, SkipRule: true, After: []string{lightStageName}},
	})
	if err != nil {
		return nil, nil, err
	}
	return p, heavy, nil
}

// ruleForDataset fetches the rule a completed registration added for the
// dataset. A missing rule means the pipeline model and the registration
// disagree, which is a configuration fault, not a crash.
func ruleForDataset(p *types.Pipeline, dataset string) (*types.Rule, error) {
	id := registrar.RuleID(p.Kind(), dataset)
	rule, ok := p.Rule(id)
	if !ok {
		return nil, types.ConfigErrorf("rule %q not found in pipeline %q", id, p.ID())
	}
	return rule, nil
}

// newRegistrar wires the registrar with the optional callback client.
func newRegistrar(cfg *types.ProjectConfig, stacks provision.DatasetStackBuilder, logger *slog.Logger) *registrar.Registrar {
	var callback *registrar.CallbackClient
	if cfg.Callback != nil && cfg.Callback.Endpoint != "" {
		callback = registrar.NewCallbackClient(cfg.Callback.Endpoint, time.Duration(cfg.Callback.Timeout)*time.Second, logger)
	}
	return registrar.New(stacks, callback, logger)
}
