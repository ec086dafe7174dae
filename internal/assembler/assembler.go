// Package assembler composes an ordered list of stages into one pipeline and
// derives the default triggering rules.
package assembler

import (
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/lakeline/lakeline/internal/metrics"
	"github.com/lakeline/lakeline/pkg/types"
)

// Entry pairs a stage with its assembly directives. When SkipRule is set, no
// triggering rule is created for the stage at assembly time; the slot is
// left open for later dynamic registration. After lists the ids of upstream
// stages this stage consumes output from — list order alone carries no
// sequencing guarantee, so the dependency is declared explicitly.
type Entry struct {
	Stage    *types.Stage
	SkipRule bool
	After    []string
}

// Assembler builds pipelines from stage entries.
type Assembler struct {
	logger *slog.Logger
}

// New creates an assembler.
func New(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Assemble composes the entries into a pipeline. Stage order preserves input
// order exactly. For each entry with SkipRule unset, a triggering rule is
// derived from the stage's own trigger spec and bound to that stage's
// targets. Duplicate stage ids, dangling After references, and dependency
// cycles are configuration errors reported before any result is returned;
// on error no partially assembled pipeline escapes.
func (a *Assembler) Assemble(id, kind string, entries []Entry) (*types.Pipeline, error) {
	if id == "" {
		return nil, types.ConfigErrorf("pipeline requires an id")
	}
	if kind == "" {
		kind = "standard"
	}

	if err := validateEdges(entries); err != nil {
		return nil, err
	}

	p := types.NewPipeline(id, kind)
	for _, e := range entries {
		if e.Stage == nil {
			return nil, types.ConfigErrorf("pipeline %q: nil stage entry", id)
		}
		if err := p.AddStage(e.Stage); err != nil {
			return nil, err
		}
	}

	for _, e := range entries {
		if e.SkipRule {
			p.MarkExtension(e.Stage.ID)
			continue
		}
		rule := &types.Rule{
			ID:      fmt.Sprintf("%s-%s-rule", kind, e.Stage.ID),
			Filter:  e.Stage.TriggerSpec.Clone(),
			Targets: copyTargets(e.Stage.Targets),
		}
		if err := p.AddRule(rule); err != nil {
			return nil, err
		}
		metrics.RulesCreated.Add(1)
	}

	metrics.StagesAssembled.Add(int64(len(entries)))
	a.logger.Info("pipeline assembled",
		"pipeline", id,
		"kind", kind,
		"pass", ulid.Make().String(),
		"stages", len(entries),
		"rules", len(p.Rules()),
		"extensionPoints", p.ExtensionPoints())
	return p, nil
}

// validateEdges checks every After reference resolves to an entry and the
// resulting directed edge set is acyclic.
func validateEdges(entries []Entry) error {
	ids := make(map[string][]string, len(entries))
	for _, e := range entries {
		if e.Stage == nil {
			continue
		}
		if _, dup := ids[e.Stage.ID]; dup {
			return types.ConfigErrorf("duplicate stage id %q in assembly", e.Stage.ID)
		}
		ids[e.Stage.ID] = e.After
	}

	for id, after := range ids {
		for _, up := range after {
			if _, ok := ids[up]; !ok {
				return types.ConfigErrorf("stage %q depends on unknown stage %q", id, up)
			}
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(ids))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return types.ConfigErrorf("stage dependency cycle through %q", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, up := range ids[id] {
			if err := visit(up); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for id := range ids {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

func copyTargets(targets []types.TargetRef) []types.TargetRef {
	out := make([]types.TargetRef, len(targets))
	copy(out, targets)
	return out
}
