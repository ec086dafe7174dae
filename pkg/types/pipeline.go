package types

// Pipeline is an ordered sequence of stages plus the standing rules that
// route events through them. Stage order reflects intended data flow
// (capture → light-transform → heavy-transform) but is not itself enforced
// by any runtime check; actual sequencing is an emergent property of which
// stage's targets reference another stage's trigger input. Rules may be
// added after construction — that is the dynamic extension point dataset
// registration uses.
type Pipeline struct {
	id         string
	kind       string
	stages     []*Stage
	stageIndex map[string]*Stage
	rules      map[string]*Rule
	ruleOrder  []string
	extensions map[string]struct{}
}

// NewPipeline creates an empty pipeline with the given id and kind. The kind
// (e.g. "standard") prefixes derived rule ids.
func NewPipeline(id, kind string) *Pipeline {
	return &Pipeline{
		id:         id,
		kind:       kind,
		stageIndex: make(map[string]*Stage),
		rules:      make(map[string]*Rule),
		extensions: make(map[string]struct{}),
	}
}

// ID returns the pipeline id.
func (p *Pipeline) ID() string { return p.id }

// Kind returns the pipeline kind.
func (p *Pipeline) Kind() string { return p.kind }

// AddStage appends a stage without reordering existing entries. Adding a
// stage whose id already exists is a configuration error, never a silent
// merge.
func (p *Pipeline) AddStage(s *Stage) error {
	if s == nil || s.ID == "" {
		return ConfigErrorf("stage must have an id")
	}
	if _, exists := p.stageIndex[s.ID]; exists {
		return ConfigErrorf("duplicate stage id %q in pipeline %q", s.ID, p.id)
	}
	p.stages = append(p.stages, s)
	p.stageIndex[s.ID] = s
	return nil
}

// AddRule appends a rule without reordering existing entries. Adding a rule
// whose id already exists is a configuration error, not a silent overwrite.
func (p *Pipeline) AddRule(r *Rule) error {
	if r == nil || r.ID == "" {
		return ConfigErrorf("rule must have an id")
	}
	if _, exists := p.rules[r.ID]; exists {
		return ConfigErrorf("duplicate rule id %q in pipeline %q", r.ID, p.id)
	}
	p.rules[r.ID] = r
	p.ruleOrder = append(p.ruleOrder, r.ID)
	return nil
}

// Stages returns the stages in insertion order.
func (p *Pipeline) Stages() []*Stage {
	out := make([]*Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Stage returns the stage with the given id.
func (p *Pipeline) Stage(id string) (*Stage, bool) {
	s, ok := p.stageIndex[id]
	return s, ok
}

// StageByKind returns the first stage of the given kind in flow order.
func (p *Pipeline) StageByKind(kind StageKind) (*Stage, bool) {
	for _, s := range p.stages {
		if s.Kind == kind {
			return s, true
		}
	}
	return nil, false
}

// Rules returns the rules in insertion order.
func (p *Pipeline) Rules() []*Rule {
	out := make([]*Rule, 0, len(p.ruleOrder))
	for _, id := range p.ruleOrder {
		out = append(out, p.rules[id])
	}
	return out
}

// Rule returns the rule with the given id.
func (p *Pipeline) Rule(id string) (*Rule, bool) {
	r, ok := p.rules[id]
	return r, ok
}

// HasRule reports whether a rule with the given id exists.
func (p *Pipeline) HasRule(id string) bool {
	_, ok := p.rules[id]
	return ok
}

// MarkExtension records that the stage's triggering rule was deliberately
// suppressed at assembly time, leaving an explicit slot for later dynamic
// registration to fill.
func (p *Pipeline) MarkExtension(stageID string) {
	p.extensions[stageID] = struct{}{}
}

// HasExtension reports whether the stage is an open extension point.
func (p *Pipeline) HasExtension(stageID string) bool {
	_, ok := p.extensions[stageID]
	return ok
}

// ExtensionPoints returns the stage ids awaiting deferred rule registration,
// in stage order.
func (p *Pipeline) ExtensionPoints() []string {
	var out []string
	for _, s := range p.stages {
		if p.HasExtension(s.ID) {
			out = append(out, s.ID)
		}
	}
	return out
}
