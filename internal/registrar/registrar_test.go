package registrar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lakeline/lakeline/internal/assembler"
	"github.com/lakeline/lakeline/internal/stage"
	"github.com/lakeline/lakeline/internal/testutil"
	"github.com/lakeline/lakeline/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func assembleTestPipeline(t *testing.T) *types.Pipeline {
	t.Helper()

	cfg := stage.Config{
		Team:           "fin",
		PipelineKind:   "standard",
		Environment:    "dev",
		ResourcePrefix: "lakeline-dev",
		RawBucket:      "raw-bucket",
		StageBucket:    "stage-bucket",
	}
	routing := types.RouterRef{Name: "router", Resource: "arn:mock:function:router"}
	routingB := types.RouterRef{Name: "router-b", Resource: "arn:mock:function:router-b"}

	capture, err := stage.NewCapture("capture", cfg, types.Descriptor{ID: "capture", Version: "1", Status: types.StageActive})
	require.NoError(t, err)
	light, err := stage.NewLightTransform("light", cfg, routing, types.Descriptor{ID: "light", Version: "1", Status: types.StageActive})
	require.NoError(t, err)
	heavy, err := stage.NewHeavyTransform("heavy", cfg, routingB, types.Descriptor{ID: "heavy", Version: "1", Status: types.StageActive})
	require.NoError(t, err)

	p, err := assembler.New(nil).Assemble("lakeline-dev-pipeline", "standard", []assembler.Entry{
		{Stage: capture},
		{Stage: light, SkipRule: true, After: []string{"capture"}},
		{Stage: heavy.Stage, SkipRule: true, After: []string{"light"}},
	})
	require.NoError(t, err)
	return p
}

func TestRegister_EndToEnd(t *testing.T) {
	p := assembleTestPipeline(t)
	require.Len(t, p.Rules(), 1, "assembly derives exactly one rule (capture)")

	mock := testutil.NewMockProvisioner()
	reg := New(mock, nil, nil)

	err := reg.Register(context.Background(), p, types.DatasetConfig{Dataset: "sales", Team: "fin"})
	require.NoError(t, err)

	rules := p.Rules()
	require.Len(t, rules, 2)

	rule, ok := p.Rule("standard-dataset-sales-rule")
	require.True(t, ok)
	assert.Equal(t, []string{"fin/sales/"}, rule.Filter.KeyPrefixes())

	light, ok := p.StageByKind(types.StageLightTransform)
	require.True(t, ok)
	assert.Equal(t, light.Targets, rule.Targets)

	// capture's original rule untouched
	captureRule, ok := p.Rule("standard-capture-rule")
	require.True(t, ok)
	assert.Equal(t, []string{""}, captureRule.Filter.KeyPrefixes())

	// stack builder received resolved defaults untouched
	require.Len(t, mock.StackRequests, 1)
	req := mock.StackRequests[0]
	assert.Equal(t, "fin", req.Team)
	assert.Equal(t, "sales", req.Dataset)
	assert.Equal(t, "light", req.StageATransform)
	assert.Equal(t, "heavy", req.StageBTransform)
}

func TestRegister_TwoDatasetsSameTeam(t *testing.T) {
	p := assembleTestPipeline(t)
	reg := New(testutil.NewMockProvisioner(), nil, nil)

	require.NoError(t, reg.Register(context.Background(), p, types.DatasetConfig{Dataset: "sales", Team: "fin"}))
	require.NoError(t, reg.Register(context.Background(), p, types.DatasetConfig{Dataset: "orders", Team: "fin"}))

	sales, ok := p.Rule("standard-dataset-sales-rule")
	require.True(t, ok)
	orders, ok := p.Rule("standard-dataset-orders-rule")
	require.True(t, ok)

	assert.Equal(t, []string{"fin/sales/"}, sales.Filter.KeyPrefixes())
	assert.Equal(t, []string{"fin/orders/"}, orders.Filter.KeyPrefixes())

	// light-transform targets intentionally shared
	light, _ := p.StageByKind(types.StageLightTransform)
	assert.Equal(t, light.Targets, sales.Targets)
	assert.Equal(t, light.Targets, orders.Targets)
}

func TestRegister_BaseTemplateNeverMutated(t *testing.T) {
	p := assembleTestPipeline(t)
	capture, _ := p.StageByKind(types.StageCapture)
	before, err := json.Marshal(capture.TriggerSpec)
	require.NoError(t, err)

	reg := New(testutil.NewMockProvisioner(), nil, nil)
	for i := 0; i < 5; i++ {
		ds := types.DatasetConfig{Dataset: fmt.Sprintf("ds%d", i), Team: "fin"}
		require.NoError(t, reg.Register(context.Background(), p, ds))
	}

	after, err := json.Marshal(capture.TriggerSpec)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestRegister_RuleCollisionLeavesRulesUnchanged(t *testing.T) {
	p := assembleTestPipeline(t)
	reg := New(testutil.NewMockProvisioner(), nil, nil)

	require.NoError(t, reg.Register(context.Background(), p, types.DatasetConfig{Dataset: "sales", Team: "fin"}))
	ruleCount := len(p.Rules())

	err := reg.Register(context.Background(), p, types.DatasetConfig{Dataset: "sales", Team: "fin"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
	assert.Len(t, p.Rules(), ruleCount)
}

func TestRegister_MalformedBaseTemplate(t *testing.T) {
	p := types.NewPipeline("p1", "standard")
	require.NoError(t, p.AddStage(&types.Stage{
		ID:          "capture",
		Kind:        types.StageCapture,
		TriggerSpec: types.TriggerTemplate{"source": []any{"aws.s3"}}, // no detail.object
	}))
	require.NoError(t, p.AddStage(&types.Stage{
		ID:      "light",
		Kind:    types.StageLightTransform,
		Targets: []types.TargetRef{{ID: "q", Resource: "arn:q"}},
	}))
	p.MarkExtension("light")

	reg := New(testutil.NewMockProvisioner(), nil, nil)
	err := reg.Register(context.Background(), p, types.DatasetConfig{Dataset: "sales", Team: "fin"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
	assert.Empty(t, p.Rules(), "no unscoped rule may be produced")
}

func TestRegister_UpstreamProvisioningErrorPropagates(t *testing.T) {
	p := assembleTestPipeline(t)
	mock := testutil.NewMockProvisioner()
	mock.StackErr = errors.New("quota exceeded")

	reg := New(mock, nil, nil)
	err := reg.Register(context.Background(), p, types.DatasetConfig{Dataset: "sales", Team: "fin"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrConfiguration), "upstream failures are not configuration errors")
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Len(t, p.Rules(), 1, "pipeline rule set unchanged on upstream failure")
}

func TestRegister_MissingLightExtensionPoint(t *testing.T) {
	cfg := stage.Config{
		Team:           "fin",
		PipelineKind:   "standard",
		Environment:    "dev",
		ResourcePrefix: "lakeline-dev",
		RawBucket:      "raw-bucket",
		StageBucket:    "stage-bucket",
	}
	routing := types.RouterRef{Name: "router", Resource: "arn:mock:function:router"}

	capture, err := stage.NewCapture("capture", cfg, types.Descriptor{ID: "capture"})
	require.NoError(t, err)
	light, err := stage.NewLightTransform("light", cfg, routing, types.Descriptor{ID: "light"})
	require.NoError(t, err)

	// light's rule NOT suppressed — no open slot for dataset registration
	p, err := assembler.New(nil).Assemble("p1", "standard", []assembler.Entry{
		{Stage: capture},
		{Stage: light, After: []string{"capture"}},
	})
	require.NoError(t, err)

	reg := New(testutil.NewMockProvisioner(), nil, nil)
	err = reg.Register(context.Background(), p, types.DatasetConfig{Dataset: "sales", Team: "fin"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
	assert.Contains(t, err.Error(), "extension point")
}

func TestRegister_RequiresDatasetAndTeam(t *testing.T) {
	p := assembleTestPipeline(t)
	reg := New(testutil.NewMockProvisioner(), nil, nil)

	err := reg.Register(context.Background(), p, types.DatasetConfig{Team: "fin"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	err = reg.Register(context.Background(), p, types.DatasetConfig{Dataset: "sales"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}

func TestRegister_CustomTransformSelectorsPassThrough(t *testing.T) {
	p := assembleTestPipeline(t)
	mock := testutil.NewMockProvisioner()
	reg := New(mock, nil, nil)

	err := reg.Register(context.Background(), p, types.DatasetConfig{
		Dataset:         "clicks",
		Team:            "fin",
		StageATransform: "light-cdc",
		StageBTransform: "heavy-ml",
		ResourceRefs:    map[string]string{"rawBucket": "raw-bucket"},
	})
	require.NoError(t, err)

	require.Len(t, mock.StackRequests, 1)
	req := mock.StackRequests[0]
	assert.Equal(t, "light-cdc", req.StageATransform)
	assert.Equal(t, "heavy-ml", req.StageBTransform)
	assert.Equal(t, map[string]string{"rawBucket": "raw-bucket"}, req.ResourceRefs)
}

func TestRuleID(t *testing.T) {
	assert.Equal(t, "standard-dataset-sales-rule", RuleID("standard", "sales"))
}
