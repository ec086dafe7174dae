package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeline/lakeline/internal/testutil"
	"github.com/lakeline/lakeline/pkg/types"
)

func testProjectConfig() *types.ProjectConfig {
	return &types.ProjectConfig{
		Environment:     "dev",
		ResourcePrefix:  "lakeline-dev",
		Team:            "fin",
		App:             "datalake",
		Org:             "acme",
		PipelineKind:    "standard",
		Bus:             "default",
		RawBucket:       "acme-raw",
		StageBucket:     "acme-stage",
		RouterFunction:  "lakeline-dev-router",
		RouterBFunction: "lakeline-dev-router-b",
	}
}

func TestBuildPipeline(t *testing.T) {
	mock := testutil.NewMockProvisioner()
	cfg := testProjectConfig()

	p, heavy, err := buildPipeline(context.Background(), cfg, nil, mock, nil)
	require.NoError(t, err)

	assert.Equal(t, "lakeline-dev-pipeline", p.ID())
	assert.Equal(t, "standard", p.Kind())

	stages := p.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, captureStageName, stages[0].ID)
	assert.Equal(t, lightStageName, stages[1].ID)
	assert.Equal(t, heavyStageName, stages[2].ID)

	// only the capture stage gets a standing rule at assembly time
	require.Len(t, p.Rules(), 1)
	assert.Equal(t, "standard-capture-rule", p.Rules()[0].ID)
	assert.Equal(t, []string{lightStageName, heavyStageName}, p.ExtensionPoints())

	// both routers go through the full bind/env/grant/invoke sequence
	assert.Equal(t, []string{"lakeline-dev-router", "lakeline-dev-router-b"}, mock.BoundFunctions)
	assert.Equal(t, "datalake", mock.Environments["lakeline-dev-router"]["APP"])
	assert.Equal(t, "datalake", mock.Environments["lakeline-dev-router-b"]["APP"])
	assert.Len(t, mock.Grants, 10, "five grants per router")

	assert.Equal(t, "arn:mock:function:lakeline-dev-router-b", heavy.RoutingB().Resource)
}

func TestBuildPipeline_RouterFailureAborts(t *testing.T) {
	mock := testutil.NewMockProvisioner()
	mock.BindErr = assert.AnError
	cfg := testProjectConfig()

	_, _, err := buildPipeline(context.Background(), cfg, nil, mock, nil)
	require.Error(t, err)
}

func TestBuildPipeline_SelectorOverridesReachRouters(t *testing.T) {
	mock := testutil.NewMockProvisioner()
	cfg := testProjectConfig()
	datasets := []types.DatasetConfig{
		{Dataset: "sales", Team: "fin"},
		{Dataset: "clicks", Team: "fin", StageATransform: "light-cdc", StageBTransform: "heavy-ml"},
	}

	_, _, err := buildPipeline(context.Background(), cfg, datasets, mock, nil)
	require.NoError(t, err)

	// only overrides are bound; sales stays on the defaults
	assert.JSONEq(t, `{"fin/clicks":"light-cdc"}`,
		mock.Environments["lakeline-dev-router"]["DATASET_SELECTORS"])
	assert.JSONEq(t, `{"fin/clicks":"heavy-ml"}`,
		mock.Environments["lakeline-dev-router-b"]["DATASET_SELECTORS"])
}

func TestRuleForDataset(t *testing.T) {
	mock := testutil.NewMockProvisioner()
	cfg := testProjectConfig()

	p, _, err := buildPipeline(context.Background(), cfg, nil, mock, nil)
	require.NoError(t, err)

	reg := newRegistrar(cfg, mock, nil)
	require.NoError(t, reg.Register(context.Background(), p, types.DatasetConfig{
		Dataset: "sales",
		Team:    "fin",
	}))

	rule, err := ruleForDataset(p, "sales")
	require.NoError(t, err)
	assert.Equal(t, "standard-dataset-sales-rule", rule.ID)

	// a dataset that never registered surfaces a configuration error, not
	// a nil rule
	_, err = ruleForDataset(p, "orders")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
}
