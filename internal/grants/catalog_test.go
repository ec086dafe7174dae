package grants

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeline/lakeline/pkg/types"
)

var testCfg = Config{
	RawBucket:      "acme-raw",
	StageBucket:    "acme-stage",
	ResourcePrefix: "lakeline-dev",
	App:            "datalake",
	Environment:    "dev",
}

func TestForRouter(t *testing.T) {
	principal := types.RouterRef{Name: "router", Resource: "arn:mock:function:router"}
	set := ForRouter(principal, testCfg)

	require.Len(t, set, 5)
	for _, g := range set {
		assert.Equal(t, principal, g.Principal)
	}

	byCapability := map[types.Capability][]string{}
	for _, g := range set {
		byCapability[g.Capability] = append(byCapability[g.Capability], g.Scope)
	}

	assert.ElementsMatch(t, []string{"acme-raw", "acme-stage"}, byCapability[types.StorageReadWrite])
	assert.Equal(t, []string{"alias/lakeline-dev-*"}, byCapability[types.KeyOps])
	assert.Equal(t, []string{"lakeline-dev-*"}, byCapability[types.QueueOps])
	assert.Equal(t, []string{"/datalake/dev/"}, byCapability[types.ParamRead])
}

func TestPolicyDocument(t *testing.T) {
	principal := types.RouterRef{Name: "router"}
	doc, err := PolicyDocument(ForRouter(principal, testCfg))
	require.NoError(t, err)

	var decoded struct {
		Version   string `json:"Version"`
		Statement []struct {
			Effect   string   `json:"Effect"`
			Action   []string `json:"Action"`
			Resource string   `json:"Resource"`
		} `json:"Statement"`
	}
	require.NoError(t, json.Unmarshal(doc, &decoded))

	assert.Equal(t, "2012-10-17", decoded.Version)
	require.Len(t, decoded.Statement, 5)
	for _, s := range decoded.Statement {
		assert.Equal(t, "Allow", s.Effect)
		assert.NotEmpty(t, s.Action)
		assert.NotEmpty(t, s.Resource)
	}
}

func TestPolicyDocument_UnknownCapability(t *testing.T) {
	_, err := PolicyDocument([]types.PermissionGrant{{Capability: "launch-rockets"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
