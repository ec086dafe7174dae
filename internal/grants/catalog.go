// Package grants builds the declarative permission-grant catalog for the
// routing function. The catalog is pure data: it carries no state and applies
// nothing itself.
package grants

import (
	"encoding/json"
	"fmt"

	"github.com/lakeline/lakeline/pkg/types"
)

// Config scopes the grant catalog to one deployment.
type Config struct {
	RawBucket      string
	StageBucket    string
	ResourcePrefix string
	App            string
	Environment    string
}

// ForRouter returns the full grant set for the routing function: read/write
// on the raw and stage buckets, key operations scoped by alias pattern,
// queue operations scoped to the resource-prefix name pattern, and parameter
// reads scoped to the app/environment namespace. Grants are additive; nothing
// here revokes.
func ForRouter(principal types.RouterRef, cfg Config) []types.PermissionGrant {
	return []types.PermissionGrant{
		{Principal: principal, Capability: types.StorageReadWrite, Scope: cfg.RawBucket},
		{Principal: principal, Capability: types.StorageReadWrite, Scope: cfg.StageBucket},
		{Principal: principal, Capability: types.KeyOps, Scope: "alias/" + cfg.ResourcePrefix + "-*"},
		{Principal: principal, Capability: types.QueueOps, Scope: cfg.ResourcePrefix + "-*"},
		{Principal: principal, Capability: types.ParamRead, Scope: "/" + cfg.App + "/" + cfg.Environment + "/"},
	}
}

// policyStatement is one entry of the rendered audit policy document.
type policyStatement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource string   `json:"Resource"`
}

// policyDocument is the IAM-style audit rendering of a grant set.
type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// capabilityActions maps each capability to the actions it implies in the
// rendered audit document.
var capabilityActions = map[types.Capability][]string{
	types.StorageReadWrite: {"s3:GetObject", "s3:PutObject", "s3:ListBucket"},
	types.KeyOps:           {"kms:Decrypt", "kms:Encrypt", "kms:GenerateDataKey", "kms:DescribeKey"},
	types.QueueOps:         {"sqs:SendMessage", "sqs:ReceiveMessage", "sqs:DeleteMessage", "sqs:GetQueueUrl"},
	types.ParamRead:        {"ssm:GetParameter", "ssm:GetParametersByPath"},
}

// PolicyDocument renders the grant set as an IAM-style JSON document for
// audit and plan output.
func PolicyDocument(set []types.PermissionGrant) ([]byte, error) {
	doc := policyDocument{Version: "2012-10-17"}
	for _, g := range set {
		actions, ok := capabilityActions[g.Capability]
		if !ok {
			return nil, types.ConfigErrorf("unknown capability %q", g.Capability)
		}
		doc.Statement = append(doc.Statement, policyStatement{
			Effect:   "Allow",
			Action:   actions,
			Resource: g.Scope,
		})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling policy document: %w", err)
	}
	return data, nil
}
