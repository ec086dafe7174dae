package provision

import (
	"context"

	"github.com/lakeline/lakeline/pkg/types"
)

// Unbound is a provisioner that resolves everything to synthetic references
// and applies nothing. Plan-mode assembly runs against it so derived rules
// and grants can be inspected without touching live resources.
type Unbound struct{}

// BindFunction returns a synthetic ref for the name.
func (Unbound) BindFunction(_ context.Context, name string) (types.RouterRef, error) {
	return types.RouterRef{Name: name, Resource: "unbound:function:" + name}, nil
}

// SetEnvironment is a no-op.
func (Unbound) SetEnvironment(context.Context, types.RouterRef, map[string]string) error {
	return nil
}

// ApplyGrant is a no-op.
func (Unbound) ApplyGrant(context.Context, types.PermissionGrant) error { return nil }

// AllowInvoke is a no-op.
func (Unbound) AllowInvoke(context.Context, types.RouterRef, string) error { return nil }

// PutRule is a no-op.
func (Unbound) PutRule(context.Context, string, *types.Rule) error { return nil }

// EnsureQueue returns a synthetic queue reference.
func (Unbound) EnsureQueue(_ context.Context, name string) (string, error) {
	return "unbound:queue:" + name, nil
}

// CheckBucket is a no-op.
func (Unbound) CheckBucket(context.Context, string) error { return nil }

// BuildDatasetStack is a no-op.
func (Unbound) BuildDatasetStack(context.Context, StackRequest) error { return nil }

var (
	_ Provisioner         = Unbound{}
	_ DatasetStackBuilder = Unbound{}
)
