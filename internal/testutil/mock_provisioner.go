// Package testutil provides in-memory fakes for the provisioning
// collaborators.
package testutil

import (
	"context"
	"sync"

	"github.com/lakeline/lakeline/internal/provision"
	"github.com/lakeline/lakeline/pkg/types"
)

// MockProvisioner records every provisioning call for assertions. All
// methods succeed unless a corresponding Err field is set.
type MockProvisioner struct {
	mu sync.Mutex

	BoundFunctions []string
	Environments   map[string]map[string]string
	Grants         []types.PermissionGrant
	InvokeAuths    map[string][]string // function name -> services
	Rules          map[string]*types.Rule
	QueuesEnsured  []string
	BucketsChecked []string
	StackRequests  []provision.StackRequest

	BindErr  error
	EnvErr   error
	GrantErr error
	AuthErr  error
	RuleErr  error
	QueueErr error
	StackErr error
}

// NewMockProvisioner creates an empty mock.
func NewMockProvisioner() *MockProvisioner {
	return &MockProvisioner{
		Environments: make(map[string]map[string]string),
		InvokeAuths:  make(map[string][]string),
		Rules:        make(map[string]*types.Rule),
	}
}

// BindFunction returns a synthetic ref for the name.
func (m *MockProvisioner) BindFunction(_ context.Context, name string) (types.RouterRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BindErr != nil {
		return types.RouterRef{}, m.BindErr
	}
	m.BoundFunctions = append(m.BoundFunctions, name)
	return types.RouterRef{Name: name, Resource: "arn:mock:function:" + name}, nil
}

// SetEnvironment records the bindings applied to a function.
func (m *MockProvisioner) SetEnvironment(_ context.Context, ref types.RouterRef, env map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnvErr != nil {
		return m.EnvErr
	}
	stored := make(map[string]string, len(env))
	for k, v := range env {
		stored[k] = v
	}
	m.Environments[ref.Name] = stored
	return nil
}

// ApplyGrant records the grant.
func (m *MockProvisioner) ApplyGrant(_ context.Context, grant types.PermissionGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GrantErr != nil {
		return m.GrantErr
	}
	m.Grants = append(m.Grants, grant)
	return nil
}

// AllowInvoke records the invoke authorization.
func (m *MockProvisioner) AllowInvoke(_ context.Context, ref types.RouterRef, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AuthErr != nil {
		return m.AuthErr
	}
	m.InvokeAuths[ref.Name] = append(m.InvokeAuths[ref.Name], service)
	return nil
}

// PutRule records the rule keyed by id.
func (m *MockProvisioner) PutRule(_ context.Context, _ string, rule *types.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RuleErr != nil {
		return m.RuleErr
	}
	m.Rules[rule.ID] = rule
	return nil
}

// EnsureQueue records the queue and returns a synthetic ARN.
func (m *MockProvisioner) EnsureQueue(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueueErr != nil {
		return "", m.QueueErr
	}
	m.QueuesEnsured = append(m.QueuesEnsured, name)
	return "arn:mock:queue:" + name, nil
}

// CheckBucket records the bucket check.
func (m *MockProvisioner) CheckBucket(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BucketsChecked = append(m.BucketsChecked, name)
	return nil
}

// BuildDatasetStack records the stack request, so MockProvisioner also
// serves as the DatasetStackBuilder collaborator in tests.
func (m *MockProvisioner) BuildDatasetStack(_ context.Context, req provision.StackRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StackErr != nil {
		return m.StackErr
	}
	m.StackRequests = append(m.StackRequests, req)
	return nil
}

var (
	_ provision.Provisioner         = (*MockProvisioner)(nil)
	_ provision.DatasetStackBuilder = (*MockProvisioner)(nil)
)
