// Package router builds the routing function: the compute entity that
// directs an incoming storage event to the correct team/dataset/pipeline
// destination.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lakeline/lakeline/internal/metrics"
	"github.com/lakeline/lakeline/internal/provision"
	"github.com/lakeline/lakeline/pkg/types"
)

// InvokingService is the external service authorized to invoke the router.
const InvokingService = "events.amazonaws.com"

// Env carries the environment bindings applied to the router function.
// DatasetSelectors maps "<team>/<dataset>" to the transform selector the
// dataset's stack was built with; datasets on the default selector are
// omitted. The router resolves stage queues from this mapping, so it must
// stay in step with the registered datasets.
type Env struct {
	App              string
	Org              string
	Environment      string
	ResourcePrefix   string
	FunctionName     string
	DatasetSelectors map[string]string
}

// Factory creates routing functions against a provisioning collaborator.
type Factory struct {
	prov   provision.Provisioner
	logger *slog.Logger
}

// NewFactory creates a router factory.
func NewFactory(prov provision.Provisioner, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{prov: prov, logger: logger}
}

// Create binds the router function, applies its environment bindings,
// registers it as principal for each grant in the catalog, and authorizes
// the event bus service to invoke it. Provisioning failures are fatal and
// surfaced unchanged; this layer is declarative, not executed at request
// time, so nothing is retried.
func (f *Factory) Create(ctx context.Context, env Env, grantFor func(types.RouterRef) []types.PermissionGrant) (types.RouterRef, error) {
	ref, err := f.prov.BindFunction(ctx, env.FunctionName)
	if err != nil {
		metrics.ProvisioningFailures.Add(1)
		return types.RouterRef{}, fmt.Errorf("binding router function %q: %w", env.FunctionName, err)
	}

	bindings := map[string]string{
		"APP":             env.App,
		"ORG":             env.Org,
		"ENV":             env.Environment,
		"RESOURCE_PREFIX": env.ResourcePrefix,
	}
	if len(env.DatasetSelectors) > 0 {
		raw, err := json.Marshal(env.DatasetSelectors)
		if err != nil {
			return types.RouterRef{}, fmt.Errorf("marshaling dataset selectors: %w", err)
		}
		bindings["DATASET_SELECTORS"] = string(raw)
	}
	if err := f.prov.SetEnvironment(ctx, ref, bindings); err != nil {
		metrics.ProvisioningFailures.Add(1)
		return types.RouterRef{}, fmt.Errorf("setting router environment: %w", err)
	}

	for _, grant := range grantFor(ref) {
		if err := f.prov.ApplyGrant(ctx, grant); err != nil {
			metrics.ProvisioningFailures.Add(1)
			return types.RouterRef{}, fmt.Errorf("applying %s grant on %q: %w", grant.Capability, grant.Scope, err)
		}
	}

	if err := f.prov.AllowInvoke(ctx, ref, InvokingService); err != nil {
		metrics.ProvisioningFailures.Add(1)
		return types.RouterRef{}, fmt.Errorf("authorizing %s to invoke router: %w", InvokingService, err)
	}

	f.logger.Info("router created", "function", ref.Name, "app", env.App, "env", env.Environment)
	return ref, nil
}
