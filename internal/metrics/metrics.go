// Package metrics exposes assembly counters via expvar.
package metrics

import "expvar"

var (
	StagesAssembled      = expvar.NewInt("stages_assembled")
	RulesCreated         = expvar.NewInt("rules_created")
	DatasetsRegistered   = expvar.NewInt("datasets_registered")
	ProvisioningFailures = expvar.NewInt("provisioning_failures")
	CallbacksSent        = expvar.NewInt("callbacks_sent")
	CallbacksFailed      = expvar.NewInt("callbacks_failed")
	EventsRouted         = expvar.NewInt("events_routed")
	EventsUnroutable     = expvar.NewInt("events_unroutable")
)
