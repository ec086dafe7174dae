package types

// CallbackConfig configures the optional post-registration HTTP callback.
type CallbackConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Timeout  int    `yaml:"timeout,omitempty" json:"timeout,omitempty"` // seconds
}

// ProjectConfig represents the top-level lakeline.yaml configuration. All
// fields are static strings resolved before assembly runs; no
// environment-variable or CLI parsing happens inside the core.
type ProjectConfig struct {
	Environment     string          `yaml:"environment"`
	Region          string          `yaml:"region,omitempty"`
	ResourcePrefix  string          `yaml:"resourcePrefix"`
	Team            string          `yaml:"team"`
	App             string          `yaml:"app"`
	Org             string          `yaml:"org"`
	Runtime         string          `yaml:"runtime,omitempty"`
	PipelineKind    string          `yaml:"pipelineKind,omitempty"` // default "standard"
	Bus             string          `yaml:"bus,omitempty"`          // event bus name, default "default"
	RawBucket       string          `yaml:"rawBucket"`
	StageBucket     string          `yaml:"stageBucket"`
	RouterFunction  string          `yaml:"routerFunction"`
	RouterBFunction string          `yaml:"routerBFunction,omitempty"` // default "<routerFunction>-b"
	Datasets        []DatasetConfig `yaml:"datasets,omitempty"`
	Callback        *CallbackConfig `yaml:"callback,omitempty"`
}
