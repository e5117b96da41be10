package core

// StoreConfig selects and parameterises a table store backend.
// Params are backend specific and decoded by the backend with mapstructure.
type StoreConfig struct {
	Type   string         `koanf:"type" json:"type" yaml:"type"`
	Params map[string]any `koanf:"params" json:"params,omitempty" yaml:"params,omitempty"`
}
