package spec

type driverSection struct {
	Driver string `yaml:"driver"`
	Config any    `yaml:"config"`
}

type debugSection struct {
	PrintCounter  bool `yaml:"print_counter"`
	ValueMaxBytes int  `yaml:"value_max_bytes"`
	MemoizeAll    bool `yaml:"memoize_all"`
}

// TransformSpec is one entry of the ordered transform list.
type TransformSpec struct {
	Name    string         `yaml:"name"`
	Type    string         `yaml:"type"` // group, memoize, no_output, multiplex, trigger, prefix, serverside, instrument
	Options map[string]any `yaml:"options"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	// Ordered; the first entry rewrites first and its wrapper runs innermost.
	Transforms []TransformSpec `yaml:"transforms"`

	Dispatch driverSection `yaml:"dispatch"`
	Cache    driverSection `yaml:"cache"`
	Emitter  driverSection `yaml:"emitter"`
	Debug    debugSection  `yaml:"debug"`
}
