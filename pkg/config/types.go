package config

// Config is the content of the ceres configuration file.
type Config struct {
	// DefaultProfile names the profile used when the "default" profile is selected.
	DefaultProfile string `toml:"default_profile" yaml:"default_profile"`

	// Logging configures the process logger.
	Logging LoggingConfig `toml:"logging" yaml:"logging"`

	// Telemetry configures tracing and metrics.
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`

	// Policy configures the guard evaluated before instance mutations.
	Policy PolicyConfig `toml:"policy" yaml:"policy"`

	// Profiles maps profile names to profiles.
	Profiles map[string]Profile `toml:"profiles" yaml:"profiles" validate:"required,min=1,dive"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`

	// Format is the log format (console, json).
	Format string `toml:"format" yaml:"format" validate:"omitempty,oneof=console json"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	Tracing TracingConfig `toml:"tracing" yaml:"tracing"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	Enabled bool `toml:"enabled" yaml:"enabled"`

	// Exporter is the span exporter (stdout, otlp, none).
	Exporter string `toml:"exporter" yaml:"exporter" validate:"omitempty,oneof=stdout otlp none"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `toml:"endpoint" yaml:"endpoint" validate:"required_if=Exporter otlp"`

	// Insecure disables TLS for the OTLP exporter.
	Insecure bool `toml:"insecure" yaml:"insecure"`

	// SamplingRate is the trace sampling rate (0.0 to 1.0).
	SamplingRate float64 `toml:"sampling_rate" yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Textfile is a path the metrics are written to on exit, in the format read by
	// the node exporter textfile collector. Empty disables metrics output.
	Textfile string `toml:"textfile" yaml:"textfile"`
}

// Profile is a named configuration bundle.
type Profile struct {
	// Name is the key of the profile in the configuration file.
	Name string `toml:"-" yaml:"-"`

	// LocalBaseDir is the root directory for resource discovery.
	LocalBaseDir string `toml:"local_base_dir" yaml:"local_base_dir"`

	// SSHUser is the user for ssh connections to instances of this profile.
	SSHUser string `toml:"ssh_user" yaml:"ssh_user"`

	// SSHKeyFile is the private key for ssh connections. When empty the ssh agent
	// is used if one is running, else the default keys in ~/.ssh.
	SSHKeyFile string `toml:"ssh_key_file" yaml:"ssh_key_file"`

	// SSHKnownHosts is the known_hosts file used to verify host keys.
	// Defaults to ~/.ssh/known_hosts.
	SSHKnownHosts string `toml:"ssh_known_hosts" yaml:"ssh_known_hosts"`

	// SSHPort is the ssh port of the instances. Defaults to 22.
	SSHPort int `toml:"ssh_port" yaml:"ssh_port" validate:"omitempty,min=1,max=65535"`

	// SSHBastion is a jump host, as host or host:port, used to reach instances.
	SSHBastion string `toml:"ssh_bastion" yaml:"ssh_bastion"`

	// SSHPublicIP connects to the public instead of the private address.
	SSHPublicIP bool `toml:"ssh_public_ip" yaml:"ssh_public_ip"`

	// Provider configures the cloud provider of this profile.
	Provider *ProviderConfig `toml:"provider" yaml:"provider"`
}

// ProviderConfig selects and configures a provider variant.
type ProviderConfig struct {
	// Type is the provider variant.
	Type string `toml:"type" yaml:"type" validate:"required,oneof=aws"`

	// Region is the provider region, e.g. "eu-central-1".
	Region string `toml:"region" yaml:"region" validate:"required"`

	// AccessKeyID and SecretAccessKey are static credentials. When empty the
	// provider's default credential chain is used.
	AccessKeyID     string `toml:"access_key_id" yaml:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `toml:"secret_access_key" yaml:"secret_access_key" validate:"required_with=AccessKeyID"`

	// SharedProfile selects a profile of the provider's shared configuration files.
	SharedProfile string `toml:"shared_profile" yaml:"shared_profile"`

	// RoleARN is a role assumed with the resolved credentials.
	RoleARN string `toml:"role_arn" yaml:"role_arn"`
}

// PolicyConfig configures Rego policies guarding instance mutations.
type PolicyConfig struct {
	// Paths are .rego files or directories of them.
	Paths []string `toml:"paths" yaml:"paths"`

	// DisableBuiltin turns off the built-in policies.
	DisableBuiltin bool `toml:"disable_builtin" yaml:"disable_builtin"`
}
