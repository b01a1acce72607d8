package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/ceres/pkg/engine"
)

// DefaultFileName is the configuration file name in the home directory.
const DefaultFileName = ".ceres.conf"

// EnvConfigPath overrides the default configuration file path.
const EnvConfigPath = "CERES_CONFIG"

// DefaultPath returns the configuration file path used when none is given.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

// Load reads, decodes and validates the configuration file at path.
// Files ending in .yaml or .yml are decoded as YAML, everything else as TOML.
func Load(path string) (*Config, error) {
	path = expandHome(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engine.Wrap(err, engine.KindFailedToLoadConfig, path)
	}

	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, engine.Wrap(err, engine.KindFailedToLoadConfig, path)
	}

	log.Debug().
		Str("path", path).
		Int("profiles", len(cfg.Profiles)).
		Msg("Loaded configuration")

	return cfg, nil
}

// Format is a configuration file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Parse decodes and validates configuration data.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, err
		}
	}

	for name, p := range cfg.Profiles {
		p.Name = name
		p.LocalBaseDir = expandHome(p.LocalBaseDir)
		p.SSHKeyFile = expandHome(p.SSHKeyFile)
		p.SSHKnownHosts = expandHome(p.SSHKnownHosts)
		cfg.Profiles[name] = p
	}

	for i, path := range cfg.Policy.Paths {
		cfg.Policy.Paths[i] = expandHome(path)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return engine.Wrap(err, engine.KindInvalidConfig, "")
	}
	if cfg.DefaultProfile != "" {
		if _, ok := cfg.Profiles[cfg.DefaultProfile]; !ok {
			return engine.Wrap(engine.NewError(engine.KindNoSuchProfile, cfg.DefaultProfile),
				engine.KindInvalidConfig, "")
		}
	}
	return nil
}

// Profile resolves a profile by name. The name "default" resolves to the
// configured default profile, or to a profile literally named "default" when no
// default is configured.
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" || name == engine.DefaultProfile {
		if c.DefaultProfile != "" {
			name = c.DefaultProfile
		} else {
			name = engine.DefaultProfile
		}
	}

	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, engine.NewError(engine.KindNoSuchProfile, name)
	}
	return p, nil
}

// ProfileNames returns the configured profile names in no particular order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	return names
}

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
