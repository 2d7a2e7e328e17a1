package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MSTRANSFORM_DATA_DIR.
const EnvPrefix = "MSTRANSFORM"

// Config holds settings shared by the server and the CLI.
type Config struct {
	DataDir  string `mapstructure:"data-dir"`
	Bind     string `mapstructure:"bind"`
	LogLevel string `mapstructure:"log-level"`
	Workers  int    `mapstructure:"workers"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("data-dir", "data")
	v.SetDefault("bind", ":8080")
	v.SetDefault("log-level", "info")
	v.SetDefault("workers", 0)
}

// Load resolves configuration from, lowest precedence first: defaults, the
// optional file at path (TOML, YAML or JSON by extension), MSTRANSFORM_*
// environment variables, and flags that were explicitly set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must be >= 0, got %d", cfg.Workers)
	}
	return cfg, nil
}
