package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
)

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = "ulyssesdeck.yaml"

// Config represents the application configuration.
type Config struct {
	// Output is the deck filename, written into the working directory.
	Output         string `yaml:"output"`
	Separator      string `yaml:"separator"`
	Cooldown       string `yaml:"cooldown"`
	ResyncInterval string `yaml:"resync_interval,omitempty"`

	ManifestName string `yaml:"manifest_name"`
	FragmentExt  string `yaml:"fragment_ext"`
	BundleText   string `yaml:"bundle_text"`
	AssetsDir    string `yaml:"assets_dir"`

	Hidden  HiddenConfig  `yaml:"hidden"`
	Logging LoggingConfig `yaml:"logging"`
	WriteRetry WriteRetryConfig `yaml:"write_retry"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// HiddenConfig names the extended attribute holding sheet tags and the tag that hides a sheet.
type HiddenConfig struct {
	Attribute string `yaml:"attribute"`
	Tag       string `yaml:"tag"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// WriteRetryConfig controls retries of a failed deck write within one pass.
// Retries are off unless MaxRetries is set; a failed write is otherwise
// picked up by the next triggered rebuild.
type WriteRetryConfig struct {
	MaxRetries   int    `yaml:"max_retries,omitempty"`
	Backoff      string `yaml:"backoff,omitempty"` // fixed|linear|exponential
	InitialDelay string `yaml:"initial_delay,omitempty"`
	MaxDelay     string `yaml:"max_delay,omitempty"`
}

// NotifyConfig controls rebuild notifications over NATS. Empty NATSURL disables them.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// Load loads configuration from configPath.
//
// A missing file is only an error when explicit is true; otherwise defaults are returned.
// Environment variables (including those from .env files) are expanded in the YAML text.
func Load(configPath string, explicit bool) (*Config, error) {
	loadEnvFiles()

	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err) && !explicit:
		return cfg, nil
	case os.IsNotExist(err):
		return nil, ferrors.ConfigError("configuration file not found").
			WithContext("path", configPath).
			Build()
	case err != nil:
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").
			WithContext("path", configPath).
			Build()
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}

	example := Default()
	example.ResyncInterval = "5m"
	example.Notify.NATSURL = "${ULYSSESDECK_NATS_URL}"

	data, err := yaml.Marshal(example)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal config").Build()
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
