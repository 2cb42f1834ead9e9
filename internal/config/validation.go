package config

import (
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/ulyssesdeck/internal/foundation"
	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/ulyssesdeck/internal/retry"
)

var backoffModes = foundation.NewEnum("write_retry.backoff", retry.ModeFixed,
	retry.ModeFixed, retry.ModeLinear, retry.ModeExponential)

// Validate checks the configuration for values the rebuild pipeline cannot work with.
func Validate(cfg *Config) error {
	if cfg.Output != filepath.Base(cfg.Output) {
		return ferrors.ValidationError("output must be a bare filename").
			WithContext("output", cfg.Output).
			Build()
	}
	if !strings.HasSuffix(cfg.Output, cfg.FragmentExt) {
		return ferrors.ValidationError("output must end with the fragment extension").
			WithContext("output", cfg.Output).
			WithContext("fragment_ext", cfg.FragmentExt).
			Build()
	}
	if cfg.Separator == "" {
		return ferrors.ValidationError("separator cannot be empty").Build()
	}
	if d, err := time.ParseDuration(cfg.Cooldown); err != nil || d <= 0 {
		return ferrors.ValidationError("cooldown must be a positive duration").
			WithContext("cooldown", cfg.Cooldown).
			Build()
	}
	if cfg.ResyncInterval != "" {
		if d, err := time.ParseDuration(cfg.ResyncInterval); err != nil || d < 0 {
			return ferrors.ValidationError("resync_interval must be a non-negative duration").
				WithContext("resync_interval", cfg.ResyncInterval).
				Build()
		}
	}
	if _, err := backoffModes.Parse(cfg.WriteRetry.Backoff); err != nil {
		return err
	}
	if _, err := logFormats.Parse(cfg.Logging.Format); err != nil {
		return err
	}
	for _, f := range []struct{ key, raw string }{
		{"write_retry.initial_delay", cfg.WriteRetry.InitialDelay},
		{"write_retry.max_delay", cfg.WriteRetry.MaxDelay},
	} {
		if d, err := time.ParseDuration(f.raw); err != nil || d <= 0 {
			return ferrors.ValidationError(f.key+" must be a positive duration").
				WithContext(f.key, f.raw).
				Build()
		}
	}
	if cfg.ManifestName == "" || cfg.BundleText == "" {
		return ferrors.ValidationError("manifest_name and bundle_text are required").Build()
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return ferrors.ValidationError("metrics.addr is required when metrics are enabled").Build()
	}
	return nil
}

// CooldownDuration returns the parsed cooldown. Callers must have validated cfg.
func (c *Config) CooldownDuration() time.Duration {
	d, err := time.ParseDuration(c.Cooldown)
	if err != nil {
		return time.Second
	}
	return d
}

// ResyncDuration returns the parsed resync interval; zero disables resync.
func (c *Config) ResyncDuration() time.Duration {
	if c.ResyncInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.ResyncInterval)
	if err != nil {
		return 0
	}
	return d
}

// WriteRetryPolicy returns the retry policy for deck writes. Without a
// positive max_retries the policy writes once.
func (c *Config) WriteRetryPolicy() retry.Policy {
	if c.WriteRetry.MaxRetries <= 0 {
		return retry.Policy{}
	}
	initial, _ := time.ParseDuration(c.WriteRetry.InitialDelay)
	maxDelay, _ := time.ParseDuration(c.WriteRetry.MaxDelay)
	return retry.NewPolicy(backoffModes.Normalize(c.WriteRetry.Backoff), initial, maxDelay, c.WriteRetry.MaxRetries)
}
