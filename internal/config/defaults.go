package config

// Default values. They mirror the layout Ulysses writes for an external folder.
const (
	DefaultOutput       = "deck.md"
	DefaultSeparator    = "\n\n---\n\n"
	DefaultCooldown     = "1s"
	DefaultManifestName = ".Ulysses-Group.plist"
	DefaultFragmentExt  = ".md"
	DefaultBundleText   = "text.md"
	DefaultAssetsDir    = "assets"
	DefaultHiddenAttr   = "com.apple.metadata:_kMDItemUserTags"
	DefaultHiddenTag    = "hide"
	DefaultMetricsAddr  = "127.0.0.1:9464"
	DefaultNotifySubj   = "ulyssesdeck.deck.updated"

	DefaultWriteBackoff      = "fixed"
	DefaultWriteInitialDelay = "200ms"
	DefaultWriteMaxDelay     = "1s"
)

// Default returns a fully populated configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.Separator == "" {
		cfg.Separator = DefaultSeparator
	}
	if cfg.Cooldown == "" {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.ManifestName == "" {
		cfg.ManifestName = DefaultManifestName
	}
	if cfg.FragmentExt == "" {
		cfg.FragmentExt = DefaultFragmentExt
	}
	if cfg.BundleText == "" {
		cfg.BundleText = DefaultBundleText
	}
	if cfg.AssetsDir == "" {
		cfg.AssetsDir = DefaultAssetsDir
	}
	if cfg.Hidden.Attribute == "" {
		cfg.Hidden.Attribute = DefaultHiddenAttr
	}
	if cfg.Hidden.Tag == "" {
		cfg.Hidden.Tag = DefaultHiddenTag
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = string(LogLevelInfo)
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = string(LogFormatText)
	}
	if cfg.WriteRetry.Backoff == "" {
		cfg.WriteRetry.Backoff = DefaultWriteBackoff
	}
	if cfg.WriteRetry.InitialDelay == "" {
		cfg.WriteRetry.InitialDelay = DefaultWriteInitialDelay
	}
	if cfg.WriteRetry.MaxDelay == "" {
		cfg.WriteRetry.MaxDelay = DefaultWriteMaxDelay
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubj
	}
}
