package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/ulyssesdeck/internal/config"
	"git.home.luguber.info/inful/ulyssesdeck/internal/deck"
	"git.home.luguber.info/inful/ulyssesdeck/internal/flatten"
	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/ulyssesdeck/internal/manifest"
	"git.home.luguber.info/inful/ulyssesdeck/internal/metrics"
	"git.home.luguber.info/inful/ulyssesdeck/internal/sheet"
	"git.home.luguber.info/inful/ulyssesdeck/internal/tags"
)

// Global carries state shared by all subcommands.
type Global struct {
	Stdout io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: ulyssesdeck.yaml if present)" env:"ULYSSESDECK_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Watch   WatchCmd   `cmd:"" default:"withargs" help:"Build the deck and rebuild it whenever the tree changes"`
	Build   BuildCmd   `cmd:"" help:"Build the deck once"`
	Outline OutlineCmd `cmd:"" help:"Print the fragments of the deck in order"`
	Check   CheckCmd   `cmd:"" help:"Report local links and images in the deck that do not exist"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; sets up a default logger until the
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// ConfigPath returns the configuration path and whether it was named explicitly.
func (c *CLI) ConfigPath() (string, bool) {
	if c.Config == "" {
		return config.DefaultConfigFile, false
	}
	return c.Config, true
}

// LoadConfig loads the configuration and installs the configured logger.
func (c *CLI) LoadConfig() (*config.Config, *slog.Logger, error) {
	path, explicit := c.ConfigPath()
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Logging.NewLogger(os.Stderr, c.Verbose)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// DirArg is the positional tree root shared by the deck commands.
type DirArg struct {
	Dir string `arg:"" optional:"" default:"." help:"Directory to read (default: current directory)" type:"path"`
}

// pipeline holds the components of one configured deck build.
type pipeline struct {
	cfg      *config.Config
	root     string
	workDir  string
	writer   *deck.Writer
	builder  *deck.Builder
	recorder metrics.Recorder
	registry *prom.Registry
}

// newPipeline wires manifest reader, resolver, flattener and builder for dir.
// The deck is written to the working directory; withWriter=false builds
// without writing.
func newPipeline(cfg *config.Config, dir string, withWriter bool, logger *slog.Logger) (*pipeline, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, ferrors.ValidationError("invalid directory").WithContext("dir", dir).Build()
	}
	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		return nil, ferrors.NotFoundError("directory not found").WithContext("dir", root).Build()
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to determine working directory").Build()
	}

	p := &pipeline{cfg: cfg, root: root, workDir: wd, recorder: metrics.NoopRecorder{}}
	if cfg.Metrics.Enabled {
		p.registry = prom.NewRegistry()
		p.recorder = metrics.NewPrometheusRecorder(p.registry)
	}

	resolver, err := sheet.NewResolver(sheet.Options{
		OutputName: cfg.Output,
		BundleText: cfg.BundleText,
		AssetsDir:  cfg.AssetsDir,
		HiddenTag:  cfg.Hidden.Tag,
		LinkBase:   wd,
		Tags:       tags.NewXattr(cfg.Hidden.Attribute),
	})
	if err != nil {
		return nil, err
	}
	fl := flatten.New(manifest.NewReader(cfg.ManifestName), resolver, flatten.Options{
		Logger:   logger,
		Recorder: p.recorder,
	})

	if withWriter {
		p.writer, err = deck.NewWriter(filepath.Join(wd, cfg.Output))
		if err != nil {
			return nil, err
		}
	}
	p.builder = deck.NewBuilder(root, fl, p.writer, deck.BuilderOptions{
		Separator:  cfg.Separator,
		WriteRetry: cfg.WriteRetryPolicy(),
		Recorder:   p.recorder,
		Logger:     logger,
	})
	return p, nil
}
