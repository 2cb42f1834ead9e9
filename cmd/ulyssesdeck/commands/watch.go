package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/ulyssesdeck/internal/daemon"
	"git.home.luguber.info/inful/ulyssesdeck/internal/logfields"
	"git.home.luguber.info/inful/ulyssesdeck/internal/metrics"
)

// WatchCmd implements the default 'watch' command.
type WatchCmd struct {
	DirArg `embed:""`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return w.run(ctx, root)
}

func (w *WatchCmd) run(ctx context.Context, root *CLI) error {
	cfg, logger, err := root.LoadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, w.Dir, true, logger)
	if err != nil {
		return err
	}

	var notifier daemon.Notifier = daemon.NoopNotifier{}
	if cfg.Notify.NATSURL != "" {
		n, err := daemon.NewNATSNotifier(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			logger.Warn("Rebuild notifications disabled", logfields.Error(err))
		} else {
			notifier = n
		}
	}
	defer notifier.Close()

	d, err := daemon.New(p.builder, daemon.Options{
		Root:     p.root,
		Cooldown: cfg.CooldownDuration(),
		Resync:   cfg.ResyncDuration(),
		Classifier: daemon.Classifier{
			OutputName:   filepath.Base(p.writer.Path()),
			ManifestName: cfg.ManifestName,
			FragmentExt:  cfg.FragmentExt,
			LabelBase:    p.workDir,
		},
		Notifier: notifier,
		Recorder: p.recorder,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.registry != nil {
		g.Go(func() error { return metrics.Serve(gctx, cfg.Metrics.Addr, p.registry) })
	}
	g.Go(func() error { return d.Run(gctx) })

	logger.Info("Starting deck watcher", logfields.Dir(p.root), logfields.Output(p.writer.Path()),
		slog.String("cooldown", cfg.CooldownDuration().String()))
	return g.Wait()
}
