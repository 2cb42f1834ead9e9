package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/ulyssesdeck/internal/deck"
	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/ulyssesdeck/internal/logfields"
	"git.home.luguber.info/inful/ulyssesdeck/internal/metrics"
)

// Builder runs one rebuild pass.
type Builder interface {
	Build(ctx context.Context) (deck.Result, error)
}

// Options configures a Daemon.
type Options struct {
	Root       string
	Cooldown   time.Duration
	Resync     time.Duration
	Classifier Classifier
	Notifier   Notifier
	Recorder   metrics.Recorder
	Logger     *slog.Logger
}

// Daemon watches a tree and keeps the deck in sync with it.
type Daemon struct {
	opts      Options
	builder   Builder
	scheduler *Scheduler
	recorder  metrics.Recorder
	notifier  Notifier
	logger    *slog.Logger

	newWatcher func(root string, logger *slog.Logger) (*Watcher, error)
}

// New wires a Daemon around builder.
func New(builder Builder, opts Options) (*Daemon, error) {
	if builder == nil {
		return nil, ferrors.ValidationError("builder is required").Build()
	}
	d := &Daemon{
		opts:     opts,
		builder:  builder,
		recorder: metrics.OrNoop(opts.Recorder),
		notifier: opts.Notifier,
		logger:   opts.Logger,

		newWatcher: NewWatcher,
	}
	if d.notifier == nil {
		d.notifier = NoopNotifier{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	s, err := NewScheduler(SchedulerConfig{
		Cooldown:   opts.Cooldown,
		Pass:       builder.Build,
		OnComplete: d.complete,
	})
	if err != nil {
		return nil, err
	}
	d.scheduler = s
	return d, nil
}

// Scheduler exposes the rebuild scheduler.
func (d *Daemon) Scheduler() *Scheduler { return d.scheduler }

// Run builds once, then watches until ctx is done or the watcher stops.
// The scheduler is stopped and waited for on every return path; a pass that
// has already started still runs to completion.
func (d *Daemon) Run(ctx context.Context) (err error) {
	w, err := d.newWatcher(d.opts.Root, d.logger)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "failed to start watcher").
			WithContext("root", d.opts.Root).
			Build()
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- d.scheduler.Run(runCtx) }()
	defer func() {
		cancel()
		if serr := <-done; err == nil {
			err = serr
		}
	}()
	<-d.scheduler.Ready()

	d.Request("startup")

	if d.opts.Resync > 0 {
		r, rerr := StartResync(d.opts.Resync, func() { d.Request("resync") }, d.logger)
		if rerr != nil {
			_ = w.Close()
			return ferrors.WrapError(rerr, ferrors.CategoryDaemon, "failed to start resync").Build()
		}
		defer func() { _ = r.Stop() }()
	}

	d.logger.Info("Watching for changes", logfields.Dir(d.opts.Root))
	if werr := w.Run(runCtx, d.HandlePath); werr != nil {
		return fmt.Errorf("watch: %w", werr)
	}
	if ctx.Err() == nil {
		d.logger.Warn("Watcher stopped", logfields.Dir(d.opts.Root))
	}
	return nil
}

// HandlePath classifies a changed path and requests a rebuild when relevant.
func (d *Daemon) HandlePath(path string) {
	change, ok := d.opts.Classifier.Classify(path)
	if !ok {
		return
	}
	d.recorder.IncChange(string(change.Kind))
	d.logger.Info(change.Message(), logfields.Path(change.Path))
	d.Request(string(change.Kind))
}

// Request asks for a rebuild.
func (d *Daemon) Request(reason string) {
	d.logger.Debug("Rebuild requested", logfields.Reason(reason))
	d.scheduler.Request()
}

func (d *Daemon) complete(res deck.Result, err error, absorbed int) {
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryBuild) {
			d.logger.Warn("Failed to write deck",
				logfields.RebuildID(res.ID),
				logfields.Output(res.Output),
				logfields.Error(err))
			return
		}
		d.logger.Error("Rebuild failed", logfields.RebuildID(res.ID), logfields.Error(err))
		return
	}
	d.logger.Info("Deck is up to date",
		logfields.Output(res.Output),
		logfields.Slides(res.Slides),
		logfields.Fragments(res.Fragments),
		slog.Int("requests", absorbed))
	if err := d.notifier.Notify(context.Background(), res); err != nil {
		d.logger.Warn("Failed to publish deck update", logfields.RebuildID(res.ID), logfields.Error(err))
	}
}
