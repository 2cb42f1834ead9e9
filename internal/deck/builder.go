package deck

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/ulyssesdeck/internal/logfields"
	"git.home.luguber.info/inful/ulyssesdeck/internal/metrics"
	"git.home.luguber.info/inful/ulyssesdeck/internal/retry"
	"git.home.luguber.info/inful/ulyssesdeck/internal/sheet"
)

// Flattener produces the ordered fragments below a root directory.
type Flattener interface {
	Flatten(ctx context.Context, dir string) ([]sheet.Fragment, error)
}

// Deck is an assembled, unwritten deck.
type Deck struct {
	Fragments []sheet.Fragment
	Text      string
	Slides    int
}

// Result describes one completed flatten-and-write pass.
type Result struct {
	ID          string
	Output      string
	Slides      int
	Fragments   int
	Duration    time.Duration
	CompletedAt time.Time
}

// Builder runs flatten-and-write passes for one root directory.
type Builder struct {
	root      string
	flattener Flattener
	writer    *Writer
	separator string
	retry     retry.Policy
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	Separator string
	// WriteRetry governs retries of a failed write. The zero value writes once.
	WriteRetry retry.Policy
	Recorder   metrics.Recorder
	Logger     *slog.Logger
}

// NewBuilder creates a Builder. writer may be nil for builders that only assemble.
func NewBuilder(root string, flattener Flattener, writer *Writer, opts BuilderOptions) *Builder {
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Builder{
		root:      root,
		flattener: flattener,
		writer:    writer,
		separator: opts.Separator,
		retry:     opts.WriteRetry,
		recorder:  metrics.OrNoop(opts.Recorder),
		logger:    opts.Logger,
	}
}

// Root returns the directory the builder flattens.
func (b *Builder) Root() string { return b.root }

// Assemble flattens the tree and joins it without writing anything.
func (b *Builder) Assemble(ctx context.Context) (Deck, error) {
	frags, err := b.flattener.Flatten(ctx, b.root)
	if err != nil {
		return Deck{}, err
	}
	contents := make([]string, len(frags))
	for i, f := range frags {
		contents[i] = f.Content
	}
	text := Join(contents, b.separator)
	return Deck{Fragments: frags, Text: text, Slides: CountSlides(text)}, nil
}

// Build runs one pass: flatten, join, write. Flatten faults and write failures
// are returned; the caller decides whether to keep running.
func (b *Builder) Build(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{ID: uuid.NewString()}
	if b.writer != nil {
		res.Output = b.writer.Path()
	}

	d, err := b.Assemble(ctx)
	if err != nil {
		b.recorder.IncRebuildOutcome(metrics.OutcomeFailed)
		b.logger.Error("Flatten failed",
			logfields.RebuildID(res.ID),
			logfields.Dir(b.root),
			logfields.Error(err))
		return res, err
	}
	res.Slides = d.Slides
	res.Fragments = len(d.Fragments)

	if b.writer != nil {
		err := b.retry.Do(ctx, func() error { return b.writer.Write(d.Text) }, func(attempt int, err error) {
			b.logger.Warn("Retrying deck write",
				logfields.RebuildID(res.ID),
				slog.Int("attempt", attempt),
				logfields.Error(err))
		})
		if err != nil {
			b.recorder.IncRebuildOutcome(metrics.OutcomeWriteFailed)
			return res, err
		}
	}

	res.Duration = time.Since(start)
	res.CompletedAt = time.Now()
	b.recorder.ObserveRebuildDuration(res.Duration)
	b.recorder.IncRebuildOutcome(metrics.OutcomeSuccess)
	b.recorder.SetDeckSize(res.Slides, res.Fragments)
	b.logger.Debug("Rebuild pass complete",
		logfields.RebuildID(res.ID),
		logfields.Fragments(res.Fragments),
		logfields.Slides(res.Slides),
		logfields.Duration(res.Duration))
	return res, nil
}
