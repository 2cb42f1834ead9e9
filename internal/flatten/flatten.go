// Package flatten walks a Ulysses group tree into one ordered fragment sequence.
//
// Ordering authority is the manifest of each directory: its members first, in
// manifest order, then the flattened child directories in childOrder. Files on
// disk that no manifest mentions never appear. Members and children are resolved
// concurrently and reassembled by position.
package flatten

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/ulyssesdeck/internal/logfields"
	"git.home.luguber.info/inful/ulyssesdeck/internal/manifest"
	"git.home.luguber.info/inful/ulyssesdeck/internal/metrics"
	"git.home.luguber.info/inful/ulyssesdeck/internal/sheet"
)

// ManifestReader reads the ordering manifest of a directory.
type ManifestReader interface {
	Read(dir string) (*manifest.Manifest, error)
}

// MemberResolver resolves one manifest member.
type MemberResolver interface {
	Resolve(dir, name string) (sheet.Fragment, error)
}

// Options tunes a Flattener.
type Options struct {
	Logger   *slog.Logger
	Recorder metrics.Recorder
	// MaxReads bounds concurrent member reads across the whole walk.
	MaxReads int
}

// Flattener is safe for concurrent use, though the scheduler only ever runs one pass.
type Flattener struct {
	manifests ManifestReader
	resolver  MemberResolver
	logger    *slog.Logger
	recorder  metrics.Recorder
	reads     *semaphore.Weighted
}

// New creates a Flattener.
func New(manifests ManifestReader, resolver MemberResolver, opts Options) *Flattener {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxReads <= 0 {
		opts.MaxReads = 4 * runtime.NumCPU()
	}
	return &Flattener{
		manifests: manifests,
		resolver:  resolver,
		logger:    opts.Logger,
		recorder:  metrics.OrNoop(opts.Recorder),
		reads:     semaphore.NewWeighted(int64(opts.MaxReads)),
	}
}

// Flatten returns the ordered fragments of dir and everything below it.
//
// Missing members, hidden sheets, unreadable sheets, malformed bundles and
// malformed manifests only drop their own contribution. The returned error is
// reserved for unexpected faults, which abort the pass.
//
// A directory that is already being flattened further up the walk (a "." or
// ".." child, or a symlink back to an ancestor) contributes nothing.
func (f *Flattener) Flatten(ctx context.Context, dir string) ([]sheet.Fragment, error) {
	return f.flatten(ctx, dir, nil)
}

// ancestor is one link of the chain of directories above the current one.
type ancestor struct {
	dir    string
	parent *ancestor
}

func (a *ancestor) contains(dir string) bool {
	for ; a != nil; a = a.parent {
		if a.dir == dir {
			return true
		}
	}
	return false
}

func (f *Flattener) flatten(ctx context.Context, dir string, above *ancestor) ([]sheet.Fragment, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		f.logger.Debug("Group directory not resolvable", logfields.Dir(dir), logfields.Error(err))
		return []sheet.Fragment{}, nil
	}
	if abs, err := filepath.Abs(resolved); err == nil {
		resolved = abs
	}
	if above.contains(resolved) {
		f.logger.Warn("Ignoring group that loops back to an ancestor", logfields.Dir(dir))
		f.recorder.IncSkipped(metrics.SkipCycle)
		return []sheet.Fragment{}, nil
	}
	here := &ancestor{dir: resolved, parent: above}

	if _, err := os.ReadDir(dir); err != nil {
		f.logger.Debug("Group directory not listable", logfields.Dir(dir), logfields.Error(err))
		return []sheet.Fragment{}, nil
	}

	m, err := f.manifests.Read(dir)
	switch {
	case errors.Is(err, manifest.ErrNotFound):
		return []sheet.Fragment{}, nil
	case ferrors.HasCategory(err, ferrors.CategoryManifest):
		f.logger.Warn("Ignoring group with unusable manifest", logfields.Dir(dir), logfields.Error(err))
		f.recorder.IncSkipped(metrics.SkipMalformedManifest)
		return []sheet.Fragment{}, nil
	case err != nil:
		return nil, err
	}

	members := make([]*sheet.Fragment, len(m.Members))
	children := make([][]sheet.Fragment, len(m.ChildOrder))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range m.Members {
		g.Go(func() (err error) {
			defer recoverFault(&err, dir, name)
			frag, ok, err := f.resolve(gctx, dir, name)
			if ok {
				members[i] = &frag
			}
			return err
		})
	}
	for i, name := range m.ChildOrder {
		if !sheet.ValidName(name) {
			f.logger.Warn("Ignoring child group with invalid name", logfields.Dir(dir), logfields.Member(name))
			f.recorder.IncSkipped(metrics.SkipInvalidName)
			continue
		}
		g.Go(func() (err error) {
			defer recoverFault(&err, dir, name)
			seq, err := f.flatten(gctx, filepath.Join(dir, name), here)
			children[i] = seq
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]sheet.Fragment, 0, len(members))
	for _, frag := range members {
		if frag != nil {
			out = append(out, *frag)
		}
	}
	for _, seq := range children {
		out = append(out, seq...)
	}
	return out, nil
}

// resolve reads one member. ok is false when the member contributes nothing.
func (f *Flattener) resolve(ctx context.Context, dir, name string) (sheet.Fragment, bool, error) {
	if err := f.reads.Acquire(ctx, 1); err != nil {
		return sheet.Fragment{}, false, err
	}
	defer f.reads.Release(1)

	frag, err := f.resolver.Resolve(dir, name)
	if err == nil {
		return frag, true, nil
	}

	attrs := []any{logfields.Dir(dir), logfields.Member(name), logfields.Error(err)}
	switch {
	case errors.Is(err, sheet.ErrSelf):
		f.recorder.IncSkipped(metrics.SkipSelf)
	case errors.Is(err, sheet.ErrMissing):
		f.recorder.IncSkipped(metrics.SkipMissing)
		f.logger.Debug("Manifest references missing sheet", attrs...)
	case errors.Is(err, sheet.ErrHidden):
		f.recorder.IncSkipped(metrics.SkipHidden)
		f.logger.Debug("Skipping hidden sheet", attrs...)
	case errors.Is(err, sheet.ErrUnreadable):
		f.recorder.IncSkipped(metrics.SkipUnreadable)
		f.logger.Debug("Skipping unreadable sheet", attrs...)
	case errors.Is(err, sheet.ErrInvalidName):
		f.recorder.IncSkipped(metrics.SkipInvalidName)
		f.logger.Warn("Skipping member with invalid name", attrs...)
	case errors.Is(err, sheet.ErrMalformedBundle):
		f.recorder.IncSkipped(metrics.SkipMalformedBundle)
		f.logger.Warn("Skipping bundle without text", attrs...)
	default:
		return sheet.Fragment{}, false, err
	}
	return sheet.Fragment{}, false, nil
}

func recoverFault(err *error, dir, name string) {
	if r := recover(); r != nil {
		*err = ferrors.InternalError("panic while flattening").
			WithContext("dir", dir).
			WithContext("member", name).
			WithContext("panic", fmt.Sprint(r)).
			Build()
	}
}
