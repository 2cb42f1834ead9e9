package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ulyssesdeck/internal/deck"
	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
)

type fakeBuilder struct {
	calls atomic.Int64
	err   error
}

func (b *fakeBuilder) Build(context.Context) (deck.Result, error) {
	n := b.calls.Add(1)
	return deck.Result{ID: "r", Output: "deck.md", Slides: int(n), Fragments: 1, CompletedAt: time.Now()}, b.err
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []deck.Result
}

func (n *recordingNotifier) Notify(_ context.Context, res deck.Result) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, res)
	return nil
}

func (n *recordingNotifier) Close() {}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.results)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDaemon_RebuildsOnFragmentChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "intro.md"), []byte("# Intro"), 0o644))

	b := &fakeBuilder{}
	n := &recordingNotifier{}
	logs := &syncBuffer{}
	d, err := New(b, Options{
		Root:       root,
		Cooldown:   50 * time.Millisecond,
		Classifier: testClassifier(root),
		Notifier:   n,
		Logger:     slog.New(slog.NewTextHandler(logs, nil)),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return b.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "intro.md"), []byte("# Changed"), 0o644))
	require.Eventually(t, func() bool { return b.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	sub := filepath.Join(root, "chapter")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	before := b.calls.Load()
	require.NoError(t, os.WriteFile(filepath.Join(sub, "one.md"), []byte("# One"), 0o644))
	require.Eventually(t, func() bool { return b.calls.Load() > before }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.GreaterOrEqual(t, n.count(), 2)
	require.Contains(t, logs.String(), "Contents of slide 'intro' has been changed.")
	require.Contains(t, logs.String(), "Deck is up to date")
}

func TestDaemon_OutputWriteDoesNotRetrigger(t *testing.T) {
	root := t.TempDir()
	b := &fakeBuilder{}
	d, err := New(b, Options{Root: root, Cooldown: 20 * time.Millisecond, Classifier: testClassifier(root)})
	require.NoError(t, err)

	d.HandlePath(filepath.Join(root, "deck.md"))
	d.HandlePath(filepath.Join(root, "notes.txt"))
	require.Equal(t, StateIdle, d.Scheduler().State())

	d.HandlePath(filepath.Join(root, ".Ulysses-Group.plist"))
	require.Equal(t, StateRunning, d.Scheduler().State())
}

func TestDaemon_WriteFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	b := &fakeBuilder{err: ferrors.BuildError("failed to write output").Build()}
	n := &recordingNotifier{}
	d, err := New(b, Options{Root: root, Cooldown: 20 * time.Millisecond, Classifier: testClassifier(root), Notifier: n})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return b.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	d.Request("test")
	require.Eventually(t, func() bool { return b.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Zero(t, n.count())
}

func TestDaemon_MissingRootFails(t *testing.T) {
	d, err := New(&fakeBuilder{}, Options{
		Root:       filepath.Join(t.TempDir(), "absent"),
		Cooldown:   time.Second,
		Classifier: testClassifier(""),
	})
	require.NoError(t, err)

	err = d.Run(t.Context())
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryDaemon))
}

func TestNew_RequiresBuilder(t *testing.T) {
	_, err := New(nil, Options{Cooldown: time.Second})
	require.Error(t, err)
	var ce *ferrors.ClassifiedError
	require.True(t, errors.As(err, &ce))
}

func TestStartResync_RequestsPeriodically(t *testing.T) {
	var calls atomic.Int64
	r, err := StartResync(30*time.Millisecond, func() { calls.Add(1) }, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Stop())
}

func TestNewDeckUpdated_JSON(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(NewDeckUpdated(deck.Result{
		ID: "abc", Output: "/tmp/deck.md", Slides: 7, Fragments: 3, CompletedAt: at,
	}))
	require.NoError(t, err)
	require.JSONEq(t,
		`{"rebuild_id":"abc","output":"/tmp/deck.md","slides":7,"fragments":3,"completed_at":"2026-03-01T12:00:00Z"}`,
		string(data))
}

func TestNewNATSNotifier_ConnectFailure(t *testing.T) {
	_, err := NewNATSNotifier("nats://127.0.0.1:1", "ulyssesdeck.deck.updated")
	require.Error(t, err)
}

func TestDaemon_StopsSchedulerWhenWatcherEnds(t *testing.T) {
	root := t.TempDir()
	b := &fakeBuilder{}
	d, err := New(b, Options{Root: root, Cooldown: 10 * time.Millisecond, Classifier: testClassifier(root)})
	require.NoError(t, err)
	d.newWatcher = func(root string, logger *slog.Logger) (*Watcher, error) {
		w, err := NewWatcher(root, logger)
		if err == nil {
			_ = w.Close()
		}
		return w, err
	}

	done := make(chan error, 1)
	go func() { done <- d.Run(t.Context()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not return after the watcher stopped")
	}

	passes := d.Scheduler().Passes()
	d.Request("late")
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, passes, d.Scheduler().Passes())
}
