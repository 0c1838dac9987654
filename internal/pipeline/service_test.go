package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"islandbridge/internal/config"
	"islandbridge/internal/model"
	"islandbridge/internal/settings"
	"islandbridge/internal/sink"
	"islandbridge/internal/storage"
	"islandbridge/internal/translate"
	logx "islandbridge/pkg/logx"
)

func newTestService(t *testing.T, mutate func(*config.Config)) (*Service, *sink.Recorder) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Islands.AllowedSources = []string{"com.app", "com.other"}
	cfg.Pipeline.Workers = 1
	cfg.Pipeline.QueueSize = 64
	off := false
	cfg.Pipeline.RateLimit = &off
	if mutate != nil {
		mutate(cfg)
	}

	cache := settings.NewCache(cfg, logx.Nop())
	set := translate.NewSet(nil, nil, logx.Nop())
	rec := &sink.Recorder{}
	svc := New(cache, set, rec, nil, nil, nil, logx.Nop())
	svc.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Stop(ctx)
	})
	return svc, rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testEvent(key, title, text string) model.NotificationEvent {
	return model.NotificationEvent{
		Key:      key,
		SourceID: "com.app",
		Title:    title,
		Text:     text,
	}
}

func TestServicePostsOnce(t *testing.T) {
	t.Parallel()
	svc, rec := newTestService(t, nil)

	if err := svc.OnEvent(testEvent("k1", "Alice", "hello")); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	waitFor(t, "post", func() bool { return len(rec.Posts()) == 1 })

	if got := rec.Posts()[0].ID; got != model.IslandID("k1") {
		t.Fatalf("island id = %d, want %d", got, model.IslandID("k1"))
	}
}

func TestServiceContentDedup(t *testing.T) {
	t.Parallel()
	svc, rec := newTestService(t, nil)

	ev := testEvent("k1", "Alice", "hello")
	if err := svc.OnEvent(ev); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	waitFor(t, "first post", func() bool { return len(rec.Posts()) == 1 })

	// Identical content must not reach the sink again.
	if err := svc.OnEvent(ev); err != nil {
		t.Fatalf("OnEvent repeat: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if got := len(rec.Posts()); got != 1 {
		t.Fatalf("posts = %d, want 1 after duplicate", got)
	}

	// Changed content posts again.
	ev.Text = "hello again"
	if err := svc.OnEvent(ev); err != nil {
		t.Fatalf("OnEvent changed: %v", err)
	}
	waitFor(t, "second post", func() bool { return len(rec.Posts()) == 2 })
}

func TestServiceRemovalIdempotent(t *testing.T) {
	t.Parallel()
	svc, rec := newTestService(t, nil)

	if err := svc.OnEvent(testEvent("k1", "Alice", "hello")); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	waitFor(t, "post", func() bool { return len(rec.Posts()) == 1 })

	svc.OnRemoved("k1")
	svc.OnRemoved("k1")
	waitFor(t, "cancel", func() bool { return len(rec.Cancels()) >= 1 })
	time.Sleep(100 * time.Millisecond)

	if got := len(rec.Cancels()); got != 1 {
		t.Fatalf("cancels = %d, want exactly 1", got)
	}
	if len(svc.Active()) != 0 {
		t.Fatal("table should be empty after removal")
	}
}

func TestServiceDisallowedSourceDropped(t *testing.T) {
	t.Parallel()
	svc, rec := newTestService(t, nil)

	ev := testEvent("k1", "Alice", "hello")
	ev.SourceID = "com.not.allowed"
	if err := svc.OnEvent(ev); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if len(rec.Posts()) != 0 {
		t.Fatal("disallowed source must not post")
	}
}

func TestServiceEvictionCancelsOldIsland(t *testing.T) {
	t.Parallel()
	svc, rec := newTestService(t, func(cfg *config.Config) {
		cfg.Islands.LimitMode = "MOST_RECENT"
	})

	for i := 0; i < model.MaxIslands; i++ {
		ev := testEvent(keyN(i), "t", "b")
		if err := svc.OnEvent(ev); err != nil {
			t.Fatalf("OnEvent %d: %v", i, err)
		}
	}
	waitFor(t, "all posts", func() bool { return len(rec.Posts()) == model.MaxIslands })

	if err := svc.OnEvent(testEvent("overflow", "t", "b")); err != nil {
		t.Fatalf("OnEvent overflow: %v", err)
	}
	waitFor(t, "eviction cancel", func() bool { return len(rec.Cancels()) == 1 })
	waitFor(t, "overflow post", func() bool { return len(rec.Posts()) == model.MaxIslands+1 })

	if got := len(svc.Active()); got != model.MaxIslands {
		t.Fatalf("active = %d, want %d", got, model.MaxIslands)
	}
}

func keyN(i int) string { return "key-" + string(rune('a'+i)) }

func TestServiceSweepExpired(t *testing.T) {
	t.Parallel()
	svc, rec := newTestService(t, func(cfg *config.Config) {
		timeout := "20ms"
		cfg.Islands.Global.Timeout = &timeout
	})

	if err := svc.OnEvent(testEvent("k1", "Alice", "hello")); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	waitFor(t, "post", func() bool { return len(rec.Posts()) == 1 })

	time.Sleep(30 * time.Millisecond)
	if n := svc.SweepExpired(time.Now()); n != 1 {
		t.Fatalf("SweepExpired = %d, want 1", n)
	}
	waitFor(t, "expiry cancel", func() bool { return len(rec.Cancels()) == 1 })
	if len(svc.Active()) != 0 {
		t.Fatal("expired island still tracked")
	}
}

// gateSink parks every Post until released so a test can hold a worker
// mid-flight.
type gateSink struct {
	*sink.Recorder
	started chan struct{}
	release chan struct{}
}

func (g *gateSink) Post(ctx context.Context, id int, payload model.DisplayPayload) error {
	g.started <- struct{}{}
	<-g.release
	return g.Recorder.Post(ctx, id, payload)
}

func TestServiceQueueFullReleasesSlot(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Islands.AllowedSources = []string{"com.app"}
	cfg.Pipeline.Workers = 1
	cfg.Pipeline.QueueSize = 1
	off := false
	cfg.Pipeline.RateLimit = &off

	gate := &gateSink{
		Recorder: &sink.Recorder{},
		started:  make(chan struct{}, 8),
		release:  make(chan struct{}),
	}
	cache := settings.NewCache(cfg, logx.Nop())
	svc := New(cache, translate.NewSet(nil, nil, logx.Nop()), gate, nil, nil, nil, logx.Nop())
	svc.Start(context.Background())

	var once sync.Once
	open := func() { once.Do(func() { close(gate.release) }) }
	t.Cleanup(func() {
		open()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Stop(ctx)
	})

	if err := svc.OnEvent(testEvent("k1", "t", "b")); err != nil {
		t.Fatalf("OnEvent k1: %v", err)
	}
	// The single worker is now parked inside the sink.
	<-gate.started

	if err := svc.OnEvent(testEvent("k2", "t", "b")); err != nil {
		t.Fatalf("OnEvent k2: %v", err)
	}
	if err := svc.OnEvent(testEvent("k3", "t", "b")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("OnEvent k3 = %v, want ErrQueueFull", err)
	}
	if got := len(svc.Active()); got != 2 {
		t.Fatalf("active = %d, want 2 once the overflow slot is rolled back", got)
	}

	open()
	waitFor(t, "both posts", func() bool { return len(gate.Posts()) == 2 })

	// The rejected key kept nothing behind; a retry admits and posts.
	if err := svc.OnEvent(testEvent("k3", "t", "b")); err != nil {
		t.Fatalf("OnEvent k3 retry: %v", err)
	}
	waitFor(t, "retried post", func() bool { return len(gate.Posts()) == 3 })
	if got := len(svc.Active()); got != 3 {
		t.Fatalf("active = %d, want 3 after the retry", got)
	}
}

func TestServicePersistedDedupAcrossRestart(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	newCfg := func() *config.Config {
		cfg := &config.Config{}
		cfg.Islands.AllowedSources = []string{"com.app"}
		cfg.Pipeline.Workers = 1
		cfg.Pipeline.QueueSize = 16
		off := false
		cfg.Pipeline.RateLimit = &off
		return cfg
	}
	openStore := func() storage.Store {
		st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(dir, "store")}, logx.Nop())
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		return st
	}
	stop := func(svc *Service) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Stop(ctx)
	}

	ev := testEvent("k1", "Alice", "hello")

	st := openStore()
	rec := &sink.Recorder{}
	svc := New(settings.NewCache(newCfg(), logx.Nop()), translate.NewSet(nil, nil, logx.Nop()), rec, st, nil, nil, logx.Nop())
	svc.Start(context.Background())
	if err := svc.OnEvent(ev); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	waitFor(t, "first post", func() bool { return len(rec.Posts()) == 1 })
	stop(svc)
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Same content resurfacing after a restart stays off the sink.
	st = openStore()
	defer st.Close()
	rec2 := &sink.Recorder{}
	svc2 := New(settings.NewCache(newCfg(), logx.Nop()), translate.NewSet(nil, nil, logx.Nop()), rec2, st, nil, nil, logx.Nop())
	svc2.Start(context.Background())
	t.Cleanup(func() { stop(svc2) })

	if err := svc2.OnEvent(ev); err != nil {
		t.Fatalf("OnEvent after restart: %v", err)
	}
	waitFor(t, "island tracked", func() bool { return len(svc2.Active()) == 1 })
	time.Sleep(100 * time.Millisecond)
	if got := len(rec2.Posts()); got != 0 {
		t.Fatalf("posts = %d, want 0 for unchanged content", got)
	}

	// Changed content still goes through.
	ev.Text = "hello again"
	if err := svc2.OnEvent(ev); err != nil {
		t.Fatalf("OnEvent changed: %v", err)
	}
	waitFor(t, "changed post", func() bool { return len(rec2.Posts()) == 1 })
}

func TestServiceFailedPostReleasesSlot(t *testing.T) {
	t.Parallel()
	svc, rec := newTestService(t, nil)
	rec.FailPosts = errors.New("sink down")

	if err := svc.OnEvent(testEvent("k1", "Alice", "hello")); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	waitFor(t, "slot released", func() bool { return len(svc.Active()) == 0 })

	rec.FailPosts = nil
	if err := svc.OnEvent(testEvent("k1", "Alice", "hello")); err != nil {
		t.Fatalf("OnEvent retry: %v", err)
	}
	waitFor(t, "post after recovery", func() bool { return len(rec.Posts()) == 1 })
}
