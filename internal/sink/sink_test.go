package sink

import (
	"context"
	"sync"
	"testing"

	"islandbridge/internal/model"
)

// slowSink records the interleaving of calls per id.
type slowSink struct {
	mu    sync.Mutex
	depth map[int]int
	race  bool
}

func (s *slowSink) enter(id int) {
	s.mu.Lock()
	s.depth[id]++
	if s.depth[id] > 1 {
		s.race = true
	}
	s.mu.Unlock()
}

func (s *slowSink) leave(id int) {
	s.mu.Lock()
	s.depth[id]--
	s.mu.Unlock()
}

func (s *slowSink) Post(ctx context.Context, id int, _ model.DisplayPayload) error {
	_ = ctx
	s.enter(id)
	defer s.leave(id)
	return nil
}

func (s *slowSink) Cancel(ctx context.Context, id int) error {
	_ = ctx
	s.enter(id)
	defer s.leave(id)
	return nil
}

func TestOrderedSerializesPerID(t *testing.T) {
	t.Parallel()

	inner := &slowSink{depth: map[int]int{}}
	o := NewOrdered(inner)

	var wg sync.WaitGroup
	ctx := context.Background()
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			id := g % 3
			for i := 0; i < 200; i++ {
				if i%5 == 0 {
					_ = o.Cancel(ctx, id)
				} else {
					_ = o.Post(ctx, id, model.DisplayPayload{})
				}
			}
		}(g)
	}
	wg.Wait()

	if inner.race {
		t.Error("concurrent calls observed for the same id")
	}
}

func TestOrderedReleaseKeepsWorking(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	o := NewOrdered(rec)
	ctx := context.Background()

	if err := o.Post(ctx, 7, model.DisplayPayload{}); err != nil {
		t.Fatalf("post: %v", err)
	}
	o.Release(7)
	if err := o.Cancel(ctx, 7); err != nil {
		t.Fatalf("cancel after release: %v", err)
	}
	if got := len(rec.Calls()); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	ctx := context.Background()

	_ = rec.Post(ctx, 1, model.DisplayPayload{Param: []byte(`{"a":1}`)})
	_ = rec.Cancel(ctx, 1)
	_ = rec.Post(ctx, 2, model.DisplayPayload{})

	if got := len(rec.Posts()); got != 2 {
		t.Errorf("posts = %d, want 2", got)
	}
	if got := len(rec.Cancels()); got != 1 {
		t.Errorf("cancels = %d, want 1", got)
	}

	rec.FailPosts = context.DeadlineExceeded
	if err := rec.Post(ctx, 3, model.DisplayPayload{}); err == nil {
		t.Error("configured failure should surface")
	}
	if got := len(rec.Posts()); got != 2 {
		t.Errorf("failed post recorded: posts = %d, want 2", got)
	}

	rec.Reset()
	if len(rec.Calls()) != 0 {
		t.Error("reset should clear the recording")
	}
}
