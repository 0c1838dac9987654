package sink

import (
	"context"
	"sync"

	"islandbridge/internal/model"
)

// Call is one recorded sink invocation.
type Call struct {
	Op      string // "post" | "cancel"
	ID      int
	Payload model.DisplayPayload
}

// Recorder is an in-memory sink that remembers every call. It backs the
// pipeline tests and the dry-run mode.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// FailPosts makes Post return this error, for sink-failure paths.
	FailPosts error
}

func (r *Recorder) Post(ctx context.Context, id int, payload model.DisplayPayload) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailPosts != nil {
		return r.FailPosts
	}
	r.calls = append(r.calls, Call{Op: "post", ID: id, Payload: payload})
	return nil
}

func (r *Recorder) Cancel(ctx context.Context, id int) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: "cancel", ID: id})
	return nil
}

// Calls returns a copy of everything recorded so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Posts returns only the recorded post calls.
func (r *Recorder) Posts() []Call {
	out := make([]Call, 0, 8)
	for _, c := range r.Calls() {
		if c.Op == "post" {
			out = append(out, c)
		}
	}
	return out
}

// Cancels returns only the recorded cancel calls.
func (r *Recorder) Cancels() []Call {
	out := make([]Call, 0, 8)
	for _, c := range r.Calls() {
		if c.Op == "cancel" {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the recording.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
