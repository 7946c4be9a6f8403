// Package fetchstate tracks one asynchronous GET per consumer: its data,
// error and loading flag, with a manual refetch.
//
// A Hook is mounted with a resource path and issues its first fetch right
// away. Every new fetch cancels the previous one; a fetch that completes
// after being superseded, or after Unmount, changes nothing.
package fetchstate

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GenericErrorMessage is the only error text a Hook exposes in its state.
// Provider diagnostics go to the Notifier and the log.
const GenericErrorMessage = "something went wrong! our team has been notified."

// Fetcher performs the GET for a resource path.
type Fetcher[T any] interface {
	Get(ctx context.Context, path string) (T, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc[T any] func(ctx context.Context, path string) (T, error)

func (f FetcherFunc[T]) Get(ctx context.Context, path string) (T, error) {
	return f(ctx, path)
}

// Status is the lifecycle phase derived from a State.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is a snapshot of a Hook.
type State[T any] struct {
	Data    *T
	Error   string
	Loading bool

	// UpdatedAt is the time of the last committed change.
	UpdatedAt time.Time
}

func (s State[T]) Status() Status {
	switch {
	case s.Loading:
		return StatusLoading
	case s.Error != "":
		return StatusError
	case s.Data != nil:
		return StatusSuccess
	default:
		return StatusIdle
	}
}

// Options configures a Hook. All fields are optional.
type Options[T any] struct {
	Notifier Notifier

	// OnChange is called with every committed state, while the hook's lock
	// is held. It must not call back into the Hook.
	OnChange func(State[T])

	// Name labels the hook in log lines.
	Name string
}

// token identifies one logical fetch. Supersession compares pointers; id
// only correlates the log lines of one fetch.
type token struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Hook owns the fetch lifecycle of one resource for one consumer.
type Hook[T any] struct {
	fetcher  Fetcher[T]
	notifier Notifier
	onChange func(State[T])
	name     string

	mu        sync.Mutex
	path      string
	state     State[T]
	current   *token
	unmounted bool
}

// Mount creates a Hook for path and starts its first fetch.
func Mount[T any](path string, fetcher Fetcher[T], opts Options[T]) *Hook[T] {
	h := &Hook[T]{
		fetcher:  fetcher,
		notifier: opts.Notifier,
		onChange: opts.OnChange,
		name:     opts.Name,
		path:     path,
	}
	if h.name == "" {
		h.name = path
	}

	h.mu.Lock()
	h.fetchLocked()
	h.mu.Unlock()
	return h
}

// State returns the current snapshot.
func (h *Hook[T]) State() State[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Path returns the resource path currently tracked.
func (h *Hook[T]) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.path
}

// Refetch starts a new fetch of the current path, superseding any fetch in
// flight. It is a no-op after Unmount.
func (h *Hook[T]) Refetch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unmounted {
		return
	}
	h.fetchLocked()
}

// SetPath switches the hook to path and refetches if it changed.
func (h *Hook[T]) SetPath(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unmounted || path == h.path {
		return
	}
	h.path = path
	h.fetchLocked()
}

// Unmount cancels the fetch in flight. No state change or OnChange call
// happens afterwards. Calling it again does nothing.
func (h *Hook[T]) Unmount() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unmounted {
		return
	}
	h.unmounted = true
	if h.current != nil {
		h.current.cancel()
		h.current = nil
	}
}

// Wait blocks until no fetch is active, or ctx ends, and returns the state.
func (h *Hook[T]) Wait(ctx context.Context) (State[T], error) {
	for {
		h.mu.Lock()
		tok, st := h.current, h.state
		h.mu.Unlock()

		if tok == nil {
			return st, nil
		}

		select {
		case <-tok.done:
		case <-ctx.Done():
			return st, ctx.Err()
		}

		h.mu.Lock()
		settled := h.current == tok || h.current == nil
		st = h.state
		h.mu.Unlock()
		if settled {
			return st, nil
		}
	}
}

func (h *Hook[T]) fetchLocked() {
	if h.current != nil {
		h.current.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	tok := &token{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
	h.current = tok

	h.state.Loading = true
	h.commitLocked()

	go h.run(ctx, tok, h.path)
}

func (h *Hook[T]) run(ctx context.Context, tok *token, path string) {
	defer close(tok.done)
	defer tok.cancel()

	data, err := h.fetcher.Get(ctx, path)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.unmounted || h.current != tok {
		log.Printf("DEBUG: %s: fetch %s superseded, result dropped", h.name, tok.id)
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("ERROR: %s: fetch %s of %s failed: %v", h.name, tok.id, path, err)
		if h.notifier != nil {
			h.notifier.Notify(err.Error())
		}
		h.state.Data = nil
		h.state.Error = GenericErrorMessage
		h.state.Loading = false
		h.commitLocked()
		return
	}

	log.Printf("DEBUG: %s: fetch %s of %s succeeded", h.name, tok.id, path)
	h.state.Data = &data
	h.state.Error = ""
	h.state.Loading = false
	h.commitLocked()
}

func (h *Hook[T]) commitLocked() {
	h.state.UpdatedAt = time.Now()
	if h.onChange != nil {
		h.onChange(h.state)
	}
}
