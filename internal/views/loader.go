// Package views holds the per-screen view models: list loading keyed by a
// filter, mutation reconciliation, derived aggregates, and table paging.
package views

import (
	"context"
	"errors"
	"sync"

	"github.com/phillip-england/hrms/internal/apiclient"
)

type State int

const (
	StateLoading State = iota
	StateLoaded
	StateEmpty
	StateFailed
	StateNotFound
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	case StateFailed:
		return "failed"
	case StateNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

var (
	ErrStale     = errors.New("load superseded by a newer request")
	ErrNotLoaded = errors.New("view has not finished loading")
)

// Loader owns one list and reloads it whenever its key changes. Starting a
// load cancels the previous in-flight one, and a completion that is no longer
// the latest is dropped with ErrStale instead of overwriting newer rows.
type Loader[K comparable, R any] struct {
	fetch func(ctx context.Context, key K) ([]R, error)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	key    K
	rows   []R
	state  State
	err    error
}

func NewLoader[K comparable, R any](fetch func(ctx context.Context, key K) ([]R, error)) *Loader[K, R] {
	return &Loader[K, R]{fetch: fetch, state: StateLoading}
}

func (l *Loader[K, R]) Load(ctx context.Context, key K) ([]R, error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	if l.cancel != nil {
		l.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.key = key
	l.rows = nil
	l.err = nil
	l.state = StateLoading
	l.mu.Unlock()

	rows, err := l.fetch(loadCtx, key)

	l.mu.Lock()
	defer l.mu.Unlock()
	cancel()
	if gen != l.gen {
		return nil, ErrStale
	}
	l.cancel = nil
	if err != nil {
		l.rows = nil
		l.err = err
		if errors.Is(err, apiclient.ErrNotFound) {
			l.state = StateNotFound
		} else {
			l.state = StateFailed
		}
		return nil, err
	}
	l.rows = rows
	l.state = stateFor(len(rows))
	return cloneRows(rows), nil
}

// Reload runs Load again for the current key.
func (l *Loader[K, R]) Reload(ctx context.Context) ([]R, error) {
	return l.Load(ctx, l.Key())
}

func (l *Loader[K, R]) Key() K {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.key
}

func (l *Loader[K, R]) Rows() []R {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneRows(l.rows)
}

func (l *Loader[K, R]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader[K, R]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Patch applies a local change to the loaded rows without refetching. It
// fails when the list is not in a loaded or empty state.
func (l *Loader[K, R]) Patch(key K, apply func(rows []R) []R) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateLoaded && l.state != StateEmpty {
		return ErrNotLoaded
	}
	if l.key != key {
		return ErrStale
	}
	l.rows = apply(cloneRows(l.rows))
	l.state = stateFor(len(l.rows))
	return nil
}

func stateFor(n int) State {
	if n == 0 {
		return StateEmpty
	}
	return StateLoaded
}

func cloneRows[R any](rows []R) []R {
	if rows == nil {
		return nil
	}
	out := make([]R, len(rows))
	copy(out, rows)
	return out
}
