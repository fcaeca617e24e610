package playback

import (
	"context"
	"sync"
)

// Loader runs a one-time initialization (locating the player binary, loading
// an SDK) and exposes its completion as a future. Every caller shares the
// same result.
type Loader struct {
	init  func(ctx context.Context) error
	once  sync.Once
	ready chan struct{}
	err   error
}

func NewLoader(init func(ctx context.Context) error) *Loader {
	return &Loader{init: init, ready: make(chan struct{})}
}

// Start begins initialization if it has not started yet. The context is only
// used by the first call.
func (l *Loader) Start(ctx context.Context) {
	l.once.Do(func() {
		go func() {
			defer close(l.ready)
			l.err = l.init(context.WithoutCancel(ctx))
		}()
	})
}

func (l *Loader) Ready() <-chan struct{} {
	return l.ready
}

// Err is the initialization result. It is only meaningful once Ready is closed.
func (l *Loader) Err() error {
	select {
	case <-l.ready:
		return l.err
	default:
		return nil
	}
}

// Wait starts initialization if needed and blocks until it completes.
func (l *Loader) Wait(ctx context.Context) error {
	l.Start(ctx)
	select {
	case <-l.ready:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
