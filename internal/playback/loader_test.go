package playback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoaderRunsOnce(t *testing.T) {
	var calls atomic.Int32
	loader := NewLoader(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := loader.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected init to run once, got %d", got)
	}
}

func TestLoaderSharesError(t *testing.T) {
	want := errors.New("mpv not found")
	loader := NewLoader(func(ctx context.Context) error { return want })

	if err := loader.Err(); err != nil {
		t.Errorf("expected no error before start, got %v", err)
	}
	if err := loader.Wait(context.Background()); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	<-loader.Ready()
	if err := loader.Err(); !errors.Is(err, want) {
		t.Errorf("expected %v from Err, got %v", want, err)
	}
}

func TestLoaderWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	loader := NewLoader(func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := loader.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
