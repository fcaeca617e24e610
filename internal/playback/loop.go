package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrLoopClosed = errors.New("playback loop closed")

// Timer is a scheduled callback that can be cancelled. Stop reports whether
// the callback was prevented from being scheduled; a callback already handed
// to the loop still runs, so callbacks guard themselves.
type Timer interface {
	Stop() bool
}

// Scheduler is the event loop a Session runs on. Post, AfterFunc callbacks and
// Async continuations all execute on the loop, one at a time, in order.
type Scheduler interface {
	Now() time.Time
	Post(f func())
	AfterFunc(d time.Duration, f func()) Timer
	// Async runs work off the loop and then runs the returned continuation
	// (if any) on the loop.
	Async(work func() func())
}

// Loop is a single goroutine that executes callbacks serially.
type Loop struct {
	clock clockwork.Clock
	queue chan func()
	done  chan struct{}

	mu      sync.Mutex
	closing bool
	pending sync.WaitGroup

	closeOnce sync.Once
	exited    chan struct{}
}

func NewLoop(clock clockwork.Clock) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := &Loop{
		clock:  clock,
		queue:  make(chan func(), 64),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		select {
		case f := <-l.queue:
			f()
		case <-l.done:
			for {
				select {
				case f := <-l.queue:
					f()
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post enqueues f. It is dropped once the loop is closed.
func (l *Loop) Post(f func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.queue <- f:
	case <-l.done:
	}
}

func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	return l.clock.AfterFunc(d, func() { l.Post(f) })
}

func (l *Loop) Async(work func() func()) {
	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		return
	}
	l.pending.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.pending.Done()
		if next := work(); next != nil {
			l.Post(next)
		}
	}()
}

// Do runs f on the loop and waits for it to finish. It must not be called
// from the loop itself.
func (l *Loop) Do(ctx context.Context, f func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		f()
	})
	select {
	case <-ran:
		return nil
	case <-l.exited:
		select {
		case <-ran:
			return nil
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for in-flight async work to deliver its continuation, drains
// the queue and stops the loop goroutine. Safe to call more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closing = true
		l.mu.Unlock()
		l.pending.Wait()
		close(l.done)
	})
	<-l.exited
}
