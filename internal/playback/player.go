package playback

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
)

// Player runs a Session on its own event loop and is safe for concurrent use.
// Its methods are the transport operations exposed to remote controls.
type Player struct {
	loop    *Loop
	session *Session
}

func NewPlayer(factory Factory, host Host, cfg Config, clock clockwork.Clock) *Player {
	loop := NewLoop(clock)
	return &Player{
		loop:    loop,
		session: NewSession(loop, factory, host, cfg),
	}
}

// SetObserver must be called before Start.
func (p *Player) SetObserver(o Observer) {
	_ = p.loop.Do(context.Background(), func() { p.session.SetObserver(o) })
}

// Start waits for loader in the background and marks the session ready once
// it succeeds. A failed load leaves the player unable to create handles.
func (p *Player) Start(ctx context.Context, loader *Loader) {
	loader.Start(ctx)
	go func() {
		select {
		case <-loader.Ready():
		case <-ctx.Done():
			return
		}
		if err := loader.Err(); err != nil {
			slog.Error("playback: player backend unavailable", "error", err)
			return
		}
		slog.Info("playback: player backend ready")
		p.loop.Post(p.session.SetAPIReady)
	}()
}

func (p *Player) do(ctx context.Context, f func()) (Snapshot, error) {
	var snap Snapshot
	err := p.loop.Do(ctx, func() {
		if f != nil {
			f()
		}
		snap = p.session.Snapshot()
	})
	return snap, err
}

func (p *Player) Snapshot(ctx context.Context) (Snapshot, error) {
	return p.do(ctx, nil)
}

func (p *Player) SwitchTrack(ctx context.Context, track Track) (Snapshot, error) {
	return p.do(ctx, func() { p.session.SwitchTrack(track) })
}

func (p *Player) TogglePlayPause(ctx context.Context) (Snapshot, error) {
	return p.do(ctx, p.session.TogglePlayPause)
}

func (p *Player) SeekRelative(ctx context.Context, delta float64) (Snapshot, error) {
	return p.do(ctx, func() { p.session.SeekRelative(delta) })
}

func (p *Player) SeekAbsolute(ctx context.Context, fraction float64) (Snapshot, error) {
	return p.do(ctx, func() { p.session.SeekAbsolute(fraction) })
}

func (p *Player) Stop(ctx context.Context) (Snapshot, error) {
	return p.do(ctx, p.session.Teardown)
}

// Close tears the session down and stops the loop.
func (p *Player) Close(ctx context.Context) error {
	_, err := p.do(ctx, p.session.Teardown)
	p.loop.Close()
	if err == ErrLoopClosed {
		return nil
	}
	return err
}
