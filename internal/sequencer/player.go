package sequencer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTickInterval is the recommended polling cadence for the preview
// state machine.
const DefaultTickInterval = 10 * time.Millisecond

// Player runs a tick function on a fixed interval while playback is active.
// It is started on play and cancelled on pause, so no tick can fire against a
// frozen frame; ticks never overlap.
type Player struct {
	tick     func()
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	playing atomic.Bool
}

func NewPlayer(tick func(), interval time.Duration, logger *slog.Logger) *Player {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Player{
		tick:     tick,
		interval: interval,
		logger:   logger,
	}
}

// Play starts the tick loop. A second Play while running is a no-op.
func (p *Player) Play(ctx context.Context) {
	if p.playing.Swap(true) {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Debug("playback tick loop started", "interval", p.interval)
	}
	go p.run(ctx)
}

// Pause stops the tick loop.
func (p *Player) Pause() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsPlaying reports whether the tick loop is running.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

func (p *Player) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.playing.Store(false)
			if p.logger != nil {
				p.logger.Debug("playback tick loop stopped")
			}
			return
		case <-ticker.C:
			p.tick()
		}
	}
}
