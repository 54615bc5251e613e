// Package playback replays a captured log against a render surface,
// reproducing the recorded timing scaled by a speed multiplier.
package playback

import (
	"math"
	"sync"
	"time"

	"github.com/vincentbai/browsetrace-replay/internal/clock"
	"github.com/vincentbai/browsetrace-replay/internal/models"
	"github.com/vincentbai/browsetrace-replay/internal/surface"
)

// Player walks a log one event per tick. At most one tick is pending at any
// time: every Play call cancels the previous one before scheduling.
type Player struct {
	clock      clock.Clock
	recorder   Recorder
	onComplete func()

	mu       sync.Mutex
	events   models.Log
	executor *Executor
	index    int
	speed    float64
	timer    clock.Timer
	// generation invalidates ticks whose timer fired before Stop could
	// cancel it.
	generation uint64
}

type PlayerOption func(*Player)

// WithRecorder describes every applied mutation to r.
func WithRecorder(r Recorder) PlayerOption {
	return func(p *Player) { p.recorder = r }
}

// WithOnComplete calls f when a scheduled tick runs past the end of the log.
func WithOnComplete(f func()) PlayerOption {
	return func(p *Player) { p.onComplete = f }
}

// NewPlayer creates an idle player. A nil clk uses the wall clock.
func NewPlayer(clk clock.Clock, opts ...PlayerOption) *Player {
	if clk == nil {
		clk = clock.Real{}
	}
	p := &Player{clock: clk, speed: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init binds the player to events and s. When dimension is set the surface
// root is sized to it first. Any pending tick from a previous Init is
// cancelled.
func (p *Player) Init(events models.Log, s surface.RenderSurface, dimension *models.Dimension) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()
	if dimension != nil {
		s.Resize(s.Root(), dimension.Width, dimension.Height)
	}
	p.executor = NewExecutor(s, p.recorder)
	p.events = events
	p.index = 0
}

// Play executes the event at index now and schedules the next one after
// its recorded delay times speed. Play does nothing when the log is empty
// or index is out of range.
func (p *Player) Play(index int, speed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.playLocked(index, speed)
}

// Stop cancels the pending tick, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
}

// Pending reports whether a tick is scheduled.
func (p *Player) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

func (p *Player) CurrentIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

func (p *Player) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// ClickSequence is the number of click markers placed so far.
func (p *Player) ClickSequence() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.executor == nil {
		return 0
	}
	return p.executor.ClickSequence()
}

func (p *Player) cancelLocked() {
	p.generation++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Player) playLocked(index int, speed float64) {
	if p.executor == nil || len(p.events) == 0 || index < 0 || index >= len(p.events) {
		return
	}
	event := p.events[index]
	p.index = index
	p.speed = speed
	p.executor.Execute(index, event)

	generation := p.generation
	next := index + 1
	p.timer = p.clock.AfterFunc(delay(event.ElapsedMs, speed), func() {
		p.tick(generation, next, speed)
	})
}

func (p *Player) tick(generation uint64, index int, speed float64) {
	p.mu.Lock()
	if generation != p.generation {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.generation++
	finished := index >= len(p.events)
	p.playLocked(index, speed)
	onComplete := p.onComplete
	p.mu.Unlock()

	if finished && onComplete != nil {
		onComplete()
	}
}

// delay scales a recorded gap by speed. Negative results clamp to zero and
// products past the Duration range clamp to the largest Duration.
func delay(elapsedMs int64, speed float64) time.Duration {
	ns := float64(elapsedMs) * speed * float64(time.Millisecond)
	switch {
	case math.IsNaN(ns) || ns <= 0:
		return 0
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
