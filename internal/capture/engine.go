// Package capture records interaction events from an input source into an
// ordered, timestamped log.
package capture

import (
	"log"
	"sync"
	"time"

	"github.com/vincentbai/browsetrace-replay/internal/clock"
	"github.com/vincentbai/browsetrace-replay/internal/models"
	"github.com/vincentbai/browsetrace-replay/internal/surface"
)

// Engine owns one recording session.
type Engine struct {
	source surface.InputSource
	opts   Options
	clock  clock.Clock

	mu              sync.Mutex
	tracking        bool
	lastRecordedAt  time.Time
	lastMoveAt      time.Time
	lastMove        point
	drag            dragTracker
	windowDimension models.Dimension
	events          models.Log
	subscriptions   []func()
}

// New creates an engine reading from source. A nil clk uses the wall clock.
func New(source surface.InputSource, opts Options, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{
		source: source,
		opts:   opts,
		clock:  clk,
	}
}

// Init subscribes to the input source and starts tracking.
func (e *Engine) Init() {
	e.BindEventListeners(false)
	e.StartTracking()
}

// BindEventListeners subscribes every tracked type, or removes all
// subscriptions when remove is set. Repeating a call in the same direction
// does nothing.
func (e *Engine) BindEventListeners(remove bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if remove {
		for _, cancel := range e.subscriptions {
			cancel()
		}
		e.subscriptions = nil
		return
	}
	if len(e.subscriptions) > 0 {
		return
	}
	for _, t := range e.opts.eventTypes() {
		e.subscriptions = append(e.subscriptions, e.source.Subscribe(t, e.handle))
	}
}

// StartTracking resumes recording and resets the elapsed-time baseline.
func (e *Engine) StartTracking() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	e.tracking = true
	e.lastRecordedAt = now
	e.lastMoveAt = now
	e.windowDimension = e.source.Viewport()
}

// StopTracking pauses recording. Subscriptions stay in place.
func (e *Engine) StopTracking() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracking = false
}

func (e *Engine) Tracking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracking
}

// Events returns a snapshot of the log recorded so far.
func (e *Engine) Events() models.Log {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events.Snapshot()
}

// WindowDimension is the viewport size seen when tracking last started.
func (e *Engine) WindowDimension() models.Dimension {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.windowDimension
}

func (e *Engine) handle(raw models.RawEvent) {
	e.mu.Lock()
	if !e.tracking {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	dragging := e.drag.observe(raw.Type, e.opts.TrackMouseMove)
	trigger, leaving := DetectLeaving(raw, e.opts.RefreshKeyCode)

	if raw.Type == models.MouseMove {
		e.recordMove(raw, now)
	} else if value, target, ok := normalize(raw, e.source, dragging); ok {
		e.record(raw.Type, value, target, now)
	}

	var snapshot models.Log
	if leaving {
		snapshot = e.events.Snapshot()
	}
	e.mu.Unlock()

	if leaving {
		e.deliver(trigger, snapshot)
	}
}

// recordMove keeps a pointer move only when it passes the threshold filter.
// A dropped move leaves the baseline untouched.
func (e *Engine) recordMove(raw models.RawEvent, now time.Time) {
	if !e.opts.TrackMouseMove {
		return
	}
	value, target, _ := normalize(raw, e.source, false)
	move := value.(models.MoveValue)
	current := point{x: move.X, y: move.Y}
	if !shouldRecordMove(elapsedMs(e.lastMoveAt, now), e.lastMove, current, e.opts) {
		return
	}
	e.lastMove = current
	e.lastMoveAt = now
	e.record(models.MouseMove, move, target, now)
}

func (e *Engine) record(t models.EventType, value models.Value, target models.Element, now time.Time) {
	e.events = append(e.events, models.Event{
		Type:      t,
		Value:     value,
		Target:    target,
		ElapsedMs: elapsedMs(e.lastRecordedAt, now),
	})
	e.lastRecordedAt = now
}

// deliver hands the log to OnUserLeaving. A panicking callback is logged
// and swallowed so the host keeps running.
func (e *Engine) deliver(trigger Trigger, snapshot models.Log) {
	if e.opts.OnUserLeaving == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("level=error msg=\"user leaving callback panicked\" trigger=%s panic=%v", trigger, r)
		}
	}()
	e.opts.OnUserLeaving(snapshot)
}

func elapsedMs(since, now time.Time) int64 {
	ms := now.Sub(since).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
