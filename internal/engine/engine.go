// Package engine provides the simulation orchestrator: the tick loop, the speed state
// machine, the command surface and save snapshots.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Speed is the tick-rate multiplier. SpeedPaused stops ticks entirely.
type Speed int

const (
	SpeedPaused Speed = 0
	SpeedNormal Speed = 1
	SpeedFast   Speed = 2
	SpeedUltra  Speed = 3
)

// DefaultInterval is the base time between ticks at SpeedNormal.
const DefaultInterval = time.Second

func (s Speed) String() string {
	switch s {
	case SpeedPaused:
		return "paused"
	case SpeedNormal:
		return "normal"
	case SpeedFast:
		return "fast"
	case SpeedUltra:
		return "ultra"
	}
	return fmt.Sprintf("speed(%d)", int(s))
}

// Valid reports whether s is one of the defined speeds.
func (s Speed) Valid() bool {
	return s >= SpeedPaused && s <= SpeedUltra
}

// ParseSpeed accepts a speed name or its number.
func ParseSpeed(v string) (Speed, error) {
	for s := SpeedPaused; s <= SpeedUltra; s++ {
		if v == s.String() || v == fmt.Sprint(int(s)) {
			return s, nil
		}
	}
	return SpeedPaused, fmt.Errorf("unknown speed %q", v)
}

// Engine decides when the simulation advances. It has no timer of its own: a host
// calls Update once per frame and the engine fires at most one step per call.
type Engine struct {
	Speed    Speed
	Interval time.Duration // Base interval, divided by Speed

	// Now supplies the clock for Resume; frame times come from the caller.
	Now func() time.Time

	// Mu serializes the frame loop against other callers (the HTTP API).
	// Run takes it around each frame; everyone else takes it themselves.
	Mu sync.Mutex

	lastTick time.Time
	step     func()
}

// NewEngine creates a paused engine that calls step on every tick.
func NewEngine(interval time.Duration, step func()) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		Speed:    SpeedPaused,
		Interval: interval,
		Now:      time.Now,
		step:     step,
	}
}

// Paused reports whether ticks are stopped.
func (e *Engine) Paused() bool {
	return e.Speed == SpeedPaused
}

// Threshold is the real time that must pass between ticks at the current speed.
func (e *Engine) Threshold() time.Duration {
	if e.Paused() {
		return 0
	}
	return e.Interval / time.Duration(e.Speed)
}

// Update runs one step if the threshold has elapsed since the last step. The
// last-step time is reset to now rather than advanced by the threshold, so
// leftover time is dropped and slow frames drift.
func (e *Engine) Update(now time.Time) bool {
	if e.Paused() {
		return false
	}
	if now.Sub(e.lastTick) < e.Threshold() {
		return false
	}
	e.step()
	e.lastTick = now
	return true
}

// Pause stops ticks.
func (e *Engine) Pause() {
	e.Speed = SpeedPaused
	slog.Info("simulation paused")
}

// Resume restarts ticks at normal speed, counting from now.
func (e *Engine) Resume() {
	e.Speed = SpeedNormal
	e.lastTick = e.Now()
	slog.Info("simulation resumed")
}

// TogglePause flips between paused and normal speed.
func (e *Engine) TogglePause() {
	if e.Paused() {
		e.Resume()
	} else {
		e.Pause()
	}
}

// SetSpeed selects a speed. SpeedPaused pauses. Unknown speeds are refused.
func (e *Engine) SetSpeed(s Speed) bool {
	if !s.Valid() {
		return false
	}
	if s == SpeedPaused {
		e.Pause()
		return true
	}
	e.Speed = s
	slog.Info("simulation speed changed", "speed", s)
	return true
}

// Run drives Update from a ticker firing every frame until ctx is done.
func (e *Engine) Run(ctx context.Context, frame time.Duration) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	slog.Info("simulation engine started", "speed", e.Speed, "interval", e.Interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped")
			return
		case now := <-ticker.C:
			e.Mu.Lock()
			e.Update(now)
			e.Mu.Unlock()
		}
	}
}
