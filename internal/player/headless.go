package player

import (
	"sync"
	"time"
)

// HeadlessEngine is a clock-driven engine for bridge deployments without a
// local renderer: it tracks state, position and play/pause against wall time
// so negotiation, reporting and renegotiation behave exactly as they would
// with a real player behind them.
type HeadlessEngine struct {
	mu         sync.Mutex
	state      State
	playing    bool
	source     StreamSource
	durationMs int64
	positionMs int64
	resumedAt  time.Time
}

func NewHeadlessEngine() *HeadlessEngine {
	return &HeadlessEngine{state: StateIdle}
}

func (e *HeadlessEngine) Prepare(source StreamSource, startPositionMs int64, playWhenReady bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source = source
	e.state = StateReady
	e.positionMs = startPositionMs
	e.playing = playWhenReady
	e.resumedAt = time.Now()
	return nil
}

// SetDuration fixes the clock's end of stream; zero means unbounded.
func (e *HeadlessEngine) SetDuration(durationMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.durationMs = durationMs
}

func (e *HeadlessEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positionMs = e.positionLocked()
	e.playing = false
}

func (e *HeadlessEngine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return
	}
	e.playing = true
	e.resumedAt = time.Now()
}

func (e *HeadlessEngine) SeekTo(positionMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if positionMs < 0 {
		positionMs = 0
	}
	e.positionMs = positionMs
	e.resumedAt = time.Now()
}

func (e *HeadlessEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.playing = false
	e.positionMs = 0
	e.source = StreamSource{}
}

func (e *HeadlessEngine) PositionMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

// BufferedMs always equals the position: nothing is buffered ahead of a
// simulated clock.
func (e *HeadlessEngine) BufferedMs() int64 {
	return e.PositionMs()
}

func (e *HeadlessEngine) DurationMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationMs
}

func (e *HeadlessEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateReady && e.durationMs > 0 && e.positionLocked() >= e.durationMs {
		return StateEnded
	}
	return e.state
}

func (e *HeadlessEngine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *HeadlessEngine) positionLocked() int64 {
	position := e.positionMs
	if e.playing {
		position += time.Since(e.resumedAt).Milliseconds()
	}
	if e.durationMs > 0 && position > e.durationMs {
		position = e.durationMs
	}
	return position
}
