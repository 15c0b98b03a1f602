package player

import (
	"testing"
	"time"
)

func TestHeadlessEngineClock(t *testing.T) {
	e := NewHeadlessEngine()
	if e.State() != StateIdle {
		t.Fatal("new engine must be idle")
	}

	if err := e.Prepare(StreamSource{URL: "http://x/stream"}, 5_000, true); err != nil {
		t.Fatal(err)
	}
	if !e.Playing() || e.State() != StateReady {
		t.Fatal("prepared engine must be playing and ready")
	}

	time.Sleep(30 * time.Millisecond)
	if got := e.PositionMs(); got < 5_000 {
		t.Errorf("position = %d, must advance from the start position", got)
	}
}

func TestHeadlessEnginePauseFreezesPosition(t *testing.T) {
	e := NewHeadlessEngine()
	if err := e.Prepare(StreamSource{}, 0, true); err != nil {
		t.Fatal(err)
	}

	e.Pause()
	frozen := e.PositionMs()
	time.Sleep(30 * time.Millisecond)
	if got := e.PositionMs(); got != frozen {
		t.Errorf("position moved while paused: %d -> %d", frozen, got)
	}

	e.Resume()
	time.Sleep(30 * time.Millisecond)
	if got := e.PositionMs(); got <= frozen {
		t.Error("position must advance after resume")
	}
}

func TestHeadlessEngineDurationClamp(t *testing.T) {
	e := NewHeadlessEngine()
	if err := e.Prepare(StreamSource{}, 990, true); err != nil {
		t.Fatal(err)
	}
	e.SetDuration(1_000)

	time.Sleep(50 * time.Millisecond)
	if got := e.PositionMs(); got != 1_000 {
		t.Errorf("position = %d, want clamped to duration", got)
	}
	if e.State() != StateEnded {
		t.Errorf("state = %v, want ended at duration", e.State())
	}
}

func TestHeadlessEngineStopResets(t *testing.T) {
	e := NewHeadlessEngine()
	if err := e.Prepare(StreamSource{}, 5_000, true); err != nil {
		t.Fatal(err)
	}
	e.Stop()
	if e.State() != StateIdle || e.Playing() || e.PositionMs() != 0 {
		t.Error("stop must reset the engine")
	}
}
