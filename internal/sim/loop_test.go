package sim

import (
	"testing"
	"time"

	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
)

func TestActionBufferWraparound(t *testing.T) {
	buffer := NewActionBuffer(3, nil)
	actions := []world.Action{
		{PlayerID: "a"},
		{PlayerID: "b"},
		{PlayerID: "c"},
	}
	for _, a := range actions {
		if !buffer.Push(a) {
			t.Fatalf("expected push to succeed for %+v", a)
		}
	}
	if buffer.Push(world.Action{PlayerID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(actions) {
		t.Fatalf("expected %d actions, got %d", len(actions), len(drained))
	}
	for i, a := range drained {
		if a.PlayerID != actions[i].PlayerID {
			t.Fatalf("expected drain order %v, got %v", actions[i].PlayerID, a.PlayerID)
		}
	}
	for _, a := range []world.Action{{PlayerID: "d"}, {PlayerID: "e"}} {
		if !buffer.Push(a) {
			t.Fatalf("expected push to succeed after drain for %+v", a)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 || wrapped[0].PlayerID != "d" || wrapped[1].PlayerID != "e" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestActionBufferOverflowMetrics(t *testing.T) {
	registry := logging.NewMetrics()
	buffer := NewActionBuffer(1, telemetry.WrapMetrics(registry))
	if !buffer.Push(world.Action{PlayerID: "one"}) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(world.Action{PlayerID: "two"}) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	if got := registry.Value(telemetry.MetricActionOverflow); got != 1 {
		t.Fatalf("expected one overflow, got %d", got)
	}
	if got := registry.Value(telemetry.MetricActionBuffer); got != 1 {
		t.Fatalf("expected occupancy 1, got %d", got)
	}
	buffer.Drain()
	if got := registry.Value(telemetry.MetricActionBuffer); got != 0 {
		t.Fatalf("expected occupancy reset, got %d", got)
	}
}

func newTestLoop(t *testing.T, cfg LoopConfig, hooks LoopHooks) *HostLoop {
	t.Helper()
	engine := newStartedEngine(t, world.ModeFFA, world.Ports{}, world.Seat{ID: "a"}, world.Seat{ID: "b"})
	return NewHostLoop(engine, cfg, hooks)
}

func TestHostLoopRunsFixedTicks(t *testing.T) {
	loop := newTestLoop(t, DefaultLoopConfig(), LoopHooks{})
	base := time.Unix(1000, 0)
	if res := loop.Frame(base); res.Ticks != 0 {
		t.Fatalf("expected first frame to only prime the clock, got %d ticks", res.Ticks)
	}
	res := loop.Frame(base.Add(110 * time.Millisecond))
	if res.Ticks != 3 {
		t.Fatalf("expected 3 ticks for 110ms, got %d", res.Ticks)
	}
	if res.Tick != 3 {
		t.Fatalf("expected world tick 3, got %d", res.Tick)
	}
}

func TestHostLoopCapsFrameDelta(t *testing.T) {
	loop := newTestLoop(t, DefaultLoopConfig(), LoopHooks{})
	base := time.Unix(1000, 0)
	loop.Frame(base)
	res := loop.Frame(base.Add(10 * time.Second))
	if res.Delta != 0.25 {
		t.Fatalf("expected delta capped at 0.25, got %v", res.Delta)
	}
	if res.Ticks != 7 {
		t.Fatalf("expected 7 ticks for a capped frame, got %d", res.Ticks)
	}
}

func TestHostLoopClampsBacklog(t *testing.T) {
	cfg := DefaultLoopConfig()
	cfg.MaxFrameDelta = 5
	loop := newTestLoop(t, cfg, LoopHooks{})
	base := time.Unix(1000, 0)
	loop.Frame(base)
	res := loop.Frame(base.Add(3 * time.Second))
	if res.Discarded < 1.99 || res.Discarded > 2.01 {
		t.Fatalf("expected about two seconds discarded, got %v", res.Discarded)
	}
	if res.Ticks < 29 || res.Ticks > 30 {
		t.Fatalf("expected one second of ticks, got %d", res.Ticks)
	}
}

func TestHostLoopSuspendResumeRebasesClock(t *testing.T) {
	loop := newTestLoop(t, DefaultLoopConfig(), LoopHooks{})
	base := time.Unix(1000, 0)
	loop.Frame(base)
	loop.Suspend()
	if res := loop.Frame(base.Add(5 * time.Second)); !res.Suspended || res.Ticks != 0 {
		t.Fatalf("expected suspended frame without ticks, got %+v", res)
	}
	resumeAt := base.Add(30 * time.Second)
	loop.Resume(resumeAt)
	if loop.Suspended() {
		t.Fatalf("expected loop resumed")
	}
	res := loop.Frame(resumeAt.Add(110 * time.Millisecond))
	if res.Ticks != 3 {
		t.Fatalf("expected suspended time skipped, got %d ticks", res.Ticks)
	}
}

func TestHostLoopAppliesActionsBeforeTicks(t *testing.T) {
	var frames []FrameResult
	loop := newTestLoop(t, DefaultLoopConfig(), LoopHooks{AfterFrame: func(r FrameResult) { frames = append(frames, r) }})
	base := time.Unix(1000, 0)
	loop.Frame(base)

	if ok, _ := loop.Enqueue(world.Action{Kind: world.ActionQueueUnit, PlayerID: "a", UnitID: "u1_1"}); !ok {
		t.Fatalf("expected enqueue to succeed")
	}
	if ok, _ := loop.Enqueue(world.Action{Kind: world.ActionQueueUnit, PlayerID: "a", UnitID: "u9_9"}); !ok {
		t.Fatalf("expected enqueue to succeed")
	}
	if loop.Pending() != 2 {
		t.Fatalf("expected two pending actions, got %d", loop.Pending())
	}
	res := loop.Frame(base.Add(10 * time.Millisecond))
	if res.Applied != 1 || res.Rejected != 1 || res.Ticks != 0 {
		t.Fatalf("unexpected frame result %+v", res)
	}
	if loop.Pending() != 0 {
		t.Fatalf("expected buffer drained")
	}
	if len(loop.Engine().World().Player("a").SpawnQueue) != 1 {
		t.Fatalf("expected action applied without a tick")
	}
	if len(frames) != 2 {
		t.Fatalf("expected after-frame hook per frame, got %d", len(frames))
	}
}

func TestHostLoopPerPlayerLimit(t *testing.T) {
	cfg := DefaultLoopConfig()
	cfg.PerPlayerLimit = 2
	var dropped []string
	loop := newTestLoop(t, cfg, LoopHooks{OnActionDrop: func(reason string, _ world.Action) { dropped = append(dropped, reason) }})

	for i := 0; i < 2; i++ {
		if ok, _ := loop.Enqueue(world.Action{Kind: world.ActionUpgrade, PlayerID: "a"}); !ok {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	if ok, reason := loop.Enqueue(world.Action{Kind: world.ActionUpgrade, PlayerID: "a"}); ok || reason != ActionRejectQueueLimit {
		t.Fatalf("expected per-player limit, got ok=%v reason=%s", ok, reason)
	}
	if ok, _ := loop.Enqueue(world.Action{Kind: world.ActionUpgrade, PlayerID: "b"}); !ok {
		t.Fatalf("expected other player unaffected")
	}
	if len(dropped) != 1 || dropped[0] != ActionRejectQueueLimit {
		t.Fatalf("expected drop hook, got %v", dropped)
	}
	loop.Frame(time.Unix(1000, 0))
	if ok, _ := loop.Enqueue(world.Action{Kind: world.ActionUpgrade, PlayerID: "a"}); !ok {
		t.Fatalf("expected limit reset after drain")
	}
}

func TestHostLoopBufferFull(t *testing.T) {
	cfg := DefaultLoopConfig()
	cfg.ActionCapacity = 1
	cfg.PerPlayerLimit = 0
	loop := newTestLoop(t, cfg, LoopHooks{})
	loop.Enqueue(world.Action{Kind: world.ActionUpgrade, PlayerID: "a"})
	if ok, reason := loop.Enqueue(world.Action{Kind: world.ActionUpgrade, PlayerID: "a"}); ok || reason != ActionRejectQueueFull {
		t.Fatalf("expected queue full, got ok=%v reason=%s", ok, reason)
	}
}

func TestClientLoopStallAndTimers(t *testing.T) {
	engine := newStartedEngine(t, world.ModeFFA, world.Ports{}, world.Seat{ID: "a"}, world.Seat{ID: "b"})
	w := engine.World()
	p := w.Player("a")
	p.VisualTimer = 1
	p.SpecialCooldown = 0.01

	var predicted []float64
	client := NewClientLoop(engine, ClientHooks{BeforePredict: func(_ time.Time, dt float64) { predicted = append(predicted, dt) }})
	base := time.Unix(1000, 0)
	if dt := client.Frame(base); dt != StallRenderDelta {
		t.Fatalf("expected first frame to use the stall delta, got %v", dt)
	}
	if dt := client.Frame(base.Add(100 * time.Millisecond)); dt < 0.099 || dt > 0.101 {
		t.Fatalf("expected 0.1s frame, got %v", dt)
	}
	if dt := client.Frame(base.Add(3 * time.Second)); dt != StallRenderDelta {
		t.Fatalf("expected stall delta after a long gap, got %v", dt)
	}
	if len(predicted) != 3 {
		t.Fatalf("expected hook per frame, got %d", len(predicted))
	}
	if p.SpecialCooldown != 0 {
		t.Fatalf("expected special cooldown clamped at zero, got %v", p.SpecialCooldown)
	}
	want := 1 - 2*StallRenderDelta - 0.1
	if p.VisualTimer < want-0.002 || p.VisualTimer > want+0.002 {
		t.Fatalf("expected visual timer %v, got %v", want, p.VisualTimer)
	}
	if client.Predicted() != 3 {
		t.Fatalf("expected three predicted steps, got %d", client.Predicted())
	}
	if w.Tick != 0 {
		t.Fatalf("expected prediction to leave the host tick alone, got %d", w.Tick)
	}

	engine.Pause()
	client.Frame(base.Add(3*time.Second + 100*time.Millisecond))
	if client.Predicted() != 3 {
		t.Fatalf("expected no prediction while paused")
	}
}
