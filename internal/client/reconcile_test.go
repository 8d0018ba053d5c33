package client

import (
	"testing"
	"time"

	"zonewalker/pkg/core"
	"zonewalker/pkg/protocol"
)

func newTestReconciler(tickRate int, speed, threshold float64) (*Reconciler, *PredictedState, *InputHistory, *fakeClock) {
	cfg := &Config{
		TickRate:           tickRate,
		MoveSpeed:          speed,
		ReconcileThreshold: threshold,
	}
	cfg.normalize()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	state := &PredictedState{}
	history := NewInputHistory(16)
	r := NewReconciler(cfg, state, history, clock.now)
	return r, state, history, clock
}

// TestReconcileReplaysUnacked 端到端场景 1：
// 本地预测 (5,5)→(5,6)，快照权威位置 (5,5) 且未确认任何输入，
// 和解必须重放那一条“上”输入并回到 (5,6)
func TestReconcileReplaysUnacked(t *testing.T) {
	r, state, history, clock := newTestReconciler(1, 1, 0.1)

	state.Position = core.Vec2{X: 5, Y: 6}
	history.Record(InputSample{
		Sequence:       1,
		Flags:          core.FlagUp,
		PositionBefore: core.Vec2{X: 5, Y: 5},
		CapturedAt:     clock.now(),
		DeltaTime:      1.0,
	})

	r.OnAuthoritativeState(&protocol.EntityState{EntityID: 1, X: 5, Y: 5}, 0)

	if state.Position != (core.Vec2{X: 5, Y: 6}) {
		t.Fatalf("position = %v, want (5, 6)", state.Position)
	}
	if state.AuthoritativePosition != (core.Vec2{X: 5, Y: 5}) || !state.HasAuthoritative {
		t.Fatalf("authoritative = %v (%v), want (5, 5) true",
			state.AuthoritativePosition, state.HasAuthoritative)
	}
}

// TestReconcileNoOp 端到端场景 2：
// 确认水位已到最新序号且误差为零，既不重放也不改位置
func TestReconcileNoOp(t *testing.T) {
	r, state, history, clock := newTestReconciler(1, 1, 0.1)

	state.Position = core.Vec2{X: 5, Y: 6}
	history.Record(InputSample{
		Sequence:       1,
		Flags:          core.FlagUp,
		PositionBefore: core.Vec2{X: 5, Y: 5},
		CapturedAt:     clock.now(),
		DeltaTime:      1.0,
	})

	r.OnAuthoritativeState(&protocol.EntityState{EntityID: 1, X: 5, Y: 6}, 1)

	if state.Position != (core.Vec2{X: 5, Y: 6}) {
		t.Fatalf("position = %v, want unchanged (5, 6)", state.Position)
	}
	if !state.HasAuthoritative || state.AuthoritativePosition != (core.Vec2{X: 5, Y: 6}) {
		t.Fatalf("authoritative must be updated even without correction")
	}
	if history.Len() != 0 {
		t.Fatalf("history Len = %d, want 0 after prune", history.Len())
	}
}

// TestReconcileUpdatesAuthoritativeOnThresholdPass 小误差 + 无待重放：位置不动，权威照更新
func TestReconcileUpdatesAuthoritativeOnThresholdPass(t *testing.T) {
	r, state, _, _ := newTestReconciler(30, 5, 0.5)

	state.Position = core.Vec2{X: 10, Y: 10}
	r.OnAuthoritativeState(&protocol.EntityState{EntityID: 1, X: 10.1, Y: 10}, 0)

	if state.Position != (core.Vec2{X: 10, Y: 10}) {
		t.Fatalf("position = %v, want unchanged", state.Position)
	}
	if state.AuthoritativePosition != (core.Vec2{X: 10.1, Y: 10}) {
		t.Fatalf("authoritative = %v, want (10.1, 10)", state.AuthoritativePosition)
	}
}

// TestReconcileReplayUsesFixedDelta 重放必须用固定步长而不是样本自带的 DeltaTime
func TestReconcileReplayUsesFixedDelta(t *testing.T) {
	r, state, history, clock := newTestReconciler(10, 2, 0.1) // 固定步长 0.1s

	// 样本的 DeltaTime 故意写成离谱的值，重放结果只能由固定步长决定
	for seq := uint32(1); seq <= 3; seq++ {
		history.Record(InputSample{
			Sequence:   seq,
			Flags:      core.FlagRight,
			CapturedAt: clock.now(),
			DeltaTime:  999.0,
		})
	}
	state.Position = core.Vec2{X: 100, Y: 100} // 离权威很远，强制纠正

	r.OnAuthoritativeState(&protocol.EntityState{EntityID: 1, X: 0, Y: 0}, 0)

	// 0 + 3 步 × 速度 2 × 0.1s = (0.6, 0)
	want := core.Vec2{X: 0.6, Y: 0}
	if state.Position.DistanceTo(want) > 1e-9 {
		t.Fatalf("position = %v, want %v", state.Position, want)
	}
}

// TestReconcileDeterministic 同一组未确认输入无论何时重放，终点一致
func TestReconcileDeterministic(t *testing.T) {
	run := func(delay time.Duration) core.Vec2 {
		r, state, history, clock := newTestReconciler(30, 5, 0.1)
		flags := []byte{core.FlagUp, core.FlagUp | core.FlagRight, core.FlagRight, core.FlagDown}
		for i, f := range flags {
			history.Record(InputSample{
				Sequence:   uint32(i + 1),
				Flags:      f,
				CapturedAt: clock.now(),
				DeltaTime:  core.FixedDeltaTime,
			})
		}
		state.Position = core.Vec2{X: 50, Y: 50}
		clock.advance(delay) // 重放发生的时刻不同
		r.OnAuthoritativeState(&protocol.EntityState{EntityID: 1, X: 1, Y: 2}, 0)
		return state.Position
	}

	immediate := run(0)
	delayed := run(3 * time.Second)
	if immediate != delayed {
		t.Fatalf("replay diverged: %v != %v", immediate, delayed)
	}
}
