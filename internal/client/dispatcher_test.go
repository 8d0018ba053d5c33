package client

import (
	"testing"
	"time"

	"zonewalker/pkg/core"
	"zonewalker/pkg/protocol"
)

type fakeRemoteSync struct {
	synced []protocol.EntityState
}

func (f *fakeRemoteSync) SyncEntity(tick uint64, ent protocol.EntityState) {
	f.synced = append(f.synced, ent)
}

type fakeEventSink struct {
	events []protocol.GameEvent
}

func (f *fakeEventSink) HandleEvents(tick uint64, events []protocol.GameEvent) {
	f.events = append(f.events, events...)
}

func newTestDispatcher(t *testing.T) (*SnapshotDispatcher, *PredictedState, *InputHistory, *fakeRemoteSync, *fakeEventSink) {
	t.Helper()
	cfg := &Config{TickRate: 1, MoveSpeed: 1, ReconcileThreshold: 0.1}
	cfg.normalize()
	state := &PredictedState{}
	history := NewInputHistory(16)
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	reconciler := NewReconciler(cfg, state, history, clock.now)

	remote := &fakeRemoteSync{}
	events := &fakeEventSink{}
	d := NewSnapshotDispatcher(reconciler, remote, events)
	d.SetLocalEntityID(1)
	return d, state, history, remote, events
}

// TestDispatchRouting 本地实体进和解引擎，其余实体与事件转给协作方
func TestDispatchRouting(t *testing.T) {
	d, state, _, remote, events := newTestDispatcher(t)

	accepted := d.Dispatch(&protocol.WorldSnapshot{
		Tick: 1,
		Entities: []protocol.EntityState{
			{EntityID: 1, X: 3, Y: 4},
			{EntityID: 2, X: 7, Y: 8},
			{EntityID: 3, X: 9, Y: 10},
		},
		Events: []protocol.GameEvent{{Kind: 1, SourceID: 2}},
	})

	if !accepted {
		t.Fatal("snapshot rejected")
	}
	if !state.HasAuthoritative || state.AuthoritativePosition != (core.Vec2{X: 3, Y: 4}) {
		t.Fatalf("local entity not reconciled: %+v", state)
	}
	if len(remote.synced) != 2 || remote.synced[0].EntityID != 2 || remote.synced[1].EntityID != 3 {
		t.Fatalf("remote synced = %+v", remote.synced)
	}
	if len(events.events) != 1 || events.events[0].Kind != 1 {
		t.Fatalf("events = %+v", events.events)
	}
}

// TestDispatchStaleTickDiscarded 端到端场景 3：
// tick 不大于上次接受值的快照整包丢弃——不分发、不改位置、不动输入缓冲
func TestDispatchStaleTickDiscarded(t *testing.T) {
	d, state, history, remote, _ := newTestDispatcher(t)

	history.Record(InputSample{Sequence: 1, Flags: core.FlagUp, CapturedAt: time.Unix(1700000000, 0)})

	if !d.Dispatch(&protocol.WorldSnapshot{
		Tick:     5,
		Entities: []protocol.EntityState{{EntityID: 1, X: 1, Y: 1}},
	}) {
		t.Fatal("first snapshot rejected")
	}
	posAfterFirst := state.Position
	historyAfterFirst := history.Len()
	remoteAfterFirst := len(remote.synced)

	for _, stale := range []uint64{5, 4, 1} {
		if d.Dispatch(&protocol.WorldSnapshot{
			Tick:             stale,
			LastProcessedSeq: 1, // 即便带着确认水位也不得生效
			Entities: []protocol.EntityState{
				{EntityID: 1, X: 99, Y: 99},
				{EntityID: 2, X: 99, Y: 99},
			},
		}) {
			t.Fatalf("stale snapshot tick=%d accepted", stale)
		}
	}

	if state.Position != posAfterFirst {
		t.Fatalf("position changed by stale snapshot: %v", state.Position)
	}
	if history.Len() != historyAfterFirst {
		t.Fatalf("history mutated by stale snapshot: %d -> %d", historyAfterFirst, history.Len())
	}
	if len(remote.synced) != remoteAfterFirst {
		t.Fatalf("remote sync called for stale snapshot")
	}
	if d.LastAcceptedTick() != 5 {
		t.Fatalf("LastAcceptedTick = %d, want 5", d.LastAcceptedTick())
	}
}

// TestDispatchMonotonicTickAdvances 递增的 tick 正常推进
func TestDispatchMonotonicTickAdvances(t *testing.T) {
	d, _, _, _, _ := newTestDispatcher(t)

	for _, tick := range []uint64{1, 2, 10} {
		if !d.Dispatch(&protocol.WorldSnapshot{Tick: tick}) {
			t.Fatalf("snapshot tick=%d rejected", tick)
		}
	}
	if d.LastAcceptedTick() != 10 {
		t.Fatalf("LastAcceptedTick = %d, want 10", d.LastAcceptedTick())
	}
}
