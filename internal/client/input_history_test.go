package client

import (
	"testing"
	"time"

	"zonewalker/pkg/core"
)

func sampleAt(seq uint32, at time.Time) InputSample {
	return InputSample{
		Sequence:   seq,
		Flags:      core.FlagUp,
		CapturedAt: at,
		DeltaTime:  core.FixedDeltaTime,
	}
}

// TestHistoryCapacityInvariant 写入 capacity+K 条后只剩最近 capacity 条
func TestHistoryCapacityInvariant(t *testing.T) {
	const capacity = 8
	const extra = 5
	now := time.Now()

	h := NewInputHistory(capacity)
	for seq := uint32(1); seq <= capacity+extra; seq++ {
		h.Record(sampleAt(seq, now))
	}

	if h.Len() != capacity {
		t.Fatalf("Len() = %d, want %d", h.Len(), capacity)
	}

	got := h.UnprocessedSince(0, time.Minute, now)
	if len(got) != capacity {
		t.Fatalf("unprocessed = %d, want %d", len(got), capacity)
	}
	// 最旧的 extra 条已被覆盖
	if got[0].Sequence != extra+1 {
		t.Fatalf("oldest surviving seq = %d, want %d", got[0].Sequence, extra+1)
	}
	if got[len(got)-1].Sequence != capacity+extra {
		t.Fatalf("newest seq = %d, want %d", got[len(got)-1].Sequence, capacity+extra)
	}
}

// TestUnprocessedSinceOrdering 返回顺序必须按序号升序（重放顺序是正确性的一部分）
func TestUnprocessedSinceOrdering(t *testing.T) {
	now := time.Now()
	h := NewInputHistory(16)
	for _, seq := range []uint32{3, 1, 5, 2, 4} {
		h.Record(sampleAt(seq, now))
	}

	got := h.UnprocessedSince(1, time.Minute, now)
	want := []uint32{2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, s := range got {
		if s.Sequence != want[i] {
			t.Fatalf("got[%d].Sequence = %d, want %d", i, s.Sequence, want[i])
		}
	}
}

// TestUnprocessedSinceAgeFilter 超龄样本不参与重放
func TestUnprocessedSinceAgeFilter(t *testing.T) {
	now := time.Now()
	h := NewInputHistory(16)
	h.Record(sampleAt(1, now.Add(-10*time.Second)))
	h.Record(sampleAt(2, now.Add(-1*time.Second)))

	got := h.UnprocessedSince(0, 5*time.Second, now)
	if len(got) != 1 || got[0].Sequence != 2 {
		t.Fatalf("unprocessed = %+v, want only seq 2", got)
	}
}

// TestPruneIdempotent 以同一水位重复 Prune 效果不变
func TestPruneIdempotent(t *testing.T) {
	now := time.Now()
	h := NewInputHistory(16)
	for seq := uint32(1); seq <= 6; seq++ {
		h.Record(sampleAt(seq, now))
	}

	h.Prune(4)
	if h.Len() != 2 {
		t.Fatalf("Len() after prune = %d, want 2", h.Len())
	}
	h.Prune(4)
	if h.Len() != 2 {
		t.Fatalf("Len() after second prune = %d, want 2", h.Len())
	}

	got := h.UnprocessedSince(0, time.Minute, now)
	if len(got) != 2 || got[0].Sequence != 5 || got[1].Sequence != 6 {
		t.Fatalf("remaining = %+v, want seq 5, 6", got)
	}
}

// TestPruneFreesSlots Prune 释放的槽位可以复用且不再告警覆盖
func TestPruneFreesSlots(t *testing.T) {
	now := time.Now()
	h := NewInputHistory(4)
	for seq := uint32(1); seq <= 4; seq++ {
		h.Record(sampleAt(seq, now))
	}
	h.Prune(4)
	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", h.Len())
	}

	h.Record(sampleAt(5, now))
	got := h.UnprocessedSince(0, time.Minute, now)
	if len(got) != 1 || got[0].Sequence != 5 {
		t.Fatalf("remaining = %+v, want only seq 5", got)
	}
}
