package client

import "testing"

// TestSequenceMonotonic 序号从 1 开始严格递增
func TestSequenceMonotonic(t *testing.T) {
	var s Sequence
	prev := uint32(0)
	for i := 0; i < 1000; i++ {
		got := s.Next()
		if got != prev+1 {
			t.Fatalf("Next() = %d, want %d", got, prev+1)
		}
		prev = got
	}
	if s.Current() != 1000 {
		t.Fatalf("Current() = %d, want 1000", s.Current())
	}
}

// TestSeqAfterWraparound 序号比较必须按模运算处理回绕
func TestSeqAfterWraparound(t *testing.T) {
	cases := []struct {
		a, b uint32
		want bool
	}{
		{2, 1, true},
		{1, 2, false},
		{1, 1, false},
		{0, 0xFFFFFFFF, true},           // 回绕后 0 在最大值之后
		{0xFFFFFFFF, 0, false},
		{5, 0xFFFFFFF0, true},           // 跨回绕边界
		{0xFFFFFFF0, 5, false},
	}
	for _, tc := range cases {
		if got := seqAfter(tc.a, tc.b); got != tc.want {
			t.Fatalf("seqAfter(%d, %d) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
