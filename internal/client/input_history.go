package client

import (
	"sort"
	"time"

	"zonewalker/internal/logger"
	"zonewalker/pkg/core"
)

// InputSample 一次已提交、尚未被服务器确认的输入
type InputSample struct {
	Sequence       uint32
	Flags          byte
	PositionBefore core.Vec2 // 本步移动生效前的位置
	CapturedAt     time.Time
	DeltaTime      float64 // 采样时的固定步长，重放时不使用（见 Reconciler）
}

// InputHistory 未确认输入的定容环形缓冲
// 写游标按插入顺序推进，与序号顺序无关；写满时静默覆盖最旧条目
// （有界内存策略，不承诺无限历史）
type InputHistory struct {
	slots  []InputSample
	cursor int
}

// NewInputHistory 创建容量为 capacity 的输入历史
func NewInputHistory(capacity int) *InputHistory {
	if capacity <= 0 {
		capacity = DefaultInputHistorySize
	}
	return &InputHistory{slots: make([]InputSample, capacity)}
}

// Record 在当前游标写入样本并前移游标
// 覆盖尚未确认的旧样本时记一条警告：说明服务器确认太慢或链路劣化
func (h *InputHistory) Record(sample InputSample) {
	if old := h.slots[h.cursor]; old.Sequence != 0 {
		logger.Log.Warnf("输入缓冲覆盖未确认样本: seq=%d (新样本 seq=%d)", old.Sequence, sample.Sequence)
	}
	h.slots[h.cursor] = sample
	h.cursor = (h.cursor + 1) % len(h.slots)
}

// UnprocessedSince 取所有序号大于 lastProcessedSeq 且年龄不超过 maxAge 的样本
// 按序号升序返回——重放必须按生成顺序应用，顺序是正确性的一部分
func (h *InputHistory) UnprocessedSince(lastProcessedSeq uint32, maxAge time.Duration, now time.Time) []InputSample {
	var out []InputSample
	for _, s := range h.slots {
		if s.Sequence == 0 || !seqAfter(s.Sequence, lastProcessedSeq) {
			continue
		}
		if now.Sub(s.CapturedAt) > maxAge {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return seqAfter(out[j].Sequence, out[i].Sequence)
	})
	return out
}

// Prune 清除所有序号不大于 lastProcessedSeq 的样本，原地释放槽位，不做压缩
// 幂等：重复以同一水位调用效果不变
func (h *InputHistory) Prune(lastProcessedSeq uint32) {
	for i := range h.slots {
		if h.slots[i].Sequence != 0 && !seqAfter(h.slots[i].Sequence, lastProcessedSeq) {
			h.slots[i] = InputSample{}
		}
	}
}

// Len 当前保留的样本数
func (h *InputHistory) Len() int {
	n := 0
	for _, s := range h.slots {
		if s.Sequence != 0 {
			n++
		}
	}
	return n
}

// Capacity 缓冲容量
func (h *InputHistory) Capacity() int {
	return len(h.slots)
}
