package client

import "sync/atomic"

// Sequence 输入序号生成器，每个连接会话一个
// 从 1 开始单调递增，0 保留表示“无序号 / 发送失败”
type Sequence struct {
	n atomic.Uint32
}

// Next 取下一个序号
func (s *Sequence) Next() uint32 {
	return s.n.Add(1)
}

// Current 最近分配的序号（未分配过时为 0）
func (s *Sequence) Current() uint32 {
	return s.n.Load()
}

// seqAfter 回绕安全的序号比较：a 是否在 b 之后
// 32 位计数器溢出按模运算处理（serial number arithmetic）
func seqAfter(a, b uint32) bool {
	return int32(a-b) > 0
}
