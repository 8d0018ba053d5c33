package client

import (
	"errors"
	"testing"
	"time"

	"zonewalker/pkg/core"
	"zonewalker/pkg/protocol"
)

type captureSender struct {
	packets []*protocol.Packet
	err     error
}

func (c *captureSender) SendPacket(pkt *protocol.Packet) error {
	if c.err != nil {
		return c.err
	}
	c.packets = append(c.packets, pkt)
	return nil
}

func (c *captureSender) inputs(t *testing.T) []*protocol.PlayerInput {
	t.Helper()
	var out []*protocol.PlayerInput
	for _, pkt := range c.packets {
		if pkt.Type != protocol.MessageTypePlayerInput {
			continue
		}
		input, err := protocol.ParsePlayerInput(pkt)
		if err != nil {
			t.Fatalf("ParsePlayerInput: %v", err)
		}
		out = append(out, input)
	}
	return out
}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestPredictor(tickRate int, speed float64) (*Predictor, *captureSender, *fakeClock, *InputHistory) {
	cfg := &Config{
		TickRate:        tickRate,
		MoveSpeed:       speed,
		MinSendInterval: 100 * time.Millisecond,
	}
	cfg.normalize()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	sender := &captureSender{}
	history := NewInputHistory(16)
	var seq Sequence
	p := NewPredictor(cfg, &seq, history, sender, clock.now)
	return p, sender, clock, history
}

// TestPredictorFixedStep 累积真实时间，按固定步长整倍消费
func TestPredictorFixedStep(t *testing.T) {
	p, _, _, _ := newTestPredictor(10, 1) // 固定步长 0.1s

	if steps := p.Update(0.05, 0); steps != 0 {
		t.Fatalf("steps = %d, want 0", steps)
	}
	if steps := p.Update(0.05, 0); steps != 1 {
		t.Fatalf("steps = %d, want 1", steps)
	}
	if steps := p.Update(0.25, 0); steps != 2 {
		t.Fatalf("steps = %d, want 2", steps)
	}
	if p.Tick() != 3 {
		t.Fatalf("Tick() = %d, want 3", p.Tick())
	}
}

// TestPredictorMovesAndRecords 一步“上”输入：位置立即前移，缓冲记录移动前位置
func TestPredictorMovesAndRecords(t *testing.T) {
	p, sender, clock, history := newTestPredictor(1, 1) // 步长 1s，速度 1
	p.SetPosition(core.Vec2{X: 5, Y: 5})

	p.Update(1.0, core.FlagUp)

	if got := p.State().Position; got != (core.Vec2{X: 5, Y: 6}) {
		t.Fatalf("position = %v, want (5, 6)", got)
	}

	samples := history.UnprocessedSince(0, time.Minute, clock.now())
	if len(samples) != 1 {
		t.Fatalf("recorded = %d, want 1", len(samples))
	}
	if samples[0].Sequence != 1 || samples[0].Flags != core.FlagUp {
		t.Fatalf("sample = %+v", samples[0])
	}
	if samples[0].PositionBefore != (core.Vec2{X: 5, Y: 5}) {
		t.Fatalf("PositionBefore = %v, want (5, 5)", samples[0].PositionBefore)
	}

	inputs := sender.inputs(t)
	if len(inputs) != 1 || inputs[0].Sequence != 1 || inputs[0].Flags != core.FlagUp {
		t.Fatalf("sent inputs = %+v", inputs)
	}
}

// TestPredictorMinSendInterval 掩码不变时按最小间隔限流
func TestPredictorMinSendInterval(t *testing.T) {
	p, sender, clock, _ := newTestPredictor(100, 1) // 步长 10ms，间隔 100ms

	// 100 步 = 1 秒，掩码保持不变
	for i := 0; i < 100; i++ {
		p.Update(0.01, core.FlagRight)
		clock.advance(10 * time.Millisecond)
	}

	inputs := sender.inputs(t)
	// 首步掩码变化发一次，之后每 100ms 至多一次，总数应远小于步数
	if len(inputs) < 5 || len(inputs) > 15 {
		t.Fatalf("sent %d inputs over 1s, want roughly 10", len(inputs))
	}
}

// TestPredictorReleaseSentImmediately 松键归零必须立即发送，不受最小间隔约束
func TestPredictorReleaseSentImmediately(t *testing.T) {
	p, sender, _, _ := newTestPredictor(100, 1)

	// 时钟不前进：间隔永远不满足，只有掩码变化能触发发送
	p.Update(0.01, core.FlagUp)
	p.Update(0.01, core.FlagUp)
	p.Update(0.01, 0)

	inputs := sender.inputs(t)
	if len(inputs) < 2 {
		t.Fatalf("sent %d inputs, want at least press + release", len(inputs))
	}
	last := inputs[len(inputs)-1]
	if last.Flags != 0 {
		t.Fatalf("last sent flags = %04b, want 0", last.Flags)
	}
}

// TestPredictorSendFailureNonFatal 发送失败不影响本地预测与记录
func TestPredictorSendFailureNonFatal(t *testing.T) {
	p, sender, _, history := newTestPredictor(1, 1)
	sender.err = errors.New("connection down")

	p.Update(1.0, core.FlagUp)

	if got := p.State().Position; got != (core.Vec2{X: 0, Y: 1}) {
		t.Fatalf("position = %v, want (0, 1)", got)
	}
	if history.Len() != 1 {
		t.Fatalf("history Len = %d, want 1", history.Len())
	}
}
