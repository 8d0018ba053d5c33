package client

import (
	"time"

	"golang.org/x/time/rate"

	"zonewalker/internal/logger"
	"zonewalker/pkg/core"
	"zonewalker/pkg/protocol"
)

// PacketSender 预测器的出站依赖（由帧传输层实现）
type PacketSender interface {
	SendPacket(pkt *protocol.Packet) error
}

// PredictedState 本地实体的预测状态
// Position 每个固定步被本地输入推进；AuthoritativePosition 仅在快照到达时被覆盖
type PredictedState struct {
	Position              core.Vec2
	AuthoritativePosition core.Vec2
	HasAuthoritative      bool
}

// Predictor 固定步长预测器
// 把模拟与渲染帧率解耦：累积真实流逝时间，按服务器同款固定步长整倍消费
type Predictor struct {
	state PredictedState

	fixedDelta float64
	speed      float64

	accumulator float64
	tick        uint64

	// 输入发送策略：掩码变化立即发送，不变时由限流器控制重发节奏
	lastSentFlags byte
	sentAny       bool
	limiter       *rate.Limiter

	seq     *Sequence
	history *InputHistory
	sender  PacketSender
	now     func() time.Time
}

// NewPredictor 创建预测器
// now 为注入时钟，测试中可替换；sender 可为 nil（离线模拟）
func NewPredictor(cfg *Config, seq *Sequence, history *InputHistory, sender PacketSender, now func() time.Time) *Predictor {
	if now == nil {
		now = time.Now
	}
	return &Predictor{
		fixedDelta: cfg.fixedDelta(),
		speed:      cfg.MoveSpeed,
		limiter:    rate.NewLimiter(rate.Every(cfg.MinSendInterval), 1),
		seq:        seq,
		history:    history,
		sender:     sender,
		now:        now,
	}
}

// State 预测状态（由 Reconciler 写回纠正结果）
func (p *Predictor) State() *PredictedState {
	return &p.state
}

// Tick 已消费的固定步数
func (p *Predictor) Tick() uint64 {
	return p.tick
}

// SetPosition 设置初始位置（出生点）
func (p *Predictor) SetPosition(pos core.Vec2) {
	p.state.Position = pos
}

// Update 按渲染帧推进：累积 dt，消费整数个固定步
// 返回本帧消费的步数
func (p *Predictor) Update(dt float64, flags byte) int {
	p.accumulator += dt
	steps := 0
	for p.accumulator >= p.fixedDelta {
		p.step(flags)
		p.accumulator -= p.fixedDelta
		steps++
	}
	return steps
}

// step 单个固定步：立即应用本地移动，再决定是否提交输入
// 移动量只用固定步长，绝不用渲染帧的可变 dt
func (p *Predictor) step(flags byte) {
	flags &= core.DirectionMask
	positionBefore := p.state.Position
	p.state.Position = core.ApplyMovement(p.state.Position, flags, p.speed, p.fixedDelta)
	p.tick++

	changed := !p.sentAny || flags != p.lastSentFlags
	allowed := p.limiter.AllowN(p.now(), 1)
	if changed || allowed {
		// 掩码变化立即发送——尤其是松键归零，服务器必须第一时间知道停止
		p.submit(flags, positionBefore)
	}
}

// submit 提交输入：分配序号 → 记入环形缓冲（记录移动前位置）→ 发送
// 返回分配的序号，发送层缺失时返回 0
func (p *Predictor) submit(flags byte, positionBefore core.Vec2) uint32 {
	if p.sender == nil {
		return 0
	}

	seq := p.seq.Next()
	now := p.now()

	p.history.Record(InputSample{
		Sequence:       seq,
		Flags:          flags,
		PositionBefore: positionBefore,
		CapturedAt:     now,
		DeltaTime:      p.fixedDelta,
	})

	pkt := protocol.NewPlayerInputPacket(&protocol.PlayerInput{
		TickHint: p.tick,
		TimeHint: now.UnixMilli(),
		Flags:    flags,
		Sequence: seq,
	})
	if err := p.sender.SendPacket(pkt); err != nil {
		// 写失败会以断开事件的形式在下一步浮现，这里只记录
		logger.Log.Debugf("发送输入失败: seq=%d: %v", seq, err)
	}

	p.lastSentFlags = flags
	p.sentAny = true
	return seq
}
