package client

import (
	"time"

	"zonewalker/internal/logger"
	"zonewalker/pkg/core"
	"zonewalker/pkg/protocol"
)

// Reconciler 和解引擎
// 每当被接受的快照包含本地实体时调用一次：决定是否需要纠正，
// 需要时重置到权威位置并按序重放所有未被确认的输入
type Reconciler struct {
	state   *PredictedState
	history *InputHistory

	fixedDelta float64
	speed      float64
	threshold  float64
	maxAge     time.Duration

	now func() time.Time
}

// NewReconciler 创建和解引擎，state 归 Predictor 所有，这里只借用
func NewReconciler(cfg *Config, state *PredictedState, history *InputHistory, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		state:      state,
		history:    history,
		fixedDelta: cfg.fixedDelta(),
		speed:      cfg.MoveSpeed,
		threshold:  cfg.ReconcileThreshold,
		maxAge:     cfg.MaxInputAge,
		now:        now,
	}
}

// OnAuthoritativeState 处理本地实体的权威状态
// 完成后不变式成立：预测位置 = 权威位置 + 所有未确认输入的效果，
// 即乐观的本地状态不会被每个快照抹掉
func (r *Reconciler) OnAuthoritativeState(ent *protocol.EntityState, lastProcessedSeq uint32) {
	authoritative := core.Vec2{X: ent.X, Y: ent.Y}

	// 无论是否纠正，权威位置与标志都要更新，供其他协作方查询
	r.state.AuthoritativePosition = authoritative
	r.state.HasAuthoritative = true

	distanceError := r.state.Position.DistanceTo(authoritative)
	unprocessed := r.history.UnprocessedSince(lastProcessedSeq, r.maxAge, r.now())

	if distanceError < r.threshold && len(unprocessed) == 0 {
		// 常见路径：误差在阈值内且没有待重放输入，不做任何纠正
		r.history.Prune(lastProcessedSeq)
		return
	}

	// 权威重置 + 确定性重放
	// 重放一律使用固定步长而不是样本自带的 DeltaTime，
	// 这样无论何时重放，结果与最初预测逐位一致
	r.state.Position = authoritative
	for _, sample := range unprocessed {
		r.state.Position = core.ApplyMovement(r.state.Position, sample.Flags, r.speed, r.fixedDelta)
	}

	if distanceError >= r.threshold {
		logger.Log.Debugf("和解纠正: 误差=%.3f 重放=%d 条", distanceError, len(unprocessed))
	}

	r.history.Prune(lastProcessedSeq)
}
