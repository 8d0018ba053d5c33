package client

import (
	"zonewalker/pkg/core"
	"zonewalker/pkg/protocol"
)

// remoteSnapshot 远端实体状态快照（插值缓冲条目）
type remoteSnapshot struct {
	timestamp int64 // 服务器时间（毫秒）
	position  core.Vec2
	velocity  core.Vec2
	rotation  float64
}

// RemoteSmoother 单个远端实体的插值与航位推测
type RemoteSmoother struct {
	buffer               []remoteSnapshot
	lastVelocity         core.Vec2
	interpolationDelayMs int64
}

// NewRemoteSmoother 创建插值缓冲器
func NewRemoteSmoother() *RemoteSmoother {
	return &RemoteSmoother{
		buffer:               make([]remoteSnapshot, 0, interpolationBufferSize),
		interpolationDelayMs: DefaultInterpolationDelayMs,
	}
}

// Push 添加状态快照到缓冲区
func (s *RemoteSmoother) Push(timestamp int64, position, velocity core.Vec2, rotation float64) {
	// 估算速度（用于航位推测）
	if len(s.buffer) > 0 {
		last := s.buffer[len(s.buffer)-1]
		if dt := float64(timestamp - last.timestamp); dt > 0 {
			s.lastVelocity = position.Sub(last.position).Scale(1 / dt)
		}
	}

	s.buffer = append(s.buffer, remoteSnapshot{
		timestamp: timestamp,
		position:  position,
		velocity:  velocity,
		rotation:  rotation,
	})
	if len(s.buffer) > interpolationBufferSize {
		s.buffer = s.buffer[1:]
	}
}

// Sample 按服务器时间取插值后的显示状态
// 渲染时间 = 服务器时间 - 插值延迟；缓冲不足时退化为航位推测
func (s *RemoteSmoother) Sample(serverTimeMs int64) (core.Vec2, float64, bool) {
	if len(s.buffer) == 0 {
		return core.Vec2{}, 0, false
	}

	renderTime := serverTimeMs - s.interpolationDelayMs

	// 在缓冲区中找 renderTime 两侧的快照
	for i := 0; i < len(s.buffer)-1; i++ {
		prev, next := s.buffer[i], s.buffer[i+1]
		if prev.timestamp <= renderTime && renderTime <= next.timestamp {
			total := float64(next.timestamp - prev.timestamp)
			if total <= 0 {
				break
			}
			alpha := float64(renderTime-prev.timestamp) / total
			pos := prev.position.Add(next.position.Sub(prev.position).Scale(alpha))
			s.cleanup(renderTime)
			return pos, next.rotation, true
		}
	}

	// 渲染时间超出缓冲范围：基于最后速度做有限时长的航位推测
	last := s.buffer[len(s.buffer)-1]
	elapsed := serverTimeMs - last.timestamp
	if elapsed > 0 && elapsed <= deadReckoningMaxMs {
		pos := last.position.Add(s.lastVelocity.Scale(float64(elapsed)))
		return pos, last.rotation, true
	}
	// 超时则停在最后已知位置
	return last.position, last.rotation, true
}

// cleanup 清理 renderTime 之前的过期快照，保留最后一个作插值起点
func (s *RemoteSmoother) cleanup(renderTime int64) {
	cutoff := -1
	for i := range s.buffer {
		if s.buffer[i].timestamp <= renderTime {
			cutoff = i
		} else {
			break
		}
	}
	if cutoff > 0 {
		s.buffer = s.buffer[cutoff:]
	}
}

// RemoteEntityState 远端实体的显示状态
type RemoteEntityState struct {
	EntityID  uint64
	Position  core.Vec2
	Rotation  float64
	Health    int32
	MaxHealth int32
}

// RemoteEntityManager 远端实体集合，默认的 RemoteSync 实现
// 快照状态进插值缓冲，每帧按估算的服务器时间采样出显示位置
type RemoteEntityManager struct {
	tickRate  int
	smoothers map[uint64]*RemoteSmoother
	states    map[uint64]*RemoteEntityState
}

// NewRemoteEntityManager 创建远端实体管理器
func NewRemoteEntityManager(tickRate int) *RemoteEntityManager {
	return &RemoteEntityManager{
		tickRate:  tickRate,
		smoothers: make(map[uint64]*RemoteSmoother),
		states:    make(map[uint64]*RemoteEntityState),
	}
}

// SyncEntity 实现 RemoteSync：把快照里的远端实体状态压入插值缓冲
func (m *RemoteEntityManager) SyncEntity(tick uint64, ent protocol.EntityState) {
	smoother, ok := m.smoothers[ent.EntityID]
	if !ok {
		smoother = NewRemoteSmoother()
		m.smoothers[ent.EntityID] = smoother
		m.states[ent.EntityID] = &RemoteEntityState{EntityID: ent.EntityID}
	}

	timestamp := int64(tick) * 1000 / int64(m.tickRate)
	smoother.Push(timestamp,
		core.Vec2{X: ent.X, Y: ent.Y},
		core.Vec2{X: ent.VelX, Y: ent.VelY},
		ent.Rotation)

	state := m.states[ent.EntityID]
	state.Health = ent.Health
	state.MaxHealth = ent.MaxHealth
}

// Update 每帧推进：按服务器时间采样所有远端实体的显示位置
func (m *RemoteEntityManager) Update(serverTimeMs int64) {
	for id, smoother := range m.smoothers {
		if pos, rot, ok := smoother.Sample(serverTimeMs); ok {
			m.states[id].Position = pos
			m.states[id].Rotation = rot
		}
	}
}

// Remove 移除离开的实体
func (m *RemoteEntityManager) Remove(entityID uint64) {
	delete(m.smoothers, entityID)
	delete(m.states, entityID)
}

// Entities 当前所有远端实体的显示状态
func (m *RemoteEntityManager) Entities() []RemoteEntityState {
	out := make([]RemoteEntityState, 0, len(m.states))
	for _, s := range m.states {
		out = append(out, *s)
	}
	return out
}
