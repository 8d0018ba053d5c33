package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"zonewalker/internal/logger"
	"zonewalker/pkg/core"
	"zonewalker/pkg/protocol"
)

// 快照事件类型（客户端只路由不解释，这里给出服务器使用的几种）
const (
	EventKindSpawn uint32 = iota + 1
	EventKindDespawn
)

// playerEntity 世界中的一个玩家实体
type playerEntity struct {
	conn     *Connection
	entityID uint64
	name     string

	zoneID uint32
	inZone bool

	position         core.Vec2
	flags            byte // 最近收到的方向掩码，每 tick 持续生效
	lastProcessedSeq uint32

	health    int32
	maxHealth int32

	justSpawned bool
}

// World 权威世界：固定步长 tick 循环 + 每 tick 快照广播
// 客户端对输入的预测最终以这里的模拟结果为准
type World struct {
	mu      sync.Mutex
	players map[uint64]*playerEntity

	tick atomic.Uint64

	tickDuration time.Duration
	fixedDelta   float64
	moveSpeed    float64
	tickRate     int
}

// NewWorld 创建世界
func NewWorld(tickRate int, moveSpeed float64) *World {
	return &World{
		players:      make(map[uint64]*playerEntity),
		tickDuration: time.Second / time.Duration(tickRate),
		fixedDelta:   1.0 / float64(tickRate),
		moveSpeed:    moveSpeed,
		tickRate:     tickRate,
	}
}

// Tick 当前 tick
func (w *World) Tick() uint64 {
	return w.tick.Load()
}

// TickRate 每秒 tick 数
func (w *World) TickRate() int {
	return w.tickRate
}

// Run tick 循环，ctx 取消后退出
func (w *World) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(w.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Step()
		}
	}
}

// Step 单个权威 tick：推进所有在区玩家的位置，然后广播快照
// 移动用与客户端完全相同的 ApplyMovement 与固定步长
func (w *World) Step() {
	w.mu.Lock()
	defer w.mu.Unlock()

	tick := w.tick.Add(1)

	for _, p := range w.players {
		if !p.inZone {
			continue
		}
		p.position = core.ApplyMovement(p.position, p.flags, w.moveSpeed, w.fixedDelta)
	}

	w.broadcastSnapshotsLocked(tick)
}

// broadcastSnapshotsLocked 按区域组快照，按接收者个性化确认水位
func (w *World) broadcastSnapshotsLocked(tick uint64) {
	type zoneData struct {
		entities []protocol.EntityState
		events   []protocol.GameEvent
	}
	zones := make(map[uint32]*zoneData)

	for _, p := range w.players {
		if !p.inZone {
			continue
		}
		z, ok := zones[p.zoneID]
		if !ok {
			z = &zoneData{}
			zones[p.zoneID] = z
		}
		vel := core.DirectionOf(p.flags).Scale(w.moveSpeed)
		z.entities = append(z.entities, protocol.EntityState{
			EntityID:  p.entityID,
			X:         p.position.X,
			Y:         p.position.Y,
			VelX:      vel.X,
			VelY:      vel.Y,
			Health:    p.health,
			MaxHealth: p.maxHealth,
		})
		if p.justSpawned {
			p.justSpawned = false
			z.events = append(z.events, protocol.GameEvent{
				Kind:     EventKindSpawn,
				SourceID: p.entityID,
			})
		}
	}

	for _, p := range w.players {
		if !p.inZone {
			continue
		}
		z := zones[p.zoneID]
		pkt := protocol.NewWorldSnapshotPacket(&protocol.WorldSnapshot{
			Tick:             tick,
			LastProcessedSeq: p.lastProcessedSeq,
			Entities:         z.entities,
			Events:           z.events,
		})
		if err := p.conn.SendPacket(pkt); err != nil {
			// 队列满说明该连接消费不过来，丢这份快照即可，下个 tick 还有
			logger.Log.Debugf("玩家 %d: 快照发送失败: %v", p.entityID, err)
		}
	}
}

// Join 登录后把玩家挂进世界（尚未进入任何区域）
func (w *World) Join(entityID uint64, name string, conn *Connection) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.players[entityID] = &playerEntity{
		conn:      conn,
		entityID:  entityID,
		name:      name,
		health:    100,
		maxHealth: 100,
	}
}

// EnterZone 玩家进入区域：定出生点、回确认、向同区广播加入
func (w *World) EnterZone(entityID uint64, zoneID uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[entityID]
	if !ok {
		return errNoSuchPlayer(entityID)
	}

	p.zoneID = zoneID
	p.inZone = true
	p.position = spawnPosition(zoneID)
	p.flags = 0
	p.justSpawned = true

	_ = p.conn.SendPacket(protocol.NewZoneEnteredPacket(&protocol.ZoneEntered{
		ZoneID:   zoneID,
		EntityID: entityID,
		SpawnX:   p.position.X,
		SpawnY:   p.position.Y,
	}))

	join := protocol.NewPlayerJoinPacket(&protocol.PlayerJoin{
		EntityID: entityID,
		Name:     p.name,
		X:        p.position.X,
		Y:        p.position.Y,
	})
	for _, other := range w.players {
		if other.entityID != entityID && other.inZone && other.zoneID == zoneID {
			_ = other.conn.SendPacket(join)
		}
	}

	logger.Log.Infof("玩家 %d (%s) 进入区域 %d", entityID, p.name, zoneID)
	return nil
}

// ApplyInput 应用一条输入：方向掩码持续生效到下一条输入，水位按回绕比较推进
func (w *World) ApplyInput(entityID uint64, input *protocol.PlayerInput) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[entityID]
	if !ok || !p.inZone {
		return
	}

	p.flags = input.Flags & core.DirectionMask
	if input.Sequence != 0 && seqNewer(input.Sequence, p.lastProcessedSeq) {
		p.lastProcessedSeq = input.Sequence
	}
}

// BroadcastChat 向同区玩家广播聊天
func (w *World) BroadcastChat(entityID uint64, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[entityID]
	if !ok {
		return
	}

	pkt := protocol.NewChatMessagePacket(&protocol.ChatMessage{
		PlayerID: entityID,
		Name:     p.name,
		Text:     text,
	})
	for _, other := range w.players {
		if other.inZone && other.zoneID == p.zoneID {
			_ = other.conn.SendPacket(pkt)
		}
	}
}

// Leave 玩家离开：移除实体并向同区广播
func (w *World) Leave(entityID uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[entityID]
	if !ok {
		return
	}
	delete(w.players, entityID)

	if !p.inZone {
		return
	}
	leave := protocol.NewPlayerLeavePacket(entityID)
	for _, other := range w.players {
		if other.inZone && other.zoneID == p.zoneID {
			_ = other.conn.SendPacket(leave)
		}
	}
	logger.Log.Infof("玩家 %d 离开区域 %d", entityID, p.zoneID)
}

// PlayerCount 当前玩家数
func (w *World) PlayerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players)
}

// PlayerPosition 查询玩家位置（测试与诊断用）
func (w *World) PlayerPosition(entityID uint64) (core.Vec2, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[entityID]
	if !ok {
		return core.Vec2{}, false
	}
	return p.position, true
}

// LastProcessedSeq 查询玩家的确认水位（测试与诊断用）
func (w *World) LastProcessedSeq(entityID uint64) uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.players[entityID]; ok {
		return p.lastProcessedSeq
	}
	return 0
}

// spawnPosition 区域出生点（确定性，便于测试）
func spawnPosition(zoneID uint32) core.Vec2 {
	return core.Vec2{X: float64(zoneID) * 100, Y: 0}
}

// seqNewer 回绕安全的序号比较
func seqNewer(a, b uint32) bool {
	return int32(a-b) > 0
}
