package client

import (
	"zonewalker/pkg/protocol"
)

// RemoteSync 远端实体协作方：接收除本地实体外所有实体的原样状态
type RemoteSync interface {
	SyncEntity(tick uint64, ent protocol.EntityState)
}

// EventSink 事件协作方：本核心只转发事件列表，不解释语义
type EventSink interface {
	HandleEvents(tick uint64, events []protocol.GameEvent)
}

// SnapshotDispatcher 快照分发器
// 先做单调 tick 过滤（乱序/重复快照整包丢弃），再按实体归属路由：
// 本地实体 → 和解引擎，其余 → 远端同步协作方，事件 → 事件协作方
type SnapshotDispatcher struct {
	localEntityID uint64
	lastTick      uint64

	reconciler *Reconciler
	remote     RemoteSync
	events     EventSink
}

// NewSnapshotDispatcher 创建分发器，remote 与 events 允许为 nil
func NewSnapshotDispatcher(reconciler *Reconciler, remote RemoteSync, events EventSink) *SnapshotDispatcher {
	return &SnapshotDispatcher{
		reconciler: reconciler,
		remote:     remote,
		events:     events,
	}
}

// SetLocalEntityID 登录完成后设置本地实体 ID
func (d *SnapshotDispatcher) SetLocalEntityID(id uint64) {
	d.localEntityID = id
}

// LastAcceptedTick 最近接受的快照 tick
func (d *SnapshotDispatcher) LastAcceptedTick() uint64 {
	return d.lastTick
}

// Dispatch 分发一个快照，返回是否被接受
// tick 不严格递增的快照静默丢弃——流式传输下这主要防上游的重复 tick bug，
// 属预期情况，不按错误记录
func (d *SnapshotDispatcher) Dispatch(snapshot *protocol.WorldSnapshot) bool {
	if snapshot.Tick <= d.lastTick {
		return false
	}
	d.lastTick = snapshot.Tick

	for i := range snapshot.Entities {
		ent := &snapshot.Entities[i]
		if ent.EntityID == d.localEntityID {
			d.reconciler.OnAuthoritativeState(ent, snapshot.LastProcessedSeq)
		} else if d.remote != nil {
			d.remote.SyncEntity(snapshot.Tick, *ent)
		}
	}

	if d.events != nil && len(snapshot.Events) > 0 {
		d.events.HandleEvents(snapshot.Tick, snapshot.Events)
	}
	return true
}
