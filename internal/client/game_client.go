package client

import (
	"errors"
	"fmt"
	"time"

	"zonewalker/internal/logger"
	"zonewalker/pkg/core"
	"zonewalker/pkg/protocol"
)

// Config 核心运行参数，由外部装配后传入（核心自身不读配置文件）
type Config struct {
	ServerAddr string
	Proto      string
	PlayerName string
	ZoneID     uint32

	TickRate  int     // 每秒固定步数，须与服务器一致
	MoveSpeed float64 // 世界单位/秒

	MinSendInterval    time.Duration
	ReconcileThreshold float64
	InputHistorySize   int
	MaxInputAge        time.Duration
}

func (c *Config) normalize() {
	if c.Proto == "" {
		c.Proto = "tcp"
	}
	if c.TickRate <= 0 {
		c.TickRate = core.TickRate
	}
	if c.MoveSpeed <= 0 {
		c.MoveSpeed = core.DefaultMoveSpeed
	}
	if c.MinSendInterval <= 0 {
		c.MinSendInterval = DefaultMinSendInterval
	}
	if c.ReconcileThreshold <= 0 {
		c.ReconcileThreshold = DefaultReconcileThreshold
	}
	if c.InputHistorySize <= 0 {
		c.InputHistorySize = DefaultInputHistorySize
	}
	if c.MaxInputAge <= 0 {
		c.MaxInputAge = DefaultMaxInputAge
	}
}

func (c *Config) fixedDelta() float64 {
	return 1.0 / float64(c.TickRate)
}

// 客户端主动心跳间隔（用于时钟同步与 RTT 估算）
const pingInterval = 5 * time.Second

// GameClient 客户端核心的装配根
// 显式持有各组件句柄并注入模拟循环，不依赖任何全局单例；
// 所有状态归模拟线程所有，网络接收隔离在传输层的后台协程里
type GameClient struct {
	cfg Config

	network    *NetworkClient
	session    *Session
	seq        Sequence
	history    *InputHistory
	predictor  *Predictor
	reconciler *Reconciler
	dispatcher *SnapshotDispatcher
	remotes    *RemoteEntityManager

	now func() time.Time

	// 服务器时钟同步（由 Pong 驱动）
	clockSynced        bool
	serverTimeOffsetMs int64
	rttMs              int64
	lastPingAt         time.Time

	zoneID  uint32
	inZone  bool
	stopped bool

	// 外部协作方回调（均可为 nil）
	OnChat        func(msg *protocol.ChatMessage)
	OnPlayerJoin  func(msg *protocol.PlayerJoin)
	OnPlayerLeave func(entityID uint64)
	OnEvents      func(tick uint64, events []protocol.GameEvent)
	OnDisconnect  func(err error)
}

// NewGameClient 装配客户端核心
// now 为注入时钟，传 nil 使用真实时钟
func NewGameClient(cfg Config, now func() time.Time) *GameClient {
	cfg.normalize()
	if now == nil {
		now = time.Now
	}

	gc := &GameClient{
		cfg:     cfg,
		network: NewNetworkClient(cfg.ServerAddr, cfg.Proto),
		session: NewSession(cfg.PlayerName),
		history: NewInputHistory(cfg.InputHistorySize),
		remotes: NewRemoteEntityManager(cfg.TickRate),
		now:     now,
	}
	gc.predictor = NewPredictor(&cfg, &gc.seq, gc.history, gc.network, now)
	gc.reconciler = NewReconciler(&cfg, gc.predictor.State(), gc.history, now)
	gc.dispatcher = NewSnapshotDispatcher(gc.reconciler, gc.remotes, gc)
	return gc
}

// HandleEvents 实现 EventSink：把快照事件原样转给外部协作方
func (gc *GameClient) HandleEvents(tick uint64, events []protocol.GameEvent) {
	if gc.OnEvents != nil {
		gc.OnEvents(tick, events)
	}
}

// Connect 建立连接并完成登录握手
func (gc *GameClient) Connect() error {
	if err := gc.network.Connect(); err != nil {
		return err
	}

	login := protocol.NewLoginPacket(gc.session.Ticket(), gc.session.PlayerID, gc.session.Name)
	if err := gc.network.SendPacket(login); err != nil {
		gc.network.Close()
		return fmt.Errorf("发送登录请求失败: %w", err)
	}

	if err := gc.awaitLogin(); err != nil {
		gc.network.Close()
		return err
	}

	logger.Log.Infof("登录成功: 玩家 ID=%d", gc.session.PlayerID)
	return nil
}

// awaitLogin 轮询等待登录响应（连接阶段唯一的同步等待）
func (gc *GameClient) awaitLogin() error {
	deadline := gc.now().Add(loginTimeout)
	for gc.now().Before(deadline) {
		if err := gc.network.PollDisconnect(); err != nil {
			return err
		}
		for _, frame := range gc.network.Drain() {
			pkt, err := protocol.UnmarshalPacket(frame)
			if err != nil {
				logger.Log.Warnf("丢弃无法解析的帧: %v", err)
				continue
			}
			if pkt.Type != protocol.MessageTypeLoginResponse {
				// 握手期的其他消息走常规路径
				gc.handlePacket(pkt)
				continue
			}
			resp, err := protocol.ParseLoginResponse(pkt)
			if err != nil {
				return fmt.Errorf("解析登录响应失败: %w", err)
			}
			if !resp.Success {
				return fmt.Errorf("登录被拒绝: %s", resp.ErrorMessage)
			}
			if resp.TickRate != 0 && int(resp.TickRate) != gc.cfg.TickRate {
				logger.Log.Warnf("服务器 TPS=%d 与本地配置 %d 不一致", resp.TickRate, gc.cfg.TickRate)
			}
			gc.session.PlayerID = resp.PlayerID
			gc.session.SetTicket(resp.SessionTicket)
			gc.dispatcher.SetLocalEntityID(resp.PlayerID)
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("等待登录响应超时")
}

// EnterZone 请求进入区域，出生点由 ZoneEntered 消息回填
func (gc *GameClient) EnterZone(zoneID uint32) error {
	return gc.network.SendPacket(protocol.NewEnterZonePacket(zoneID))
}

// SendChat 发送聊天（与输入共用同一条发送路径与帧格式）
func (gc *GameClient) SendChat(text string) error {
	return gc.network.SendPacket(protocol.NewChatPacket(text))
}

// Step 模拟循环每帧调用一次
// dt 为真实流逝秒数，flags 为当前输入掩码
// 顺序固定：先消费入站帧（分发快照、处理事件），再推进预测，最后更新远端插值
func (gc *GameClient) Step(dt float64, flags byte) error {
	if gc.stopped {
		return ErrNotConnected
	}

	if err := gc.network.PollDisconnect(); err != nil {
		gc.stopped = true
		if gc.OnDisconnect != nil {
			gc.OnDisconnect(err)
		}
		return err
	}

	for _, frame := range gc.network.Drain() {
		pkt, err := protocol.UnmarshalPacket(frame)
		if err != nil {
			// 单帧解码失败只丢这一帧，连接不动
			logger.Log.Warnf("丢弃无法解析的帧: %v", err)
			continue
		}
		gc.handlePacket(pkt)
	}

	gc.predictor.Update(dt, flags)
	gc.remotes.Update(gc.estimatedServerTimeMs())
	gc.maybePing()
	return nil
}

// handlePacket 按消息类型路由
func (gc *GameClient) handlePacket(pkt *protocol.Packet) {
	switch pkt.Type {
	case protocol.MessageTypeWorldSnapshot:
		snapshot, err := protocol.ParseWorldSnapshot(pkt)
		if err != nil {
			logger.Log.Warnf("解析快照失败，丢弃: %v", err)
			return
		}
		gc.dispatcher.Dispatch(snapshot)

	case protocol.MessageTypeZoneEntered:
		msg, err := protocol.ParseZoneEntered(pkt)
		if err != nil {
			logger.Log.Warnf("解析进入区域确认失败: %v", err)
			return
		}
		gc.zoneID = msg.ZoneID
		gc.inZone = true
		gc.predictor.SetPosition(core.Vec2{X: msg.SpawnX, Y: msg.SpawnY})
		logger.Log.Infof("已进入区域 %d, 出生点 (%.1f, %.1f)", msg.ZoneID, msg.SpawnX, msg.SpawnY)

	case protocol.MessageTypePing:
		// 服务器心跳：原样回显时间戳
		ping, err := protocol.ParsePing(pkt)
		if err != nil {
			return
		}
		_ = gc.network.SendPacket(protocol.NewPongPacket(ping.ClientTime, 0, 0))

	case protocol.MessageTypePong:
		pong, err := protocol.ParsePong(pkt)
		if err != nil {
			return
		}
		gc.onPong(pong)

	case protocol.MessageTypeChatMessage:
		msg, err := protocol.ParseChatMessage(pkt)
		if err != nil {
			logger.Log.Warnf("解析聊天广播失败: %v", err)
			return
		}
		if gc.OnChat != nil {
			gc.OnChat(msg)
		}

	case protocol.MessageTypePlayerJoin:
		msg, err := protocol.ParsePlayerJoin(pkt)
		if err != nil {
			return
		}
		if gc.OnPlayerJoin != nil {
			gc.OnPlayerJoin(msg)
		}

	case protocol.MessageTypePlayerLeave:
		msg, err := protocol.ParsePlayerLeave(pkt)
		if err != nil {
			return
		}
		gc.remotes.Remove(msg.EntityID)
		if gc.OnPlayerLeave != nil {
			gc.OnPlayerLeave(msg.EntityID)
		}

	case protocol.MessageTypeLoginResponse:
		// 握手已结束，迟到的登录响应只记录
		logger.Log.Debugf("忽略迟到的登录响应")

	default:
		// 未知判别码：记录并忽略，保持前向兼容
		logger.Log.Debugf("忽略未知消息类型: %d", pkt.Type)
	}
}

// maybePing 周期性发送心跳做时钟同步
func (gc *GameClient) maybePing() {
	now := gc.now()
	if now.Sub(gc.lastPingAt) < pingInterval {
		return
	}
	gc.lastPingAt = now
	_ = gc.network.SendPacket(protocol.NewPingPacket(now.UnixMilli()))
}

// onPong 用心跳响应更新 RTT 与服务器时钟偏移
func (gc *GameClient) onPong(pong *protocol.Pong) {
	if pong.ServerTime == 0 {
		return
	}
	nowMs := gc.now().UnixMilli()
	gc.rttMs = nowMs - pong.ClientTime
	gc.serverTimeOffsetMs = pong.ServerTime + gc.rttMs/2 - nowMs
	gc.clockSynced = true
}

// estimatedServerTimeMs 估算当前服务器时间（毫秒）
// 未完成时钟同步时退化为用最近接受的快照 tick 推算
func (gc *GameClient) estimatedServerTimeMs() int64 {
	if gc.clockSynced {
		return gc.now().UnixMilli() + gc.serverTimeOffsetMs
	}
	return int64(gc.dispatcher.LastAcceptedTick()) * 1000 / int64(gc.cfg.TickRate)
}

// Close 断开连接并释放资源，可重复调用
func (gc *GameClient) Close() {
	gc.stopped = true
	gc.network.Close()
}

// ========== 状态查询 ==========

// Position 当前预测位置
func (gc *GameClient) Position() core.Vec2 {
	return gc.predictor.State().Position
}

// AuthoritativePosition 最近一次权威位置及其有效性
func (gc *GameClient) AuthoritativePosition() (core.Vec2, bool) {
	st := gc.predictor.State()
	return st.AuthoritativePosition, st.HasAuthoritative
}

// RemoteEntities 远端实体的插值显示状态
func (gc *GameClient) RemoteEntities() []RemoteEntityState {
	return gc.remotes.Entities()
}

// RTT 最近估算的往返时延（毫秒）
func (gc *GameClient) RTT() int64 {
	return gc.rttMs
}

// Session 当前会话
func (gc *GameClient) Session() *Session {
	return gc.session
}
