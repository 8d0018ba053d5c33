package protocol

// MessageType 消息类型判别码，路由到具体消息种类
type MessageType uint32

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeLogin
	MessageTypeLoginResponse
	MessageTypeEnterZone
	MessageTypeZoneEntered
	MessageTypePlayerInput
	MessageTypeWorldSnapshot
	MessageTypeChat
	MessageTypeChatMessage
	MessageTypePlayerJoin
	MessageTypePlayerLeave
	MessageTypePing
	MessageTypePong
)

// Packet 统一消息封包：类型判别码 + 序列化后的消息体
type Packet struct {
	Type    MessageType
	Payload []byte
}

// ========== 客户端 → 服务器 ==========

// Login 登录请求，携带大厅下发的会话票据
type Login struct {
	SessionTicket string
	PlayerID      uint64
	Name          string
}

// EnterZone 进入区域请求
type EnterZone struct {
	ZoneID uint32
}

// PlayerInput 一次输入采样
// Flags 低 4 位为方向掩码，Sequence 为单调递增输入序号（0 表示无效）
type PlayerInput struct {
	TickHint uint64
	TimeHint int64
	Flags    byte
	AimX     float64
	AimY     float64
	Sequence uint32
	Reserved uint32
}

// Chat 聊天消息
type Chat struct {
	Text string
}

// Ping 心跳（双向，回显对端时间）
type Ping struct {
	ClientTime int64
}

// ========== 服务器 → 客户端 ==========

// LoginResponse 登录响应，下发玩家实体 ID 与会话票据
type LoginResponse struct {
	Success       bool
	PlayerID      uint64
	ErrorMessage  string
	SessionTicket string
	TickRate      uint32
}

// ZoneEntered 进入区域确认，携带出生点
type ZoneEntered struct {
	ZoneID   uint32
	EntityID uint64
	SpawnX   float64
	SpawnY   float64
}

// EntityState 快照内单个实体的状态
type EntityState struct {
	EntityID  uint64
	X         float64
	Y         float64
	VelX      float64
	VelY      float64
	Rotation  float64
	Health    int32
	MaxHealth int32
}

// GameEvent 离散游戏事件，本核心只做路由不解释语义
type GameEvent struct {
	Kind     uint32
	SourceID uint64
	TargetID uint64
	Value    float64
}

// WorldSnapshot 周期性权威快照
// Tick 必须严格递增，LastProcessedSeq 为服务器对本地输入流的确认水位
type WorldSnapshot struct {
	Tick             uint64
	LastProcessedSeq uint32
	Entities         []EntityState
	Events           []GameEvent
}

// ChatMessage 聊天广播
type ChatMessage struct {
	PlayerID uint64
	Name     string
	Text     string
}

// PlayerJoin 玩家加入广播
type PlayerJoin struct {
	EntityID uint64
	Name     string
	X        float64
	Y        float64
}

// PlayerLeave 玩家离开广播
type PlayerLeave struct {
	EntityID uint64
}

// Pong 心跳响应
type Pong struct {
	ClientTime int64
	ServerTime int64
	ServerTick uint64
}
