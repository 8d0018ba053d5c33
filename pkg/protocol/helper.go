package protocol

import "errors"

// ========== 辅助构造方法 ==========

// NewLoginPacket 构造登录请求消息包
func NewLoginPacket(sessionTicket string, playerID uint64, name string) *Packet {
	return &Packet{
		Type:    MessageTypeLogin,
		Payload: appendLogin(nil, &Login{SessionTicket: sessionTicket, PlayerID: playerID, Name: name}),
	}
}

// NewLoginResponsePacket 构造登录响应消息包
func NewLoginResponsePacket(resp *LoginResponse) *Packet {
	return &Packet{
		Type:    MessageTypeLoginResponse,
		Payload: appendLoginResponse(nil, resp),
	}
}

// NewEnterZonePacket 构造进入区域请求消息包
func NewEnterZonePacket(zoneID uint32) *Packet {
	return &Packet{
		Type:    MessageTypeEnterZone,
		Payload: appendEnterZone(nil, &EnterZone{ZoneID: zoneID}),
	}
}

// NewZoneEnteredPacket 构造进入区域确认消息包
func NewZoneEnteredPacket(msg *ZoneEntered) *Packet {
	return &Packet{
		Type:    MessageTypeZoneEntered,
		Payload: appendZoneEntered(nil, msg),
	}
}

// NewPlayerInputPacket 构造输入消息包
func NewPlayerInputPacket(input *PlayerInput) *Packet {
	return &Packet{
		Type:    MessageTypePlayerInput,
		Payload: appendPlayerInput(nil, input),
	}
}

// NewWorldSnapshotPacket 构造世界快照消息包
func NewWorldSnapshotPacket(snapshot *WorldSnapshot) *Packet {
	return &Packet{
		Type:    MessageTypeWorldSnapshot,
		Payload: appendWorldSnapshot(nil, snapshot),
	}
}

// NewChatPacket 构造聊天消息包
func NewChatPacket(text string) *Packet {
	return &Packet{
		Type:    MessageTypeChat,
		Payload: appendChat(nil, &Chat{Text: text}),
	}
}

// NewChatMessagePacket 构造聊天广播消息包
func NewChatMessagePacket(msg *ChatMessage) *Packet {
	return &Packet{
		Type:    MessageTypeChatMessage,
		Payload: appendChatMessage(nil, msg),
	}
}

// NewPlayerJoinPacket 构造玩家加入广播消息包
func NewPlayerJoinPacket(msg *PlayerJoin) *Packet {
	return &Packet{
		Type:    MessageTypePlayerJoin,
		Payload: appendPlayerJoin(nil, msg),
	}
}

// NewPlayerLeavePacket 构造玩家离开广播消息包
func NewPlayerLeavePacket(entityID uint64) *Packet {
	return &Packet{
		Type:    MessageTypePlayerLeave,
		Payload: appendPlayerLeave(nil, &PlayerLeave{EntityID: entityID}),
	}
}

// NewPingPacket 构造心跳消息包
func NewPingPacket(clientTime int64) *Packet {
	return &Packet{
		Type:    MessageTypePing,
		Payload: appendPing(nil, &Ping{ClientTime: clientTime}),
	}
}

// NewPongPacket 构造心跳响应消息包
func NewPongPacket(clientTime, serverTime int64, serverTick uint64) *Packet {
	return &Packet{
		Type:    MessageTypePong,
		Payload: appendPong(nil, &Pong{ClientTime: clientTime, ServerTime: serverTime, ServerTick: serverTick}),
	}
}

// ========== 序列化与反序列化 ==========

// MarshalPacket 将 Packet 对象转换为字节切片
func MarshalPacket(pkt *Packet) []byte {
	return marshalPacket(pkt)
}

// UnmarshalPacket 将字节切片转换为 Packet 对象
func UnmarshalPacket(data []byte) (*Packet, error) {
	return unmarshalPacket(data)
}

// ========== 消息解析辅助 ==========

// ParseLogin 从 Packet 中解析 Login
func ParseLogin(pkt *Packet) (*Login, error) {
	if pkt.Type != MessageTypeLogin {
		return nil, errors.New("not a login message")
	}
	return unmarshalLogin(pkt.Payload)
}

// ParseLoginResponse 从 Packet 中解析 LoginResponse
func ParseLoginResponse(pkt *Packet) (*LoginResponse, error) {
	if pkt.Type != MessageTypeLoginResponse {
		return nil, errors.New("not a login response message")
	}
	return unmarshalLoginResponse(pkt.Payload)
}

// ParseEnterZone 从 Packet 中解析 EnterZone
func ParseEnterZone(pkt *Packet) (*EnterZone, error) {
	if pkt.Type != MessageTypeEnterZone {
		return nil, errors.New("not an enter zone message")
	}
	return unmarshalEnterZone(pkt.Payload)
}

// ParseZoneEntered 从 Packet 中解析 ZoneEntered
func ParseZoneEntered(pkt *Packet) (*ZoneEntered, error) {
	if pkt.Type != MessageTypeZoneEntered {
		return nil, errors.New("not a zone entered message")
	}
	return unmarshalZoneEntered(pkt.Payload)
}

// ParsePlayerInput 从 Packet 中解析 PlayerInput
func ParsePlayerInput(pkt *Packet) (*PlayerInput, error) {
	if pkt.Type != MessageTypePlayerInput {
		return nil, errors.New("not a player input message")
	}
	return unmarshalPlayerInput(pkt.Payload)
}

// ParseWorldSnapshot 从 Packet 中解析 WorldSnapshot
func ParseWorldSnapshot(pkt *Packet) (*WorldSnapshot, error) {
	if pkt.Type != MessageTypeWorldSnapshot {
		return nil, errors.New("not a world snapshot message")
	}
	return unmarshalWorldSnapshot(pkt.Payload)
}

// ParseChat 从 Packet 中解析 Chat
func ParseChat(pkt *Packet) (*Chat, error) {
	if pkt.Type != MessageTypeChat {
		return nil, errors.New("not a chat message")
	}
	return unmarshalChat(pkt.Payload)
}

// ParseChatMessage 从 Packet 中解析 ChatMessage
func ParseChatMessage(pkt *Packet) (*ChatMessage, error) {
	if pkt.Type != MessageTypeChatMessage {
		return nil, errors.New("not a chat broadcast message")
	}
	return unmarshalChatMessage(pkt.Payload)
}

// ParsePlayerJoin 从 Packet 中解析 PlayerJoin
func ParsePlayerJoin(pkt *Packet) (*PlayerJoin, error) {
	if pkt.Type != MessageTypePlayerJoin {
		return nil, errors.New("not a player join message")
	}
	return unmarshalPlayerJoin(pkt.Payload)
}

// ParsePlayerLeave 从 Packet 中解析 PlayerLeave
func ParsePlayerLeave(pkt *Packet) (*PlayerLeave, error) {
	if pkt.Type != MessageTypePlayerLeave {
		return nil, errors.New("not a player leave message")
	}
	return unmarshalPlayerLeave(pkt.Payload)
}

// ParsePing 从 Packet 中解析 Ping
func ParsePing(pkt *Packet) (*Ping, error) {
	if pkt.Type != MessageTypePing {
		return nil, errors.New("not a ping message")
	}
	return unmarshalPing(pkt.Payload)
}

// ParsePong 从 Packet 中解析 Pong
func ParsePong(pkt *Packet) (*Pong, error) {
	if pkt.Type != MessageTypePong {
		return nil, errors.New("not a pong message")
	}
	return unmarshalPong(pkt.Payload)
}
