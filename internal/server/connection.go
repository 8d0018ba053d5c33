package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"zonewalker/internal/logger"
	"zonewalker/pkg/protocol"
)

const (
	// MaxFrameSize 单帧上限，与客户端一致
	MaxFrameSize = 1 << 20 // 1 MiB

	readTimeout  = 30 * time.Second
	writeTimeout = 1 * time.Second

	heartbeatInterval = 5 * time.Second
	heartbeatTimeout  = 15 * time.Second
)

// ErrSendQueueFull 出站队列已满
var ErrSendQueueFull = errors.New("发送队列满")

// Connection 一个客户端连接：发送队列 + 接收循环 + 心跳
type Connection struct {
	conn   net.Conn
	server *GameServer

	playerID atomic.Uint64 // 0 表示未登录

	sendChan chan []byte
	closeCh  chan struct{}
	closed   bool
	closeMu  sync.Mutex

	lastRecvTime atomic.Value
}

// NewConnection 创建连接对象
func NewConnection(conn net.Conn, server *GameServer) *Connection {
	c := &Connection{
		conn:     conn,
		server:   server,
		sendChan: make(chan []byte, 256),
		closeCh:  make(chan struct{}),
	}
	c.lastRecvTime.Store(time.Now())
	return c
}

// PlayerID 已登录的玩家 ID，未登录为 0
func (c *Connection) PlayerID() uint64 {
	return c.playerID.Load()
}

// SetPlayerID 登录成功后绑定玩家 ID
func (c *Connection) SetPlayerID(id uint64) {
	c.playerID.Store(id)
}

// Handle 处理连接的整个生命周期
func (c *Connection) Handle(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	wg.Add(1)
	go c.sendLoop(ctx, wg)

	wg.Add(1)
	go c.receiveLoop(ctx, wg)

	wg.Add(1)
	go c.heartbeatLoop(ctx, wg)

	select {
	case <-ctx.Done():
	case <-c.closeCh:
	}
	c.Close()
}

// Close 关闭连接并从世界移除玩家，可重复调用
// 世界侧的移除在锁外执行：世界在持锁广播时会反向拿各连接的锁，
// 这里持锁进世界会构成环
func (c *Connection) Close() {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}
	c.closed = true
	close(c.closeCh)

	if c.conn != nil {
		c.conn.Close()
	}
	close(c.sendChan)
	c.closeMu.Unlock()

	if id := c.PlayerID(); id != 0 {
		c.server.removePlayer(id)
	}
	logger.Log.Infof("连接已关闭: %s", c)
}

// Send 入队一帧（异步发送）
func (c *Connection) Send(data []byte) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return fmt.Errorf("连接已关闭")
	}

	select {
	case c.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// SendPacket 序列化并入队一个消息包
func (c *Connection) SendPacket(pkt *protocol.Packet) error {
	return c.Send(protocol.MarshalPacket(pkt))
}

// sendLoop 发送循环：长度前缀 + 消息体
func (c *Connection) sendLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	var header [4]byte
	for {
		select {
		case <-ctx.Done():
			return

		case data, ok := <-c.sendChan:
			if !ok {
				return
			}

			binary.LittleEndian.PutUint32(header[:], uint32(int32(len(data))))
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := c.conn.Write(header[:]); err != nil {
				logger.Log.Warnf("%s: 发送长度失败: %v", c, err)
				c.Close()
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := c.conn.Write(data); err != nil {
				logger.Log.Warnf("%s: 发送数据失败: %v", c, err)
				c.Close()
				return
			}
		}
	}
}

// receiveLoop 接收循环：读长度 → 校验 → 读消息体 → 路由
func (c *Connection) receiveLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	var header [4]byte
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		if _, err := io.ReadFull(c.conn, header[:]); err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Log.Debugf("%s: 读取长度失败: %v", c, err)
			}
			c.Close()
			return
		}

		length := int32(binary.LittleEndian.Uint32(header[:]))
		if length <= 0 || length > MaxFrameSize {
			logger.Log.Warnf("%s: 非法帧长度 %d，断开", c, length)
			c.Close()
			return
		}

		data := make([]byte, length)
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		if _, err := io.ReadFull(c.conn, data); err != nil {
			logger.Log.Debugf("%s: 读取数据失败: %v", c, err)
			c.Close()
			return
		}

		c.lastRecvTime.Store(time.Now())
		if err := c.handleFrame(data); err != nil {
			// 单帧解码失败只丢这一帧，连接不动
			logger.Log.Warnf("%s: 处理消息失败: %v", c, err)
		}
	}
}

// handleFrame 解码并按消息类型路由
func (c *Connection) handleFrame(data []byte) error {
	pkt, err := protocol.UnmarshalPacket(data)
	if err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}

	switch pkt.Type {
	case protocol.MessageTypeLogin:
		msg, err := protocol.ParseLogin(pkt)
		if err != nil {
			return err
		}
		return c.server.handleLogin(c, msg)

	case protocol.MessageTypeEnterZone:
		msg, err := protocol.ParseEnterZone(pkt)
		if err != nil {
			return err
		}
		if c.PlayerID() == 0 {
			return fmt.Errorf("进入区域前未登录")
		}
		return c.server.world.EnterZone(c.PlayerID(), msg.ZoneID)

	case protocol.MessageTypePlayerInput:
		msg, err := protocol.ParsePlayerInput(pkt)
		if err != nil {
			return err
		}
		if c.PlayerID() != 0 {
			c.server.world.ApplyInput(c.PlayerID(), msg)
		}

	case protocol.MessageTypeChat:
		msg, err := protocol.ParseChat(pkt)
		if err != nil {
			return err
		}
		if c.PlayerID() != 0 {
			c.server.world.BroadcastChat(c.PlayerID(), msg.Text)
		}

	case protocol.MessageTypePing:
		// 客户端时钟同步：回 Pong 带服务器时间与 tick
		msg, err := protocol.ParsePing(pkt)
		if err != nil {
			return err
		}
		pong := protocol.NewPongPacket(msg.ClientTime, time.Now().UnixMilli(), c.server.world.Tick())
		return c.Send(protocol.MarshalPacket(pong))

	case protocol.MessageTypePong:
		// 心跳响应只用于刷新活性，lastRecvTime 已在上层更新

	default:
		// 未知判别码：记录并忽略
		logger.Log.Debugf("%s: 忽略未知消息类型 %d", c, pkt.Type)
	}
	return nil
}

// heartbeatLoop 周期性探活，超时则断开
func (c *Connection) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeCh:
			return
		case <-ticker.C:
			lastRecv, _ := c.lastRecvTime.Load().(time.Time)
			if !lastRecv.IsZero() && time.Since(lastRecv) > heartbeatTimeout {
				logger.Log.Warnf("%s: 心跳超时", c)
				c.Close()
				return
			}
			_ = c.Send(protocol.MarshalPacket(protocol.NewPingPacket(time.Now().UnixMilli())))
		}
	}
}

// String 连接的字符串表示
func (c *Connection) String() string {
	if id := c.PlayerID(); id != 0 {
		return fmt.Sprintf("Connection{%d, %s}", id, c.conn.RemoteAddr())
	}
	return fmt.Sprintf("Connection{%s}", c.conn.RemoteAddr())
}
