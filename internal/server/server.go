package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"zonewalker/internal/config"
	"zonewalker/internal/logger"
	"zonewalker/pkg/protocol"
)

// 新连接接入速率上限，防御连接风暴
const (
	acceptRateLimit = 100
	acceptBurst     = 200
)

// GameServer 游戏服务器：监听、连接管理与权威世界
type GameServer struct {
	cfg      *config.ServerConfig
	listener ServerListener
	world    *World

	nextPlayerID atomic.Uint64
	acceptLimit  *rate.Limiter

	connMu sync.Mutex
	conns  map[*Connection]struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown atomic.Bool
}

// NewGameServer 创建服务器
func NewGameServer(cfg *config.ServerConfig) *GameServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &GameServer{
		cfg:         cfg,
		world:       NewWorld(cfg.TickRate, cfg.MoveSpeed),
		acceptLimit: rate.NewLimiter(rate.Limit(acceptRateLimit), acceptBurst),
		conns:       make(map[*Connection]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// World 权威世界（测试与诊断用）
func (s *GameServer) World() *World {
	return s.world
}

// Addr 实际监听地址，Start 之后有效
func (s *GameServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start 启动监听、世界循环与接入循环
func (s *GameServer) Start() error {
	listener, err := newListener(s.cfg.Proto, s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	s.listener = listener
	logger.Log.Infof("服务器启动: %s/%s, tick=%d", s.cfg.Proto, listener.Addr(), s.cfg.TickRate)

	s.wg.Add(1)
	go s.world.Run(s.ctx, &s.wg)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Shutdown 停止接入、断开所有连接并等待协程退出
func (s *GameServer) Shutdown() {
	if !s.shutdown.CompareAndSwap(false, true) {
		return
	}
	logger.Log.Info("服务器关闭中")

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	s.connMu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	logger.Log.Info("服务器已关闭")
}

// acceptLoop 接入循环
func (s *GameServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.shutdown.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Log.Warnf("接受连接失败: %v", err)
			continue
		}

		if !s.acceptLimit.Allow() {
			logger.Log.Warnf("接入限流，拒绝连接: %s", conn.RemoteAddr())
			conn.Close()
			continue
		}
		if s.world.PlayerCount() >= s.cfg.MaxPlayers {
			logger.Log.Warnf("玩家已满 (%d)，拒绝连接: %s", s.cfg.MaxPlayers, conn.RemoteAddr())
			conn.Close()
			continue
		}

		c := NewConnection(conn, s)
		s.connMu.Lock()
		s.conns[c] = struct{}{}
		s.connMu.Unlock()

		logger.Log.Infof("新连接: %s", conn.RemoteAddr())
		s.wg.Add(1)
		go func() {
			c.Handle(s.ctx, &s.wg)
			s.connMu.Lock()
			delete(s.conns, c)
			s.connMu.Unlock()
		}()
	}
}

// handleLogin 处理登录：有有效票据则恢复会话，否则分配新玩家 ID
func (s *GameServer) handleLogin(c *Connection, msg *protocol.Login) error {
	if c.PlayerID() != 0 {
		return fmt.Errorf("重复登录")
	}

	var playerID uint64
	if msg.SessionTicket != "" {
		id, _, err := VerifySessionTicket(msg.SessionTicket)
		if err != nil {
			logger.Log.Warnf("%s: 票据校验失败: %v", c, err)
			return c.SendPacket(protocol.NewLoginResponsePacket(&protocol.LoginResponse{
				Success:      false,
				ErrorMessage: "invalid session ticket",
			}))
		}
		playerID = id
		logger.Log.Infof("玩家 %d 凭票据重连", playerID)
	} else {
		playerID = s.nextPlayerID.Add(1)
	}

	ticket, err := GenerateSessionTicket(playerID, 0)
	if err != nil {
		return fmt.Errorf("签发票据失败: %w", err)
	}

	c.SetPlayerID(playerID)
	name := msg.Name
	if name == "" {
		name = fmt.Sprintf("player-%d", playerID)
	}
	s.world.Join(playerID, name, c)

	logger.Log.Infof("玩家 %d (%s) 登录成功", playerID, name)
	return c.SendPacket(protocol.NewLoginResponsePacket(&protocol.LoginResponse{
		Success:       true,
		PlayerID:      playerID,
		SessionTicket: ticket,
		TickRate:      uint32(s.cfg.TickRate),
	}))
}

// removePlayer 连接关闭后从世界移除玩家
func (s *GameServer) removePlayer(id uint64) {
	s.world.Leave(id)
}

func errNoSuchPlayer(id uint64) error {
	return fmt.Errorf("玩家 %d 不存在", id)
}
