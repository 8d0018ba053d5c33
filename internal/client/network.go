package client

import (
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

	kcp "github.com/xtaci/kcp-go/v5"
)

// ConnState 连接状态机：Disconnected → Connecting → Connected → Disconnected
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

var (
	// ErrNotConnected 连接未建立或已断开
	ErrNotConnected = errors.New("连接未建立")
	// ErrFrameTooLarge 出站帧超过上限
	ErrFrameTooLarge = errors.New("帧过大")
)

// NetworkClient 帧传输层：长度前缀二进制帧 + 后台接收协程 + 线程安全入站队列
//
// 线格式: [4 字节小端有符号长度 N][N 字节消息体]，N <= 0 或 N > 1MiB 视为致命错误
// 接收协程只做阻塞读和入队，其余状态全部归模拟线程所有
type NetworkClient struct {
	serverAddr string
	proto      string

	conn  net.Conn
	state atomic.Int32

	// 入站帧队列（唯一的跨线程共享结构：接收协程写，模拟线程 Drain 读）
	frames chan []byte

	// 断开通知，容量 1，模拟线程每步轮询
	disconnects chan error

	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewNetworkClient 创建网络客户端
func NewNetworkClient(serverAddr, proto string) *NetworkClient {
	nc := &NetworkClient{
		serverAddr:  serverAddr,
		proto:       proto,
		frames:      make(chan []byte, inboundQueueSize),
		disconnects: make(chan error, 1),
	}
	nc.state.Store(int32(StateDisconnected))
	return nc
}

// State 当前连接状态
func (nc *NetworkClient) State() ConnState {
	return ConnState(nc.state.Load())
}

// Connect 建立连接并启动接收协程
func (nc *NetworkClient) Connect() error {
	if nc.State() != StateDisconnected {
		return errors.New("连接已存在")
	}
	nc.state.Store(int32(StateConnecting))

	conn, err := nc.dial()
	if err != nil {
		nc.state.Store(int32(StateDisconnected))
		return fmt.Errorf("连接服务器失败: %w", err)
	}

	nc.conn = conn
	nc.state.Store(int32(StateConnected))
	logger.Log.Infof("已连接到服务器: %s (%s)", conn.RemoteAddr(), nc.proto)

	nc.wg.Add(1)
	go nc.receiveLoop()

	return nil
}

func (nc *NetworkClient) dial() (net.Conn, error) {
	switch nc.proto {
	case "", "tcp":
		conn, err := net.DialTimeout("tcp", nc.serverAddr, dialTimeout)
		if err != nil {
			return nil, err
		}
		// 禁用 Nagle 算法以减少输入延迟
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetNoDelay(true)
		}
		return conn, nil
	case "kcp":
		conn, err := kcp.DialWithOptions(nc.serverAddr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		conn.SetStreamMode(true)
		return conn, nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", nc.proto)
	}
}

// Send 发送一帧：4 字节长度前缀 + 消息体
// 任何写失败都走统一的断开路径；调用方视角为 fire-and-forget，
// 失败以断开事件的形式在下一模拟步被消费
func (nc *NetworkClient) Send(frame []byte) error {
	if nc.State() != StateConnected {
		return ErrNotConnected
	}
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(int32(len(frame))))

	if _, err := nc.conn.Write(header[:]); err != nil {
		nc.fail(fmt.Errorf("发送长度失败: %w", err))
		return err
	}
	if _, err := nc.conn.Write(frame); err != nil {
		nc.fail(fmt.Errorf("发送数据失败: %w", err))
		return err
	}
	return nil
}

// SendPacket 序列化并发送一个消息包
func (nc *NetworkClient) SendPacket(pkt *protocol.Packet) error {
	return nc.Send(protocol.MarshalPacket(pkt))
}

// Drain 取出自上次调用以来收到的全部帧，按接收顺序返回
// 非阻塞，每模拟步由拥有线程调用一次
func (nc *NetworkClient) Drain() [][]byte {
	var out [][]byte
	for {
		select {
		case frame := <-nc.frames:
			out = append(out, frame)
		default:
			return out
		}
	}
}

// PollDisconnect 取出待处理的断开事件，没有则返回 nil
func (nc *NetworkClient) PollDisconnect() error {
	select {
	case err := <-nc.disconnects:
		return err
	default:
		return nil
	}
}

// receiveLoop 接收协程：读长度 → 校验 → 读消息体 → 入队
// 任何一步失败（包括对端关闭的零字节读）都终止连接并发出断开通知
func (nc *NetworkClient) receiveLoop() {
	defer nc.wg.Done()

	var header [4]byte
	for {
		if _, err := io.ReadFull(nc.conn, header[:]); err != nil {
			nc.fail(readError("读取长度失败", err))
			return
		}

		length := int32(binary.LittleEndian.Uint32(header[:]))
		if length <= 0 || length > MaxFrameSize {
			// 不读取超限帧体的任何字节，直接断开
			nc.fail(fmt.Errorf("非法帧长度: %d", length))
			return
		}

		frame := make([]byte, length)
		if _, err := io.ReadFull(nc.conn, frame); err != nil {
			nc.fail(readError("读取数据失败", err))
			return
		}

		select {
		case nc.frames <- frame:
		default:
			// 队列满说明模拟线程停摆，丢弃并告警
			logger.Log.Warnf("入站帧队列已满，丢弃一帧 (%d bytes)", length)
		}
	}
}

func readError(prefix string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: 对端关闭连接", prefix)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}

// fail 统一断开路径：置状态、关底层连接、发断开通知
func (nc *NetworkClient) fail(err error) {
	if !nc.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		return
	}
	logger.Log.Warnf("连接断开: %v", err)
	if nc.conn != nil {
		nc.conn.Close()
	}
	select {
	case nc.disconnects <- err:
	default:
	}
}

// Close 关闭连接，等待接收协程退出（有界超时），可重复调用
func (nc *NetworkClient) Close() {
	nc.closeMu.Lock()
	if nc.closed {
		nc.closeMu.Unlock()
		return
	}
	nc.closed = true
	nc.closeMu.Unlock()

	nc.state.Store(int32(StateDisconnected))
	if nc.conn != nil {
		// 关闭底层流会让阻塞中的读带错误返回，从而结束接收协程
		nc.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		nc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(closeJoinTimeout):
		logger.Log.Warnf("等待接收协程退出超时")
	}

	logger.Log.Infof("网络客户端已关闭")
}
