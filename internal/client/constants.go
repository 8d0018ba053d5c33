package client

import "time"

// ===== 网络与预测配置（客户端专用默认值）=====
const (
	// 单帧最大字节数，超过视为协议错误并断开（简单的 DoS 防护）
	MaxFrameSize = 1 << 20 // 1 MiB

	// 入站帧队列容量：模拟线程每步 Drain 一次，正常情况远用不满
	inboundQueueSize = 256

	// 断开时等待接收协程退出的上限，避免关闭流程被卡死
	closeJoinTimeout = 2 * time.Second

	// 连接与登录握手超时
	dialTimeout  = 5 * time.Second
	loginTimeout = 10 * time.Second

	// 输入环形缓冲容量：按 30 TPS 约两秒的未确认输入
	DefaultInputHistorySize = 60

	// 未确认输入参与重放的最大年龄，超龄输入直接丢弃
	DefaultMaxInputAge = 5 * time.Second

	// 和解距离阈值（世界单位）：误差低于该值且无未确认输入时不做纠正
	DefaultReconcileThreshold = 0.5

	// 掩码不变时的最小输入重发间隔
	DefaultMinSendInterval = 100 * time.Millisecond
)

// ===== 远端实体插值配置 =====
const (
	// 插值缓冲延迟（毫秒）：远端实体渲染时间滞后于服务器时间
	DefaultInterpolationDelayMs int64 = 100

	// 插值缓冲区大小：每个远端实体保留最近 N 个状态
	interpolationBufferSize = 30

	// 航位推测最大时长（毫秒）：超过此时间未收到新状态则停在原地
	deadReckoningMaxMs int64 = 250
)
