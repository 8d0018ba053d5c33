package core

// 模拟帧率（客户端与服务器必须一致）
const (
	TickRate       = 30
	FixedDeltaTime = 1.0 / float64(TickRate)
)

// 玩家移动配置
const (
	// 默认移动速度（世界单位/秒）
	DefaultMoveSpeed = 5.0
)
