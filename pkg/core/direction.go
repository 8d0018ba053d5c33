package core

// 方向位掩码（PlayerInput.Flags 的低 4 位）
const (
	FlagUp    byte = 1 << 0
	FlagDown  byte = 1 << 1
	FlagLeft  byte = 1 << 2
	FlagRight byte = 1 << 3

	// DirectionMask 只保留方向位，高 4 位预留
	DirectionMask byte = FlagUp | FlagDown | FlagLeft | FlagRight
)

// 斜向移动归一化系数（1/√2），避免斜向速度变快
const diagonalFactor = 0.70710678

// directionTable 16 种方向组合的预计算查表
// 相反方向互相抵消（上+下 => 零向量），斜向按 1/√2 归一化
var directionTable [16]Vec2

func init() {
	for mask := 0; mask < 16; mask++ {
		flags := byte(mask)
		var dx, dy float64
		if flags&FlagUp != 0 {
			dy += 1
		}
		if flags&FlagDown != 0 {
			dy -= 1
		}
		if flags&FlagLeft != 0 {
			dx -= 1
		}
		if flags&FlagRight != 0 {
			dx += 1
		}
		if dx != 0 && dy != 0 {
			dx *= diagonalFactor
			dy *= diagonalFactor
		}
		directionTable[mask] = Vec2{X: dx, Y: dy}
	}
}

// DirectionOf 将 4 位输入掩码映射为单位/零移动向量
// 纯函数，无副作用，高位自动丢弃
func DirectionOf(flags byte) Vec2 {
	return directionTable[flags&DirectionMask]
}

// ApplyMovement 单步移动：pos + DirectionOf(flags) * speed * dt
// 预测、重放、服务器权威模拟共用这一个函数，保证三条路径数值一致
func ApplyMovement(pos Vec2, flags byte, speed, dt float64) Vec2 {
	return pos.Add(DirectionOf(flags).Scale(speed * dt))
}
