package core

import "math"

// Vec2 二维向量（世界坐标，单位：世界单位）
type Vec2 struct {
	X float64
	Y float64
}

// Add 向量相加
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub 向量相减
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale 向量缩放
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Length 向量长度
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// DistanceTo 到另一点的距离
func (v Vec2) DistanceTo(o Vec2) float64 {
	return v.Sub(o).Length()
}

// IsZero 是否为零向量
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}
