package server

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 会话票据相关配置
const (
	// 票据有效期：30 分钟
	SessionTTL = 30 * time.Minute

	// 票据签发者
	ticketIssuer = "zonewalker-server"
)

// Claims 会话票据的自定义声明
type Claims struct {
	PlayerID uint64 `json:"player_id"`
	ZoneID   uint32 `json:"zone_id,omitempty"`
	jwt.RegisteredClaims
}

// getSigningKey 获取签名密钥
// 从环境变量 ZONEWALKER_JWT_SECRET 读取，不存在时使用开发默认值
func getSigningKey() []byte {
	secret := os.Getenv("ZONEWALKER_JWT_SECRET")
	if secret == "" {
		secret = "zonewalker-dev-secret-change-in-production"
	}
	return []byte(secret)
}

// GenerateSessionTicket 为玩家签发会话票据
func GenerateSessionTicket(playerID uint64, zoneID uint32) (string, error) {
	now := time.Now()
	claims := Claims{
		PlayerID: playerID,
		ZoneID:   zoneID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ticketIssuer,
			Subject:   fmt.Sprintf("player-%d", playerID),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getSigningKey())
}

// VerifySessionTicket 验证并解析票据，返回玩家 ID 与区域 ID
func VerifySessionTicket(ticket string) (uint64, uint32, error) {
	token, err := jwt.ParseWithClaims(ticket, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getSigningKey(), nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("ticket parsing failed: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims.PlayerID, claims.ZoneID, nil
	}
	return 0, 0, fmt.Errorf("invalid ticket")
}
