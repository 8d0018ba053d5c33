package client

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session 会话状态：登录后由服务器下发的实体 ID 与会话票据
type Session struct {
	PlayerID uint64
	Name     string

	ticket    string
	expiresAt time.Time
}

// NewSession 创建会话
func NewSession(name string) *Session {
	return &Session{Name: name}
}

// Ticket 当前会话票据
func (s *Session) Ticket() string {
	return s.ticket
}

// SetTicket 保存服务器下发的票据，并在不校验签名的前提下读出过期时间
// （签名只由服务器校验，客户端只需要知道票据何时过期以便重新登录）
func (s *Session) SetTicket(ticket string) {
	s.ticket = ticket
	s.expiresAt = time.Time{}

	token, _, err := jwt.NewParser().ParseUnverified(ticket, &jwt.RegisteredClaims{})
	if err != nil {
		return
	}
	if claims, ok := token.Claims.(*jwt.RegisteredClaims); ok && claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
}

// Expired 票据是否已过期（没有票据也视为过期）
func (s *Session) Expired(now time.Time) bool {
	if s.ticket == "" {
		return true
	}
	return !s.expiresAt.IsZero() && now.After(s.expiresAt)
}
