package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig 客户端配置（YAML 由 cmd 加载，核心只接收结构体）
type ClientConfig struct {
	ServerAddr string `yaml:"server_addr"`
	Proto      string `yaml:"proto"` // tcp 或 kcp
	PlayerName string `yaml:"player_name"`
	ZoneID     uint32 `yaml:"zone_id"`
	LogFile    string `yaml:"log_file"`
	Debug      bool   `yaml:"debug"`

	// 模拟参数
	TickRate  int     `yaml:"tick_rate"`  // 每秒模拟步数，须与服务器一致
	MoveSpeed float64 `yaml:"move_speed"` // 世界单位/秒

	// 输入发送与和解参数
	MinSendInterval    time.Duration `yaml:"min_send_interval"`    // 最小输入发送间隔
	ReconcileThreshold float64       `yaml:"reconcile_threshold"`  // 和解距离阈值（世界单位）
	InputHistorySize   int           `yaml:"input_history_size"`   // 输入环形缓冲容量
	MaxInputAge        time.Duration `yaml:"max_input_age"`        // 重放输入最大年龄
}

// ServerConfig 服务器配置
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	Proto      string `yaml:"proto"`
	LogFile    string `yaml:"log_file"`
	Debug      bool   `yaml:"debug"`

	TickRate   int     `yaml:"tick_rate"`
	MoveSpeed  float64 `yaml:"move_speed"`
	MaxPlayers int     `yaml:"max_players"`
}

// LoadClient 加载并校验客户端配置
func LoadClient(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadServer 加载并校验服务器配置
func LoadServer(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 填充默认值并校验
func (c *ClientConfig) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server_addr must be set")
	}
	if c.Proto == "" {
		c.Proto = "tcp"
	}
	if c.Proto != "tcp" && c.Proto != "kcp" {
		return fmt.Errorf("proto must be tcp or kcp, got %q", c.Proto)
	}
	if c.PlayerName == "" {
		c.PlayerName = "player"
	}
	if c.TickRate <= 0 {
		c.TickRate = 30
	}
	if c.MoveSpeed <= 0 {
		c.MoveSpeed = 5.0
	}
	if c.MinSendInterval <= 0 {
		c.MinSendInterval = 100 * time.Millisecond
	}
	if c.ReconcileThreshold <= 0 {
		c.ReconcileThreshold = 0.5
	}
	if c.InputHistorySize <= 0 {
		c.InputHistorySize = 60
	}
	if c.MaxInputAge <= 0 {
		c.MaxInputAge = 5 * time.Second
	}
	return nil
}

// Validate 填充默认值并校验
func (c *ServerConfig) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9000"
	}
	if c.Proto == "" {
		c.Proto = "tcp"
	}
	if c.Proto != "tcp" && c.Proto != "kcp" {
		return fmt.Errorf("proto must be tcp or kcp, got %q", c.Proto)
	}
	if c.TickRate <= 0 {
		c.TickRate = 30
	}
	if c.MoveSpeed <= 0 {
		c.MoveSpeed = 5.0
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 64
	}
	return nil
}
