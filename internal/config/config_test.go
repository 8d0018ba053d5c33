package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClientConfigDefaults(t *testing.T) {
	cfg := &ClientConfig{ServerAddr: "127.0.0.1:9000"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Proto != "tcp" {
		t.Errorf("Proto = %q, want tcp", cfg.Proto)
	}
	if cfg.TickRate != 30 {
		t.Errorf("TickRate = %d, want 30", cfg.TickRate)
	}
	if cfg.MoveSpeed != 5.0 {
		t.Errorf("MoveSpeed = %v, want 5.0", cfg.MoveSpeed)
	}
	if cfg.MinSendInterval != 100*time.Millisecond {
		t.Errorf("MinSendInterval = %v", cfg.MinSendInterval)
	}
	if cfg.ReconcileThreshold != 0.5 {
		t.Errorf("ReconcileThreshold = %v", cfg.ReconcileThreshold)
	}
	if cfg.InputHistorySize != 60 {
		t.Errorf("InputHistorySize = %d", cfg.InputHistorySize)
	}
	if cfg.MaxInputAge != 5*time.Second {
		t.Errorf("MaxInputAge = %v", cfg.MaxInputAge)
	}
}

func TestClientConfigRejectsBadInput(t *testing.T) {
	if err := (&ClientConfig{}).Validate(); err == nil {
		t.Error("missing server_addr accepted")
	}
	cfg := &ClientConfig{ServerAddr: "x", Proto: "udp"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown proto accepted")
	}
}

func TestServerConfigDefaults(t *testing.T) {
	cfg := &ServerConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.ListenAddr != ":9000" || cfg.Proto != "tcp" || cfg.TickRate != 30 || cfg.MaxPlayers != 64 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadClientFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	body := `
server_addr: "game.example.com:9000"
proto: kcp
player_name: alice
tick_rate: 60
reconcile_threshold: 0.1
min_send_interval: 50ms
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	if cfg.ServerAddr != "game.example.com:9000" || cfg.Proto != "kcp" || cfg.TickRate != 60 {
		t.Errorf("loaded = %+v", cfg)
	}
	if cfg.ReconcileThreshold != 0.1 || cfg.MinSendInterval != 50*time.Millisecond {
		t.Errorf("loaded thresholds = %v / %v", cfg.ReconcileThreshold, cfg.MinSendInterval)
	}
	// 未出现的键落默认值
	if cfg.InputHistorySize != 60 {
		t.Errorf("InputHistorySize = %d, want default 60", cfg.InputHistorySize)
	}
}

func TestLoadClientMissingFile(t *testing.T) {
	if _, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
