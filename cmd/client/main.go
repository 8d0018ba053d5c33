package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zonewalker/internal/client"
	"zonewalker/internal/config"
	"zonewalker/internal/logger"
	"zonewalker/pkg/core"
	"zonewalker/pkg/protocol"
)

// 演示客户端：无渲染，按脚本绕圈行走并打印预测/权威位置
func main() {
	configPath := flag.String("config", "", "配置文件路径（YAML），不指定时使用默认值")
	addr := flag.String("addr", "", "服务器地址，覆盖配置文件")
	proto := flag.String("proto", "", "传输协议 tcp 或 kcp，覆盖配置文件")
	name := flag.String("name", "", "玩家名")
	zone := flag.Uint("zone", 1, "进入的区域 ID")
	debug := flag.Bool("debug", false, "输出调试日志")
	flag.Parse()

	var cfg *config.ClientConfig
	if *configPath != "" {
		loaded, err := config.LoadClient(*configPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		cfg = loaded
	} else {
		cfg = &config.ClientConfig{ServerAddr: "127.0.0.1:9000"}
		if err := cfg.Validate(); err != nil {
			log.Fatalf("默认配置无效: %v", err)
		}
	}
	if *addr != "" {
		cfg.ServerAddr = *addr
	}
	if *proto != "" {
		cfg.Proto = *proto
	}
	if *name != "" {
		cfg.PlayerName = *name
	}
	if *debug {
		cfg.Debug = true
	}

	logger.Init(cfg.LogFile, cfg.Debug)
	defer logger.Sync()

	gc := client.NewGameClient(client.Config{
		ServerAddr:         cfg.ServerAddr,
		Proto:              cfg.Proto,
		PlayerName:         cfg.PlayerName,
		ZoneID:             uint32(*zone),
		TickRate:           cfg.TickRate,
		MoveSpeed:          cfg.MoveSpeed,
		MinSendInterval:    cfg.MinSendInterval,
		ReconcileThreshold: cfg.ReconcileThreshold,
		InputHistorySize:   cfg.InputHistorySize,
		MaxInputAge:        cfg.MaxInputAge,
	}, nil)

	gc.OnChat = func(msg *protocol.ChatMessage) {
		log.Printf("[聊天] %s: %s", msg.Name, msg.Text)
	}
	gc.OnPlayerJoin = func(msg *protocol.PlayerJoin) {
		log.Printf("玩家加入: %s (#%d)", msg.Name, msg.EntityID)
	}
	gc.OnPlayerLeave = func(entityID uint64) {
		log.Printf("玩家离开: #%d", entityID)
	}

	if err := gc.Connect(); err != nil {
		log.Fatalf("连接失败: %v", err)
	}
	defer gc.Close()
	log.Printf("已登录: 玩家 ID=%d", gc.Session().PlayerID)

	if err := gc.EnterZone(uint32(*zone)); err != nil {
		log.Fatalf("进入区域失败: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 行走脚本：右、上、左、下各 2 秒循环
	script := []byte{core.FlagRight, core.FlagUp, core.FlagLeft, core.FlagDown}
	const legDuration = 2 * time.Second

	frame := time.NewTicker(time.Second / 60)
	defer frame.Stop()
	report := time.NewTicker(time.Second)
	defer report.Stop()

	start := time.Now()
	last := start
	for {
		select {
		case <-sigChan:
			log.Println("正在退出...")
			return

		case <-report.C:
			pos := gc.Position()
			auth, ok := gc.AuthoritativePosition()
			if ok {
				log.Printf("预测 (%.2f, %.2f) 权威 (%.2f, %.2f) 偏差 %.3f RTT %dms 远端 %d",
					pos.X, pos.Y, auth.X, auth.Y, pos.DistanceTo(auth), gc.RTT(), len(gc.RemoteEntities()))
			} else {
				log.Printf("预测 (%.2f, %.2f) 等待首个快照", pos.X, pos.Y)
			}

		case now := <-frame.C:
			dt := now.Sub(last).Seconds()
			last = now
			leg := int(now.Sub(start)/legDuration) % len(script)
			if err := gc.Step(dt, script[leg]); err != nil {
				log.Fatalf("连接中断: %v", err)
			}
		}
	}
}
