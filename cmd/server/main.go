package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"zonewalker/internal/config"
	"zonewalker/internal/logger"
	"zonewalker/internal/server"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "", "配置文件路径（YAML），不指定时使用默认值")
	address := flag.String("addr", "", "监听地址，覆盖配置文件")
	proto := flag.String("proto", "", "传输协议 tcp 或 kcp，覆盖配置文件")
	debug := flag.Bool("debug", false, "输出调试日志")
	flag.Parse()

	// 加载配置
	var cfg *config.ServerConfig
	if *configPath != "" {
		loaded, err := config.LoadServer(*configPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		cfg = loaded
	} else {
		cfg = &config.ServerConfig{}
		if err := cfg.Validate(); err != nil {
			log.Fatalf("默认配置无效: %v", err)
		}
	}
	if *address != "" {
		cfg.ListenAddr = *address
	}
	if *proto != "" {
		cfg.Proto = *proto
	}
	if *debug {
		cfg.Debug = true
	}

	logger.Init(cfg.LogFile, cfg.Debug)
	defer logger.Sync()

	// 创建并启动服务器
	gameServer := server.NewGameServer(cfg)
	if err := gameServer.Start(); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}

	log.Println("========================================")
	log.Println("  Zonewalker 区域服务器")
	log.Println("========================================")
	log.Printf("监听地址: %s (%s)", gameServer.Addr(), cfg.Proto)
	log.Printf("最大玩家数: %d", cfg.MaxPlayers)
	log.Printf("服务器 TPS: %d", cfg.TickRate)
	log.Println("========================================")
	log.Println("服务器正在运行...")
	log.Println("按 Ctrl+C 停止服务器")

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("\n正在关闭服务器...")
	gameServer.Shutdown()

	log.Println("服务器已关闭，再见！")
}
