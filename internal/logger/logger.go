package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 全局 SugaredLogger，客户端与服务器共用
var Log = zap.NewNop().Sugar()

// Init 初始化 zap 日志
// filePath 为空时输出到 stderr，非空时写入滚动文件
func Init(filePath string, debug bool) {
	var ws zapcore.WriteSyncer
	if filePath == "" {
		ws = zapcore.AddSync(os.Stderr)
	} else {
		// 文件滚动策略：10MB 每文件，保留 3 个备份，最多 7 天
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		})
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)
	Log = zap.New(core, zap.AddCaller()).Sugar()
}

// Sync 清理和同步缓冲
func Sync() {
	_ = Log.Sync()
}
