package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 全局日志，InitLogger 之前为空实现
var Logger = zap.NewNop()

func InitLogger(logLevel string) {
	config := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level.SetLevel(level)
	logger, err := config.Build()
	if err != nil {
		return
	}
	Logger = logger
}

// Actor 返回记录操作人的 zap.Field，匿名操作记为 0
func Actor(actorID *int64) zap.Field {
	if actorID == nil {
		return zap.Int64("actor_id", 0)
	}
	return zap.Int64("actor_id", *actorID)
}
