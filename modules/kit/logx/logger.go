package logx

import (
	"context"

	"go.uber.org/zap"
)

// Logger 是跨组件复用的最小日志接口。
//
// 约束：
// - 保持 API 极简，只承载结构化字段 + ctx 透传（trace/span 等）
// - With 用于给组件打固定标签（例如 component=client）
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
	WithContext(ctx context.Context) Logger
}

// Nop 返回一个丢弃所有日志的 Logger。
func Nop() Logger {
	return NewZapLogger(nil)
}
