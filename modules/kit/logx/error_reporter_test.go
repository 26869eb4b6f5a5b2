package logx

import (
	"context"
	"errors"
	"testing"

	"Concord/modules/kit/errx"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildErrorLog_能提取语义与栈(t *testing.T) {
	e := errx.NewSys("REMOTE_OPERATION_FAILED", "rest request failed").
		WithData("route", "/channels/1").
		WithCause(errors.New("connection reset"))

	meta := BuildErrorLog(e)
	if meta.Error == "" || meta.Code == "" || meta.Msg == "" {
		t.Fatalf("期望 Error/Code/Msg 非空, meta=%+v", meta)
	}
	if meta.Data == nil || meta.Data["route"] != "/channels/1" {
		t.Fatalf("期望 meta.Data 包含 route, got=%v", meta.Data)
	}
	if len(meta.CauseChain) == 0 {
		t.Fatalf("期望 meta.CauseChain 非空")
	}
	if meta.Origin == "" || meta.Stack == "" {
		t.Fatalf("期望 meta.Origin/meta.Stack 非空 origin=%q stack=%q", meta.Origin, meta.Stack)
	}
}

func TestReportDrop_未缓存走Debug_畸形走Warn(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	ReportDropWithLoggerContext(context.Background(), l, NewDropLog("CHANNEL_UPDATE", "uncached", nil))
	ReportDropWithLoggerContext(context.Background(), l, NewDropLog("GUILD_CREATE", "malformed", errx.NewBiz("MALFORMED_PAYLOAD", "")))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("期望 2 条日志, got=%d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Fatalf("期望未缓存丢弃为 DEBUG, got=%v", entries[0].Level)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("期望畸形 payload 丢弃为 WARN, got=%v", entries[1].Level)
	}
	if entries[1].ContextMap()["error_code"] != "MALFORMED_PAYLOAD" {
		t.Fatalf("期望带 error_code 字段, got=%v", entries[1].ContextMap())
	}
}
