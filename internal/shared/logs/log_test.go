package logs

import (
	"os"
	"path/filepath"
	"testing"

	"Concord/internal/shared/serverconfig"

	"go.uber.org/zap"
)

func TestInit_写入文件(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	if err := Init("test", serverconfig.LogConfig{FileDir: path, Level: "debug"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	Info("hello", zap.String("k", "v"))
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("期望日志文件非空")
	}
}

func TestInit_非法级别回退info(t *testing.T) {
	if err := Init("test", serverconfig.LogConfig{Level: "loud"}); err != nil {
		t.Fatalf("err=%v", err)
	}
	if Logger().Core().Enabled(zap.DebugLevel) {
		t.Fatalf("期望回退到 info 级别")
	}
}
