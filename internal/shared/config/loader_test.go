package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testConf struct {
	Gateway struct {
		URL   string `mapstructure:"url"`
		Token string `mapstructure:"token"`
	} `mapstructure:"gateway"`
	Cache struct {
		Messages struct {
			MaxSize int `mapstructure:"max_size"`
		} `mapstructure:"messages"`
	} `mapstructure:"cache"`
}

func writeConf(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	return path
}

func TestLoadFile_读取yaml(t *testing.T) {
	path := writeConf(t, "gateway:\n  url: wss://gw.example\n  token: abc\ncache:\n  messages:\n    max_size: 50\n")
	var c testConf
	if err := LoadFile(path, &c); err != nil {
		t.Fatalf("err=%v", err)
	}
	if c.Gateway.URL != "wss://gw.example" || c.Cache.Messages.MaxSize != 50 {
		t.Fatalf("配置解析不符合预期: %+v", c)
	}
}

func TestLoadFile_环境变量覆盖(t *testing.T) {
	t.Setenv("GATEWAY_GATEWAY_TOKEN", "from-env")
	path := writeConf(t, "gateway:\n  token: from-file\n")
	var c testConf
	if err := LoadFile(path, &c); err != nil {
		t.Fatalf("err=%v", err)
	}
	if c.Gateway.Token != "from-env" {
		t.Fatalf("期望环境变量优先, got=%q", c.Gateway.Token)
	}
}

func TestLoadFile_文件不存在返回错误(t *testing.T) {
	var c testConf
	if err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"), &c); err == nil {
		t.Fatalf("期望返回错误")
	}
}
