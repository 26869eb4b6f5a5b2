package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀：GATEWAY_GATEWAY_TOKEN 覆盖 gateway.token。
const EnvPrefix = "GATEWAY"

var reloadMu sync.Mutex

// LoadFile 读取指定配置文件并 Unmarshal 到 out，同时监听文件变更做热更新。
func LoadFile(configPath string, out any, onChange ...func()) error {
	if !fileExist(configPath) {
		return fmt.Errorf("config file not exist, configPath=%v", configPath)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", configPath, err)
	}
	bindEnvKeys(v)
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("unmarshal config %s: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		if err := v.Unmarshal(out); err != nil {
			log.Printf("config reload failed, file=%s err=%v", e.Name, err)
			return
		}
		for _, fn := range onChange {
			fn()
		}
	})
	v.WatchConfig()
	return nil
}

// viper 的 AutomaticEnv 只对已知 key 生效，Unmarshal 前把文件里出现过的 key 全部绑定一遍。
func bindEnvKeys(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}
}

func fileExist(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}
