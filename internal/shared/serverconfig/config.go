package serverconfig

import (
	"os"

	"Concord/internal/shared/config"
)

const defaultConfigRelPath = "configs/conf.yml"

var Conf Config

// Load 加载全局配置；path 为空时按约定路径查找。onChange 在文件热更新后调用。
func Load(path string, onChange ...func()) {
	if path == "" {
		path = defaultConfigRelPath
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	config.Load(path, &Conf, onChange...)
	// 环境变量优先；若未设置则回填配置中的 jwt_secret，兼容本地开发场景。
	if os.Getenv("JWT_SECRET") == "" && Conf.Inspect.JWTSecret != "" {
		_ = os.Setenv("JWT_SECRET", Conf.Inspect.JWTSecret)
	}
}
