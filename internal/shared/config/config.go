package config

import (
	"os"
	"path/filepath"
)

const defaultConfigRelPath = "configs/conf.yml"

// Load 加载配置到 out（out 必须是指针）。
//
// 约定：
// 1) 传入 cfgName（相对/绝对路径）则优先使用；
// 2) 否则从当前目录开始向上查找 `configs/conf.yml`。
//
// 配置缺失属于启动期致命错误，直接 panic。
func Load(cfgName string, out any, onChange ...func()) {
	curDir, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	path := cfgName
	switch {
	case cfgName == "":
		path = findConfigUpward(curDir)
	case !filepath.IsAbs(cfgName):
		path = filepath.Join(curDir, cfgName)
	}
	if err := LoadFile(path, out, onChange...); err != nil {
		panic(err)
	}
}

func findConfigUpward(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, defaultConfigRelPath)
		if fileExist(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("config file not exist, searched configs/conf.yml from: " + startDir)
		}
		dir = parent
	}
}
