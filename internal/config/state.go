package config

import (
	"context"
	"sync/atomic"

	"tuplaus-server/common/logger"

	"go.uber.org/zap"
)

// 原子存储当前生效的配置，供各业务读取
var current atomic.Pointer[Config]

func SetCurrent(c *Config) { current.Store(c) }

func GetCurrent() *Config { return current.Load() }

// StartWatch 监听配置中心变更：Nacos 优先，其次 Etcd；仅使用本地文件时不监听
// 新配置经过环境变量覆盖、默认值与校验后才替换当前配置，并回调 onChange(old, new)
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	apply := func(cfg *Config) {
		if err := finish(cfg); err != nil {
			logger.Warn("reject invalid config update", zap.Error(err))
			return
		}
		old := GetCurrent()
		SetCurrent(cfg)
		if onChange != nil {
			onChange(old, cfg)
		}
		logger.Info("config updated")
	}

	if p, ok := nacosParamsFromEnv(); ok {
		return watchNacos(p, apply)
	}
	if p, ok := etcdParamsFromEnv(); ok {
		return watchEtcd(ctx, p, apply)
	}
	logger.Info("no config center configured, skip watch")
	return nil
}

// ApplyLogLevel 配置变更回调：动态调整日志级别
func ApplyLogLevel(oldCfg, newCfg *Config) {
	if newCfg == nil {
		return
	}
	if oldCfg != nil && oldCfg.Server.LogLevel == newCfg.Server.LogLevel {
		return
	}
	logger.SetLevel(newCfg.Server.LogLevel)
	logger.Info("log level changed", zap.String("level", logger.Level()))
}
