package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tuplaus-server/common/helper"
	"tuplaus-server/common/logger"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config 服务配置，可来自 Nacos / Etcd / 本地文件，最后由环境变量覆盖
// 金额字段使用字符串（两位小数），由 Validate 统一校验
type Config struct {
	Server struct {
		Port     int    `yaml:"port" json:"port" env:"TUPLAUS_PORT"`
		LogLevel string `yaml:"log_level" json:"log_level" env:"TUPLAUS_LOG_LEVEL"`
	} `yaml:"server" json:"server"`

	Database struct {
		Driver             string `yaml:"driver" json:"driver" env:"TUPLAUS_DB_DRIVER"` // memory | sqlite | mysql
		DSN                string `yaml:"dsn" json:"dsn" env:"TUPLAUS_DB_DSN"`
		MaxOpenConns       int    `yaml:"max_open_conns" json:"max_open_conns"`
		MaxIdleConns       int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec" json:"conn_max_lifetime_sec"`
		AutoMigrate        bool   `yaml:"auto_migrate" json:"auto_migrate" env:"TUPLAUS_DB_AUTO_MIGRATE"`
	} `yaml:"database" json:"database"`

	Redis struct {
		Addr     string `yaml:"addr" json:"addr" env:"TUPLAUS_REDIS_ADDR"`
		Password string `yaml:"password" json:"password" env:"TUPLAUS_REDIS_PASSWORD"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`

	RocketMQ struct {
		Endpoint  string `yaml:"endpoint" json:"endpoint" env:"TUPLAUS_MQ_ENDPOINT"`
		Topic     string `yaml:"topic" json:"topic"`
		AccessKey string `yaml:"access_key" json:"access_key" env:"TUPLAUS_MQ_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" json:"secret_key" env:"TUPLAUS_MQ_SECRET_KEY"`
		PollMs    int    `yaml:"poll_ms" json:"poll_ms"`
		BatchSize int    `yaml:"batch_size" json:"batch_size"`
	} `yaml:"rocketmq" json:"rocketmq"`

	Observability struct {
		EnableProm bool   `yaml:"enable_prom" json:"enable_prom" env:"TUPLAUS_ENABLE_PROM"`
		PromAddr   string `yaml:"prom_addr" json:"prom_addr"`
	} `yaml:"observability" json:"observability"`

	CORS struct {
		Enabled          bool     `yaml:"enabled" json:"enabled"`
		AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins"`
		AllowedMethods   []string `yaml:"allowed_methods" json:"allowed_methods"`
		AllowedHeaders   []string `yaml:"allowed_headers" json:"allowed_headers"`
		ExposedHeaders   []string `yaml:"exposed_headers" json:"exposed_headers"`
		AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials"`
		MaxAge           int      `yaml:"max_age" json:"max_age"`
	} `yaml:"cors" json:"cors"`

	Game struct {
		InitialBalance string `yaml:"initial_balance" json:"initial_balance" env:"TUPLAUS_INITIAL_BALANCE"`
		MinBet         string `yaml:"min_bet" json:"min_bet"`
		MaxBet         string `yaml:"max_bet" json:"max_bet"`
		AllowReset     bool   `yaml:"allow_reset" json:"allow_reset" env:"TUPLAUS_ALLOW_RESET"`
		HistoryLimit   int    `yaml:"history_limit" json:"history_limit"`
	} `yaml:"game" json:"game"`
}

// ApplyDefaults 填充未配置的字段
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.RocketMQ.Topic == "" {
		c.RocketMQ.Topic = "tuplaus_events"
	}
	if c.RocketMQ.PollMs == 0 {
		c.RocketMQ.PollMs = 1000
	}
	if c.RocketMQ.BatchSize == 0 {
		c.RocketMQ.BatchSize = 100
	}
	if c.Observability.PromAddr == "" {
		c.Observability.PromAddr = ":9100"
	}
	if c.Game.InitialBalance == "" {
		c.Game.InitialBalance = "1000"
	}
	if c.Game.MinBet == "" {
		c.Game.MinBet = "0.01"
	}
	if c.Game.MaxBet == "" {
		c.Game.MaxBet = "1000000"
	}
	if c.Game.HistoryLimit == 0 {
		c.Game.HistoryLimit = 50
	}
}

// Validate 校验驱动与金额格式
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database.driver: %q", c.Database.Driver)
	}
	if c.Database.Driver == "mysql" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for mysql")
	}
	for name, v := range map[string]string{
		"game.initial_balance": c.Game.InitialBalance,
		"game.min_bet":         c.Game.MinBet,
		"game.max_bet":         c.Game.MaxBet,
	} {
		if _, err := helper.ParseMoney(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Game.HistoryLimit < 0 {
		return fmt.Errorf("game.history_limit must not be negative")
	}
	return nil
}

// Load 依次尝试 Nacos -> Etcd -> 本地文件，然后应用环境变量覆盖与默认值
// 支持以下环境变量：
//   - NACOS_SERVER_ADDR / NACOS_DATA_ID: 设置后优先从 Nacos 加载
//   - ETCD_ENDPOINTS / ETCD_CONFIG_KEY: 设置后从 Etcd 加载
//   - CONFIG_FILE: 配置文件路径（兜底，默认 config/dev.yaml）
func Load(ctx context.Context) (*Config, error) {
	cfg, err := loadSource(ctx)
	if err != nil {
		return nil, err
	}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish 环境变量覆盖 -> 默认值 -> 校验
func finish(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg.Validate()
}

func loadSource(ctx context.Context) (*Config, error) {
	if p, ok := nacosParamsFromEnv(); ok {
		cfg, err := loadFromNacos(p)
		if err == nil {
			logger.Info("config loaded from nacos", zap.String("data_id", p.DataID), zap.String("namespace", p.Namespace), zap.String("group", p.Group))
			return cfg, nil
		}
		logger.Warn("load config from nacos failed, falling back", zap.Error(err))
	}

	if p, ok := etcdParamsFromEnv(); ok {
		cfg, err := loadFromEtcd(ctx, p)
		if err == nil {
			logger.Info("config loaded from etcd", zap.String("key", p.Key))
			return cfg, nil
		}
		logger.Warn("load config from etcd failed, falling back", zap.Error(err))
	}

	configFile := getEnvOrDefault("CONFIG_FILE", "config/dev.yaml")
	cfg, err := loadFromFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from any source (file %s): %w", configFile, err)
	}
	logger.Info("config loaded from file", zap.String("file", configFile))
	return cfg, nil
}

// getEnvOrDefault 获取环境变量，不存在则返回默认值
func getEnvOrDefault(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// loadFromFile 从本地 JSON 或 YAML 文件加载配置
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	ext := filepath.Ext(filePath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .json, .yaml, .yml)", ext)
	}
	return parse(data, ext)
}

// parse 按扩展名解析；未知扩展名时合法 JSON 按 JSON 解析，其余按严格 YAML 解析（未知字段报错）
func parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if json.Valid(data) {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse JSON config: %w", err)
			}
			break
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config (not JSON, strict YAML failed): %w", err)
		}
	}
	return &cfg, nil
}
