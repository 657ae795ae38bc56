package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tuplaus-server/common/logger"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"go.uber.org/zap"
)

// nacosParams Nacos 连接参数
//   - NACOS_SERVER_ADDR: 服务器地址，逗号分隔多个 host:port（必填）
//   - NACOS_DATA_ID: 配置 Data ID（必填，如 "tuplaus.yaml"）
//   - NACOS_NAMESPACE: 命名空间（默认 public）
//   - NACOS_GROUP: 分组（默认 DEFAULT_GROUP）
//   - NACOS_USERNAME / NACOS_PASSWORD: 认证（可选）
//   - NACOS_TIMEOUT_MS: 超时（默认 5000）
type nacosParams struct {
	ServerAddr string
	DataID     string
	Namespace  string
	Group      string
	Username   string
	Password   string
	TimeoutMS  uint64
}

func nacosParamsFromEnv() (nacosParams, bool) {
	p := nacosParams{
		ServerAddr: strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")),
		DataID:     strings.TrimSpace(os.Getenv("NACOS_DATA_ID")),
		Namespace:  getEnvOrDefault("NACOS_NAMESPACE", "public"),
		Group:      getEnvOrDefault("NACOS_GROUP", "DEFAULT_GROUP"),
		Username:   strings.TrimSpace(os.Getenv("NACOS_USERNAME")),
		Password:   strings.TrimSpace(os.Getenv("NACOS_PASSWORD")),
		TimeoutMS:  5000,
	}
	if v := strings.TrimSpace(os.Getenv("NACOS_TIMEOUT_MS")); v != "" {
		if t, err := strconv.ParseUint(v, 10, 64); err == nil && t > 0 {
			p.TimeoutMS = t
		}
	}
	return p, p.ServerAddr != ""
}

// serverConfigs 解析 host:port 列表
func (p nacosParams) serverConfigs() ([]constant.ServerConfig, error) {
	var out []constant.ServerConfig
	for _, addr := range strings.Split(p.ServerAddr, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		host, portStr, ok := strings.Cut(addr, ":")
		if !ok || host == "" {
			return nil, fmt.Errorf("invalid NACOS_SERVER_ADDR format: %s (expected host:port)", addr)
		}
		port, err := strconv.ParseUint(portStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid port in NACOS_SERVER_ADDR: %s", portStr)
		}
		out = append(out, *constant.NewServerConfig(host, port))
	}
	if len(out) == 0 {
		return nil, errors.New("no valid server address in NACOS_SERVER_ADDR")
	}
	return out, nil
}

func newNacosClient(p nacosParams) (config_client.IConfigClient, error) {
	if p.DataID == "" {
		return nil, errors.New("NACOS_DATA_ID not set")
	}
	servers, err := p.serverConfigs()
	if err != nil {
		return nil, err
	}
	cc := constant.ClientConfig{
		NamespaceId:         p.Namespace,
		TimeoutMs:           p.TimeoutMS,
		NotLoadCacheAtStart: true,
		LogDir:              "/tmp/nacos/log",
		CacheDir:            "/tmp/nacos/cache",
		LogLevel:            "warn",
	}
	if p.Username != "" && p.Password != "" {
		cc.Username = p.Username
		cc.Password = p.Password
	}
	client, err := clients.NewConfigClient(vo.NacosClientParam{ClientConfig: &cc, ServerConfigs: servers})
	if err != nil {
		return nil, fmt.Errorf("failed to create nacos config client: %w", err)
	}
	return client, nil
}

func loadFromNacos(p nacosParams) (*Config, error) {
	client, err := newNacosClient(p)
	if err != nil {
		return nil, err
	}
	content, err := client.GetConfig(vo.ConfigParam{DataId: p.DataID, Group: p.Group})
	if err != nil {
		return nil, fmt.Errorf("failed to get config from nacos: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("nacos config is empty: dataId=%s, group=%s", p.DataID, p.Group)
	}
	return parse([]byte(content), filepath.Ext(p.DataID))
}

// watchNacos 监听 Nacos 配置变更，解析成功后交给 apply
func watchNacos(p nacosParams, apply func(*Config)) error {
	client, err := newNacosClient(p)
	if err != nil {
		return err
	}
	err = client.ListenConfig(vo.ConfigParam{
		DataId: p.DataID,
		Group:  p.Group,
		OnChange: func(namespace, group, dataId, data string) {
			cfg, err := parse([]byte(data), filepath.Ext(dataId))
			if err != nil {
				logger.Warn("parse nacos config failed", zap.String("data_id", dataId), zap.Error(err))
				return
			}
			apply(cfg)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}
	logger.Info("nacos config watch started", zap.String("data_id", p.DataID), zap.String("group", p.Group))
	return nil
}
