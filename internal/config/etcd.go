package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tuplaus-server/common/logger"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// etcdParams Etcd 连接参数
//   - ETCD_ENDPOINTS: 逗号分隔（必填）
//   - ETCD_CONFIG_KEY: 配置所在 key（必填）
//   - ETCD_USERNAME / ETCD_PASSWORD: 认证（可选）
//   - ETCD_DIAL_TIMEOUT_SEC: 连接超时（默认 5）
type etcdParams struct {
	Endpoints   []string
	Key         string
	Username    string
	Password    string
	DialTimeout time.Duration
}

func etcdParamsFromEnv() (etcdParams, bool) {
	p := etcdParams{
		Key:         strings.TrimSpace(os.Getenv("ETCD_CONFIG_KEY")),
		Username:    os.Getenv("ETCD_USERNAME"),
		Password:    os.Getenv("ETCD_PASSWORD"),
		DialTimeout: 5 * time.Second,
	}
	for _, ep := range strings.Split(os.Getenv("ETCD_ENDPOINTS"), ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			p.Endpoints = append(p.Endpoints, ep)
		}
	}
	if v := strings.TrimSpace(os.Getenv("ETCD_DIAL_TIMEOUT_SEC")); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			p.DialTimeout = time.Duration(sec) * time.Second
		}
	}
	return p, len(p.Endpoints) > 0
}

func (p etcdParams) client() (*clientv3.Client, error) {
	if p.Key == "" {
		return nil, errors.New("ETCD_CONFIG_KEY not set")
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   p.Endpoints,
		DialTimeout: p.DialTimeout,
		Username:    p.Username,
		Password:    p.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd connect failed: %w", err)
	}
	return cli, nil
}

func loadFromEtcd(ctx context.Context, p etcdParams) (*Config, error) {
	cli, err := p.client()
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := cli.Get(c, p.Key)
	if err != nil {
		return nil, fmt.Errorf("etcd get failed: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("etcd key not found: %s", p.Key)
	}
	return parse(resp.Kvs[0].Value, filepath.Ext(p.Key))
}

// watchEtcd 监听 key 的 PUT 事件直到 ctx 结束
func watchEtcd(ctx context.Context, p etcdParams, apply func(*Config)) error {
	cli, err := p.client()
	if err != nil {
		return err
	}
	go func() {
		defer cli.Close()
		for resp := range cli.Watch(ctx, p.Key) {
			if err := resp.Err(); err != nil {
				logger.Warn("etcd watch error", zap.String("key", p.Key), zap.Error(err))
				continue
			}
			for _, ev := range resp.Events {
				if ev.Type != clientv3.EventTypePut {
					continue
				}
				cfg, err := parse(ev.Kv.Value, filepath.Ext(p.Key))
				if err != nil {
					logger.Warn("parse etcd config failed", zap.String("key", p.Key), zap.Error(err))
					continue
				}
				apply(cfg)
			}
		}
	}()
	logger.Info("etcd config watch started", zap.String("key", p.Key))
	return nil
}
