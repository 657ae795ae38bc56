package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// 全局 Redis 客户端（可选初始化）
var rdb *goredis.Client

// Options Redis 连接参数，Addr 为空表示不启用
type Options struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Init 根据配置初始化全局 Redis 客户端；addr 为空则跳过
func Init(o Options) *goredis.Client {
	rdb = New(o)
	return rdb
}

// New 创建独立客户端，Addr 为空返回 nil
func New(o Options) *goredis.Client {
	if o.Addr == "" {
		return nil
	}
	return goredis.NewClient(&goredis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
	})
}

// Client 返回 Redis 客户端实例（可能为 nil）
func Client() *goredis.Client { return rdb }

// Ping 在给定超时时间内探测 Redis 连接是否可用，未启用时视为可用
func Ping(ctx context.Context, timeout time.Duration) error {
	if rdb == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(c).Err()
}

// Close 关闭全局客户端
func Close() error {
	if rdb == nil {
		return nil
	}
	return rdb.Close()
}

// 仅当锁值匹配时删除，避免误删其他请求的锁
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Release 原子释放 SETNX 锁；返回 false 表示锁已过期或被他人持有
func Release(ctx context.Context, c *goredis.Client, key, value string) (bool, error) {
	n, err := releaseScript.Run(ctx, c, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
