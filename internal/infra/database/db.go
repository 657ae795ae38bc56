package database

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	mu     sync.RWMutex
	sqlxDB *sqlx.DB
	driver string
)

// UseDB 注入外部初始化好的句柄（例如 common.InitDB 返回值），nil 表示内存模式
func UseDB(d *sqlx.DB, drv string) {
	mu.Lock()
	defer mu.Unlock()
	sqlxDB = d
	driver = drv
}

// SQLX 返回全局句柄，内存模式下为 nil
func SQLX() *sqlx.DB {
	mu.RLock()
	defer mu.RUnlock()
	return sqlxDB
}

// Driver 当前存储驱动名
func Driver() string {
	mu.RLock()
	defer mu.RUnlock()
	return driver
}

// Ping 就绪探测，未注入句柄时视为可用
func Ping(ctx context.Context, timeout time.Duration) error {
	d := SQLX()
	if d == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.PingContext(c)
}
