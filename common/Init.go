package common

import (
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// 支持的存储驱动
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// InitDB 按驱动初始化 sqlx 连接池
// mysql: DSN 追加 parseTime/loc 与 innodb_lock_wait_timeout，降低行锁等待时长
// sqlite: 单写者模型，事务以 BEGIN IMMEDIATE 开启，连接数限制为 1 避免 SQLITE_BUSY
func InitDB(driver, dsn string, maxIdleConn, maxOpenConn int) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL:
		return initMySQL(dsn, maxIdleConn, maxOpenConn)
	case DriverSQLite:
		return initSQLite(dsn)
	}
	return nil, fmt.Errorf("unsupported database driver: %q", driver)
}

func initMySQL(dsn string, maxIdleConn, maxOpenConn int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", mysqlDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}

	// 连接池参数
	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return db, nil
}

// mysqlDSN 追加 parseTime/loc 与会话级行锁等待超时；
// 以 DSN 参数下发，连接池中每条新连接都会执行，而不是只作用于单条连接
func mysqlDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "parseTime=true&loc=Local&innodb_lock_wait_timeout=5"
}

func initSQLite(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = "file:tuplaus.db"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite connect: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
