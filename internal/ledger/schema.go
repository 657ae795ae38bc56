package ledger

import (
	"context"

	"tuplaus-server/common"
)

// 建表语句，按驱动区分方言；均为幂等 CREATE IF NOT EXISTS
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		player_id VARCHAR(64) NOT NULL,
		balance DECIMAL(18,2) NOT NULL DEFAULT 0.00,
		active_winnings DECIMAL(18,2) NOT NULL DEFAULT 0.00,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (player_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS settled_rounds (
		id BIGINT NOT NULL AUTO_INCREMENT,
		player_id VARCHAR(64) NOT NULL,
		effective_bet DECIMAL(18,2) NOT NULL,
		choice VARCHAR(8) NOT NULL,
		drawn_card TINYINT NOT NULL,
		did_win TINYINT(1) NOT NULL,
		winnings DECIMAL(18,2) NOT NULL,
		carry_over TINYINT(1) NOT NULL,
		balance_after DECIMAL(18,2) NOT NULL,
		request_key VARCHAR(128) NULL,
		trace_id VARCHAR(64) NOT NULL DEFAULT '',
		settled_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uk_request_key (request_key),
		KEY idx_player_id (player_id, id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS wallet_ledger (
		id BIGINT NOT NULL AUTO_INCREMENT,
		player_id VARCHAR(64) NOT NULL,
		biz_type TINYINT NOT NULL,
		biz_type_str VARCHAR(16) NOT NULL,
		amount DECIMAL(18,2) NOT NULL,
		before_amount DECIMAL(18,2) NOT NULL,
		after_amount DECIMAL(18,2) NOT NULL,
		round_id BIGINT NOT NULL DEFAULT 0,
		remark VARCHAR(255) NOT NULL DEFAULT '',
		trace_id VARCHAR(64) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		KEY idx_player_id (player_id, id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id BIGINT NOT NULL AUTO_INCREMENT,
		topic VARCHAR(64) NOT NULL,
		biz_key VARCHAR(128) NOT NULL,
		payload TEXT NOT NULL,
		status TINYINT NOT NULL DEFAULT 1,
		retry_count INT NOT NULL DEFAULT 0,
		last_error VARCHAR(512) NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		KEY idx_status (status, id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// SQLite 金额列使用 TEXT 保存两位小数字符串，避免浮点误差
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		player_id TEXT NOT NULL PRIMARY KEY,
		balance TEXT NOT NULL DEFAULT '0.00',
		active_winnings TEXT NOT NULL DEFAULT '0.00',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settled_rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id TEXT NOT NULL,
		effective_bet TEXT NOT NULL,
		choice TEXT NOT NULL,
		drawn_card INTEGER NOT NULL,
		did_win INTEGER NOT NULL,
		winnings TEXT NOT NULL,
		carry_over INTEGER NOT NULL,
		balance_after TEXT NOT NULL,
		request_key TEXT NULL UNIQUE,
		trace_id TEXT NOT NULL DEFAULT '',
		settled_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_settled_rounds_player ON settled_rounds (player_id, id)`,
	`CREATE TABLE IF NOT EXISTS wallet_ledger (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id TEXT NOT NULL,
		biz_type INTEGER NOT NULL,
		biz_type_str TEXT NOT NULL,
		amount TEXT NOT NULL,
		before_amount TEXT NOT NULL,
		after_amount TEXT NOT NULL,
		round_id INTEGER NOT NULL DEFAULT 0,
		remark TEXT NOT NULL DEFAULT '',
		trace_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_ledger_player ON wallet_ledger (player_id, id)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topic TEXT NOT NULL,
		biz_key TEXT NOT NULL,
		payload TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 1,
		retry_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox (status, id)`,
}

// Migrate 创建所需表结构
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts := mysqlSchema
	if s.driver == common.DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("migrate", err)
		}
	}
	return nil
}
