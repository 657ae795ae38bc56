package model

import (
	"context"
	"time"

	"tuplaus-server/common/logger"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Player 对应 players 表
// balance: 可用余额（非负）
// active_winnings: 当前携带中的彩金（非负，0 表示没有进行中的加倍）
type Player struct {
	ID             string          `db:"player_id"`
	Balance        decimal.Decimal `db:"balance"`
	ActiveWinnings decimal.Decimal `db:"active_winnings"`
	CreatedAt      int64           `db:"created_at"` // 13位毫秒时间戳
	UpdatedAt      int64           `db:"updated_at"` // 13位毫秒时间戳
}

// HasCarry 是否处于加倍携带状态（下一局强制以 active_winnings 作为本金）
func (p *Player) HasCarry() bool {
	return p.ActiveWinnings.IsPositive()
}

const playerColumns = "player_id, balance, active_winnings, created_at, updated_at"

// GetPlayer 按玩家ID查询（非锁查询）
func GetPlayer(ctx context.Context, exec sqlx.QueryerContext, playerID string) (*Player, error) {
	query := "SELECT " + playerColumns + " FROM players WHERE player_id = ? LIMIT 1"

	var p Player
	if err := sqlx.GetContext(ctx, exec, &p, query, playerID); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPlayerForUpdate 在事务中查询玩家，forUpdate=true 时追加行锁（MySQL）
// SQLite 不支持 FOR UPDATE，由 BEGIN IMMEDIATE 保证串行，调用方传 false
func GetPlayerForUpdate(ctx context.Context, tx *sqlx.Tx, playerID string, forUpdate bool) (*Player, error) {
	query := "SELECT " + playerColumns + " FROM players WHERE player_id = ?"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var p Player
	if err := tx.GetContext(ctx, &p, query, playerID); err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertPlayer 插入新玩家，active_winnings 固定为 0
// 唯一键冲突（并发创建）由调用方识别后回查
func InsertPlayer(ctx context.Context, exec sqlx.ExecerContext, p *Player) error {
	now := time.Now().UnixMilli()
	p.ActiveWinnings = decimal.Zero
	p.CreatedAt = now
	p.UpdatedAt = now

	query := "INSERT INTO players (" + playerColumns + ") VALUES (?, ?, ?, ?, ?)"
	_, err := exec.ExecContext(ctx, query,
		p.ID, p.Balance.StringFixed(2), p.ActiveWinnings.StringFixed(2), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}

	logger.InfoCtx(ctx, "player created",
		zap.String("player_id", p.ID),
		zap.String("balance", p.Balance.StringFixed(2)))
	return nil
}

// UpdatePlayerFunds 写回余额与携带彩金（两位小数）
func UpdatePlayerFunds(ctx context.Context, exec sqlx.ExecerContext, p *Player) error {
	p.UpdatedAt = time.Now().UnixMilli()

	query := "UPDATE players SET balance = ?, active_winnings = ?, updated_at = ? WHERE player_id = ?"
	_, err := exec.ExecContext(ctx, query,
		p.Balance.StringFixed(2), p.ActiveWinnings.StringFixed(2), p.UpdatedAt, p.ID)
	if err != nil {
		logger.ErrorCtx(ctx, "update player funds failed",
			zap.String("player_id", p.ID),
			zap.String("balance", p.Balance.StringFixed(2)),
			zap.String("active_winnings", p.ActiveWinnings.StringFixed(2)),
			zap.Error(err))
		return err
	}
	return nil
}
