package model

import (
	"context"
	"database/sql"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// SettledRound 对应 settled_rounds 表（追加式结算记录，只增不改）
// request_key: 调用方幂等键，可为空；非空时唯一
type SettledRound struct {
	ID           int64           `db:"id"`
	PlayerID     string          `db:"player_id"`
	EffectiveBet decimal.Decimal `db:"effective_bet"` // 实际本金：请求下注额或携带彩金
	Choice       Choice          `db:"choice"`
	DrawnCard    int             `db:"drawn_card"`
	DidWin       bool            `db:"did_win"`
	Winnings     decimal.Decimal `db:"winnings"` // 本局后携带彩金，输为 0
	CarryOver    bool            `db:"carry_over"`
	BalanceAfter decimal.Decimal `db:"balance_after"`
	RequestKey   string          `db:"request_key"`
	TraceID      string          `db:"trace_id"`
	SettledAt    int64           `db:"settled_at"` // 13位毫秒时间戳
}

// RoundOutcome 单局结算结果（仅返回给调用方，不落库）
type RoundOutcome struct {
	DrawnCard  int
	DidWin     bool
	Winnings   decimal.Decimal
	NewBalance decimal.Decimal
}

// Outcome 由结算记录还原返回值（幂等重放时使用）
func (r *SettledRound) Outcome() RoundOutcome {
	return RoundOutcome{
		DrawnCard:  r.DrawnCard,
		DidWin:     r.DidWin,
		Winnings:   r.Winnings,
		NewBalance: r.BalanceAfter,
	}
}

// SettledRoundFields goqu 查询列，request_key 为 NULL 时折叠为空串
func SettledRoundFields() []interface{} {
	return []interface{}{
		"id", "player_id", "effective_bet", "choice", "drawn_card", "did_win", "winnings",
		"carry_over", "balance_after", g.COALESCE(g.C("request_key"), "").As("request_key"),
		"trace_id", "settled_at",
	}
}

const settledRoundSelect = "SELECT id, player_id, effective_bet, choice, drawn_card, did_win, winnings, carry_over, balance_after, COALESCE(request_key, '') AS request_key, trace_id, settled_at FROM settled_rounds"

// InsertSettledRound 追加一条结算记录，必须与玩家余额更新处于同一事务
func InsertSettledRound(ctx context.Context, exec sqlx.ExecerContext, r *SettledRound) error {
	if r.SettledAt == 0 {
		r.SettledAt = time.Now().UnixMilli()
	}
	var key sql.NullString
	if r.RequestKey != "" {
		key = sql.NullString{String: r.RequestKey, Valid: true}
	}

	query := `INSERT INTO settled_rounds (player_id, effective_bet, choice, drawn_card, did_win, winnings, carry_over, balance_after, request_key, trace_id, settled_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := exec.ExecContext(ctx, query,
		r.PlayerID, r.EffectiveBet.StringFixed(2), string(r.Choice), r.DrawnCard, r.DidWin,
		r.Winnings.StringFixed(2), r.CarryOver, r.BalanceAfter.StringFixed(2), key, r.TraceID, r.SettledAt)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	r.ID = id
	return nil
}

// GetSettledRoundByRequestKey 按幂等键查询结算记录
func GetSettledRoundByRequestKey(ctx context.Context, exec sqlx.QueryerContext, key string) (*SettledRound, error) {
	var r SettledRound
	if err := sqlx.GetContext(ctx, exec, &r, settledRoundSelect+" WHERE request_key = ? LIMIT 1", key); err != nil {
		return nil, err
	}
	return &r, nil
}
