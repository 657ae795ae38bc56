package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// 账变类型（biz_type 数值码与 biz_type_str 双写）
const (
	BizTypeBet     = 1 // 非携带局扣除本金
	BizTypeCashOut = 2 // 携带彩金入账
	BizTypeReset   = 3 // 演示/测试重置余额
)

var bizTypeNames = map[int]string{
	BizTypeBet:     "bet",
	BizTypeCashOut: "cashout",
	BizTypeReset:   "reset",
}

// BizTypeName 返回账变类型字符串，未知类型返回 "unknown"
func BizTypeName(code int) string {
	if s, ok := bizTypeNames[code]; ok {
		return s
	}
	return "unknown"
}

// WalletLedger 对应 wallet_ledger 表（追加式余额流水）
// 说明：amount 为非负；方向由 before_amount/after_amount 与 biz_type 推导
// 携带局不动余额，因此不产生流水
type WalletLedger struct {
	ID           int64           `db:"id"`
	PlayerID     string          `db:"player_id"`
	BizType      int             `db:"biz_type"`
	BizTypeStr   string          `db:"biz_type_str"`
	Amount       decimal.Decimal `db:"amount"`
	BeforeAmount decimal.Decimal `db:"before_amount"`
	AfterAmount  decimal.Decimal `db:"after_amount"`
	RoundID      int64           `db:"round_id"` // 关联 settled_rounds.id，非下注流水为 0
	Remark       string          `db:"remark"`
	TraceID      string          `db:"trace_id"`
	CreatedAt    int64           `db:"created_at"`
}

// Insert 新增一条流水记录
func (l *WalletLedger) Insert(ctx context.Context, exec sqlx.ExecerContext) error {
	l.CreatedAt = time.Now().UnixMilli()
	if l.BizTypeStr == "" {
		l.BizTypeStr = BizTypeName(l.BizType)
	}

	sqlStr := "INSERT INTO wallet_ledger (player_id, biz_type, biz_type_str, amount, before_amount, after_amount, round_id, remark, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{
		l.PlayerID, l.BizType, l.BizTypeStr,
		l.Amount.StringFixed(2), l.BeforeAmount.StringFixed(2), l.AfterAmount.StringFixed(2),
		l.RoundID, l.Remark, l.TraceID, l.CreatedAt,
	}

	res, err := exec.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	l.ID = id
	return nil
}

// ListWalletLedger 按玩家查询流水（按 id 升序）
func ListWalletLedger(ctx context.Context, exec sqlx.QueryerContext, playerID string) ([]WalletLedger, error) {
	sqlStr := "SELECT id, player_id, biz_type, biz_type_str, amount, before_amount, after_amount, round_id, remark, trace_id, created_at FROM wallet_ledger WHERE player_id = ? ORDER BY id ASC"

	var list []WalletLedger
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, playerID); err != nil {
		return nil, err
	}
	return list, nil
}
