// Package ledger 持有玩家资金状态（余额 + 携带彩金），对外只暴露按玩家ID串行化的原子读改写。
// 结算记录的追加与资金写入在同一个提交单元内完成：要么都成功，要么都不生效。
package ledger

import (
	"context"
	"errors"
	"fmt"

	"tuplaus-server/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("player not found")
	ErrDuplicateRequest = errors.New("round with this request key already settled")
	// ErrStorage 包装底层存储失败（连接、超时、提交失败），调用方可重试
	ErrStorage = errors.New("ledger storage failure")
	// ErrInvariant 变更结果违反资金不变量（余额或彩金为负），拒绝提交
	ErrInvariant = errors.New("ledger invariant violated")
)

// Mutation 在玩家锁内执行：入参为玩家快照副本，原地修改后返回本局结算记录。
// 返回 error 时不写入任何数据，error 原样返回给调用方。
type Mutation func(p *model.Player) (*model.SettledRound, error)

// PlayerLedger 玩家资金账本
// 同一玩家的并发调用被线性化；不同玩家互不阻塞（SQLite 后端为单写者，全局串行）
type PlayerLedger interface {
	Get(ctx context.Context, id string) (*model.Player, error)
	// CreateOrInit 幂等：已存在时原样返回，不覆盖
	CreateOrInit(ctx context.Context, id string, initialBalance decimal.Decimal) (*model.Player, error)
	// Reset 将余额重置为 balance、清空携带彩金，不存在则创建（演示/测试用）
	Reset(ctx context.Context, id string, balance decimal.Decimal) (*model.Player, error)
	// ApplyOutcome 原子执行一局结算：资金写回 + 结算记录追加
	ApplyOutcome(ctx context.Context, id string, fn Mutation) (*model.Player, *model.SettledRound, error)
	// SettleWinnings 携带彩金转入余额；彩金为 0 时不发生任何写入，moved=false
	SettleWinnings(ctx context.Context, id string) (p *model.Player, moved bool, err error)
}

// RoundHistory 追加式结算记录的只读视图（写入仅发生在 ApplyOutcome 内）
type RoundHistory interface {
	// ListRounds 按结算时间倒序返回，limit<=0 表示不限制
	ListRounds(ctx context.Context, playerID string, limit int) ([]model.SettledRound, error)
	RoundByRequestKey(ctx context.Context, key string) (*model.SettledRound, error)
}

// Store 同时提供账本与结算记录的后端
type Store interface {
	PlayerLedger
	RoundHistory
	Close() error
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// checkFunds 提交前校验资金不变量
func checkFunds(p *model.Player) error {
	if p.Balance.IsNegative() {
		return fmt.Errorf("%w: balance %s", ErrInvariant, p.Balance.StringFixed(2))
	}
	if p.ActiveWinnings.IsNegative() {
		return fmt.Errorf("%w: active winnings %s", ErrInvariant, p.ActiveWinnings.StringFixed(2))
	}
	return nil
}

// prepareRound 用提交后的玩家状态补全结算记录
func prepareRound(id string, p *model.Player, r *model.SettledRound) error {
	if r == nil {
		return errors.New("ledger: mutation returned no round")
	}
	r.PlayerID = id
	r.BalanceAfter = p.Balance
	r.Winnings = p.ActiveWinnings
	return nil
}
