package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"tuplaus-server/common"
	"tuplaus-server/common/logger"
	"tuplaus-server/internal/model"
	"tuplaus-server/internal/state"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// 默认事务超时时间（若上游已有 deadline，则沿用上游）
const defaultTxTimeout = 3 * time.Second

// SQLStore 基于 sqlx 的账本实现（mysql / sqlite）
// mysql: SELECT ... FOR UPDATE 行锁，按玩家串行
// sqlite: BEGIN IMMEDIATE + 单连接，所有写事务全局串行
type SQLStore struct {
	db      *sqlx.DB
	driver  string
	dialect g.DialectWrapper
}

func NewSQLStore(db *sqlx.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, dialect: common.DialectFor(driver)}
}

// DB 返回底层连接（outbox 分发器复用）
func (s *SQLStore) DB() *sqlx.DB { return s.db }

func (s *SQLStore) Driver() string { return s.driver }

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) forUpdate() bool { return s.driver == common.DriverMySQL }

// withTx 在单个事务内执行 fn，fn 返回 error 即回滚
func (s *SQLStore) withTx(ctx context.Context, fn func(txCtx context.Context, tx *sqlx.Tx) error) error {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := s.db.BeginTxx(txCtx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(txCtx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.ErrorCtx(ctx, "commit tx failed", zap.Error(err))
		return storageErr("commit tx", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*model.Player, error) {
	p, err := model.GetPlayer(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get player", err)
	}
	return p, nil
}

func (s *SQLStore) CreateOrInit(ctx context.Context, id string, initialBalance decimal.Decimal) (*model.Player, error) {
	p, err := s.Get(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	np := &model.Player{ID: id, Balance: initialBalance}
	if err := model.InsertPlayer(ctx, s.db, np); err != nil {
		// 并发创建：主键冲突后回查
		if isDuplicateKey(err) {
			return s.Get(ctx, id)
		}
		return nil, storageErr("insert player", err)
	}
	return np, nil
}

func (s *SQLStore) Reset(ctx context.Context, id string, balance decimal.Decimal) (*model.Player, error) {
	var out *model.Player
	err := s.withTx(ctx, func(txCtx context.Context, tx *sqlx.Tx) error {
		before := decimal.Zero
		p, err := model.GetPlayerForUpdate(txCtx, tx, id, s.forUpdate())
		switch {
		case errors.Is(err, sql.ErrNoRows):
			p = &model.Player{ID: id, Balance: balance}
			if err := model.InsertPlayer(txCtx, tx, p); err != nil {
				return storageErr("insert player", err)
			}
		case err != nil:
			return storageErr("load player", err)
		default:
			before = p.Balance
			p.Balance = balance
			p.ActiveWinnings = decimal.Zero
			if err := model.UpdatePlayerFunds(txCtx, tx, p); err != nil {
				return storageErr("update player", err)
			}
		}

		wl := &model.WalletLedger{
			PlayerID:     id,
			BizType:      model.BizTypeReset,
			Amount:       balance,
			BeforeAmount: before,
			AfterAmount:  balance,
			Remark:       "balance reset",
			TraceID:      logger.GetTraceID(ctx),
		}
		if err := wl.Insert(txCtx, tx); err != nil {
			return storageErr("insert wallet ledger", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) ApplyOutcome(ctx context.Context, id string, fn Mutation) (*model.Player, *model.SettledRound, error) {
	var (
		outP *model.Player
		outR *model.SettledRound
	)
	err := s.withTx(ctx, func(txCtx context.Context, tx *sqlx.Tx) error {
		p, err := model.GetPlayerForUpdate(txCtx, tx, id, s.forUpdate())
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return storageErr("load player", err)
		}
		before := *p

		round, err := fn(p)
		if err != nil {
			return err
		}
		if err := checkFunds(p); err != nil {
			return err
		}
		if err := prepareRound(id, p, round); err != nil {
			return err
		}
		if round.TraceID == "" {
			round.TraceID = logger.GetTraceID(ctx)
		}

		if err := model.UpdatePlayerFunds(txCtx, tx, p); err != nil {
			return storageErr("update player", err)
		}
		if err := model.InsertSettledRound(txCtx, tx, round); err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateRequest
			}
			return storageErr("insert settled round", err)
		}

		// 非携带局扣除本金，记一条下注流水；携带局余额不变，不记流水
		if !p.Balance.Equal(before.Balance) {
			wl := &model.WalletLedger{
				PlayerID:     id,
				BizType:      model.BizTypeBet,
				Amount:       before.Balance.Sub(p.Balance),
				BeforeAmount: before.Balance,
				AfterAmount:  p.Balance,
				RoundID:      round.ID,
				Remark:       "round stake",
				TraceID:      round.TraceID,
			}
			if err := wl.Insert(txCtx, tx); err != nil {
				return storageErr("insert wallet ledger", err)
			}
		}

		payload := map[string]any{
			"event":         model.TopicRoundSettled,
			"round_id":      round.ID,
			"player_id":     id,
			"effective_bet": round.EffectiveBet.StringFixed(2),
			"choice":        round.Choice.String(),
			"drawn_card":    round.DrawnCard,
			"did_win":       round.DidWin,
			"winnings":      round.Winnings.StringFixed(2),
			"carry_over":    round.CarryOver,
			"balance_after": round.BalanceAfter.StringFixed(2),
			"prev_state":    state.Of(before.ActiveWinnings),
			"next_state":    state.Of(p.ActiveWinnings),
			"trace_id":      round.TraceID,
			"settled_at":    round.SettledAt,
		}
		if err := model.CreateOutbox(txCtx, tx, model.TopicRoundSettled, strconv.FormatInt(round.ID, 10), payload); err != nil {
			return storageErr("insert outbox", err)
		}

		outP, outR = p, round
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outP, outR, nil
}

func (s *SQLStore) SettleWinnings(ctx context.Context, id string) (*model.Player, bool, error) {
	var (
		outP  *model.Player
		moved bool
	)
	err := s.withTx(ctx, func(txCtx context.Context, tx *sqlx.Tx) error {
		p, err := model.GetPlayerForUpdate(txCtx, tx, id, s.forUpdate())
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return storageErr("load player", err)
		}
		// 无携带彩金：不写入，事务随 defer 回滚
		if !p.HasCarry() {
			outP = p
			return nil
		}

		before := p.Balance
		amount := p.ActiveWinnings
		p.Balance = p.Balance.Add(amount)
		p.ActiveWinnings = decimal.Zero
		if err := model.UpdatePlayerFunds(txCtx, tx, p); err != nil {
			return storageErr("update player", err)
		}

		traceID := logger.GetTraceID(ctx)
		wl := &model.WalletLedger{
			PlayerID:     id,
			BizType:      model.BizTypeCashOut,
			Amount:       amount,
			BeforeAmount: before,
			AfterAmount:  p.Balance,
			Remark:       "winnings cashed out",
			TraceID:      traceID,
		}
		if err := wl.Insert(txCtx, tx); err != nil {
			return storageErr("insert wallet ledger", err)
		}

		payload := map[string]any{
			"event":         model.TopicWinningsCashed,
			"ledger_id":     wl.ID,
			"player_id":     id,
			"amount":        amount.StringFixed(2),
			"balance_after": p.Balance.StringFixed(2),
			"prev_state":    state.HasCarry,
			"next_state":    state.NoCarry,
			"trace_id":      traceID,
		}
		if err := model.CreateOutbox(txCtx, tx, model.TopicWinningsCashed, strconv.FormatInt(wl.ID, 10), payload); err != nil {
			return storageErr("insert outbox", err)
		}

		outP, moved = p, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return outP, moved, nil
}

func (s *SQLStore) ListRounds(ctx context.Context, playerID string, limit int) ([]model.SettledRound, error) {
	arg := common.QueryArg{
		Table:  "settled_rounds",
		Fields: model.SettledRoundFields(),
		Ex:     []exp.Expression{g.C("player_id").Eq(playerID)},
		Order:  []exp.OrderedExpression{g.C("id").Desc()},
	}
	if limit > 0 {
		arg.Limit = uint(limit)
	}

	var list []model.SettledRound
	if err := common.SelectAllCtx(ctx, s.db, s.dialect, &list, arg); err != nil {
		return nil, storageErr("list rounds", err)
	}
	if list == nil {
		list = []model.SettledRound{}
	}
	return list, nil
}

func (s *SQLStore) RoundByRequestKey(ctx context.Context, key string) (*model.SettledRound, error) {
	r, err := model.GetSettledRoundByRequestKey(ctx, s.db, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("round by request key", err)
	}
	return r, nil
}

// isDuplicateKey 识别唯一键冲突：mysql 1062，sqlite SQLITE_CONSTRAINT_UNIQUE/PRIMARYKEY
func isDuplicateKey(err error) bool {
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
