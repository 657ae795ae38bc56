package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuplaus-server/common/logger"
	"tuplaus-server/internal/card"
	infrds "tuplaus-server/internal/infra/redis"
	"tuplaus-server/internal/ledger"
	"tuplaus-server/internal/metrics"
	"tuplaus-server/internal/model"
	"tuplaus-server/internal/state"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// Redis 进行中锁 TTL：应覆盖一次结算的最长耗时（事务超时 3s）
	idemLockTTL = 10 * time.Second
	// 结果缓存 TTL：覆盖大多数短时重试窗口，之后由 request_key 唯一键兜底
	idemResultTTL = 1 * time.Minute
)

// Config 业务参数
type Config struct {
	InitialBalance decimal.Decimal // 新玩家初始余额
	MinBet         decimal.Decimal // 非携带局最小下注，0 表示不限制
	MaxBet         decimal.Decimal // 非携带局最大下注，0 表示不限制
	AllowReset     bool            // 是否允许重置玩家余额（演示/测试）
	HistoryLimit   int             // 历史查询默认及最大条数
}

// DefaultConfig 默认业务参数
func DefaultConfig() Config {
	return Config{
		InitialBalance: decimal.NewFromInt(1000),
		MinBet:         decimal.RequireFromString("0.01"),
		MaxBet:         decimal.NewFromInt(1000000),
		HistoryLimit:   50,
	}
}

// PlayRoundInput 单局请求
// 携带局（active_winnings > 0）忽略 Bet；RequestKey 可选，用于幂等重放
type PlayRoundInput struct {
	PlayerID   string
	Bet        decimal.Decimal
	Choice     string
	RequestKey string
	TraceID    string
}

// RoundService 单局结算与玩家资金操作
type RoundService interface {
	// PlayRound 校验 -> 抽牌 -> 判定 -> 资金与结算记录原子提交
	PlayRound(ctx context.Context, in PlayRoundInput) (*model.RoundOutcome, error)
	// CashOut 携带彩金转入余额；无彩金时原样返回，不写入
	CashOut(ctx context.Context, playerID string) (*model.Player, error)
	GetPlayer(ctx context.Context, playerID string) (*model.Player, error)
	CreateOrGetPlayer(ctx context.Context, playerID string) (*model.Player, error)
	ResetPlayer(ctx context.Context, playerID string) (*model.Player, error)
	ListRounds(ctx context.Context, playerID string, limit int) ([]model.SettledRound, error)
}

// normalizeID 所有入口统一去除玩家ID首尾空白
func normalizeID(id string) string { return strings.TrimSpace(id) }

type Option func(*roundService)

// WithRedis 启用 Redis 幂等快路径；nil 表示关闭
func WithRedis(c *goredis.Client) Option {
	return func(s *roundService) { s.rdb = c }
}

type roundService struct {
	ledger  ledger.PlayerLedger
	history ledger.RoundHistory
	drawer  card.Drawer
	cfg     Config
	rdb     *goredis.Client
}

func NewRoundService(pl ledger.PlayerLedger, rh ledger.RoundHistory, drawer card.Drawer, cfg Config, opts ...Option) RoundService {
	if drawer == nil {
		drawer = card.NewCryptoDrawer()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	s := &roundService{ledger: pl, history: rh, drawer: drawer, cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *roundService) PlayRound(ctx context.Context, in PlayRoundInput) (out *model.RoundOutcome, err error) {
	start := time.Now()
	result := ""
	defer func() {
		if result == "" {
			result = errLabel(err)
		}
		metrics.RecordRound(result, in.Choice, start)
	}()

	ctx = logger.WithTraceID(ctx, in.TraceID)
	in.PlayerID = normalizeID(in.PlayerID)
	in.RequestKey = strings.TrimSpace(in.RequestKey)

	if in.RequestKey != "" {
		// 持久层先查：已结算的请求直接重放
		if r, e := s.history.RoundByRequestKey(ctx, in.RequestKey); e == nil {
			result = "replay"
			return s.replay(ctx, in, r)
		} else if !errors.Is(e, ledger.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, e)
		}

		if s.rdb != nil {
			if o := s.cachedOutcome(ctx, in.RequestKey, in.PlayerID); o != nil {
				result = "replay"
				return o, nil
			}
			release, e := s.lock(ctx, in.RequestKey)
			if e != nil {
				return nil, e
			}
			defer release()
		}
	}

	choice, choiceErr := model.ParseChoice(in.Choice)

	var prevState string
	p, round, err := s.ledger.ApplyOutcome(ctx, in.PlayerID, func(p *model.Player) (*model.SettledRound, error) {
		carry := p.HasCarry()
		stake := in.Bet
		if carry {
			stake = p.ActiveWinnings
		} else if e := s.checkBet(in.Bet, p.Balance); e != nil {
			return nil, e
		}
		if choiceErr != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidChoice, in.Choice)
		}

		drawn := s.drawer.Draw()
		if !card.Valid(drawn) {
			return nil, fmt.Errorf("%w: drawn card %d out of range", ErrSettlementFailed, drawn)
		}
		won := Wins(choice, drawn)
		prevState = state.Of(p.ActiveWinnings)
		settle(p, stake, carry, won)

		return &model.SettledRound{
			EffectiveBet: stake,
			Choice:       choice,
			DrawnCard:    drawn,
			DidWin:       won,
			CarryOver:    carry,
			RequestKey:   in.RequestKey,
			TraceID:      in.TraceID,
		}, nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateRequest) {
			// 并发重复请求：唯一键冲突，返回第一次的结果
			r, e := s.history.RoundByRequestKey(ctx, in.RequestKey)
			if e != nil {
				return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, e)
			}
			result = "replay"
			return s.replay(ctx, in, r)
		}
		err = s.mapRoundErr(err)
		logger.WarnCtx(ctx, "play round rejected",
			zap.String("player_id", in.PlayerID),
			zap.String("bet", in.Bet.String()),
			zap.String("choice", in.Choice),
			zap.String("request_key", in.RequestKey),
			zap.Error(err))
		return nil, err
	}

	nextState, _ := state.Next(prevState, state.OutcomeEvent(round.DidWin))
	metrics.RecordRoundOutcome(round.DidWin, round.CarryOver)
	logger.InfoCtx(ctx, "round settled",
		zap.Int64("round_id", round.ID),
		zap.String("player_id", p.ID),
		zap.String("effective_bet", round.EffectiveBet.StringFixed(2)),
		zap.String("choice", round.Choice.String()),
		zap.Int("drawn_card", round.DrawnCard),
		zap.Bool("did_win", round.DidWin),
		zap.Bool("carry_over", round.CarryOver),
		zap.String("winnings", p.ActiveWinnings.StringFixed(2)),
		zap.String("balance", p.Balance.StringFixed(2)),
		zap.String("prev_state", prevState),
		zap.String("next_state", nextState))

	out = &model.RoundOutcome{
		DrawnCard:  round.DrawnCard,
		DidWin:     round.DidWin,
		Winnings:   p.ActiveWinnings,
		NewBalance: p.Balance,
	}
	result = "success"
	s.cacheOutcome(ctx, in.RequestKey, p.ID, out)
	return out, nil
}

// checkBet 非携带局的下注校验；顺序：非正数 -> 超余额 -> 精度/限额
func (s *roundService) checkBet(bet, balance decimal.Decimal) error {
	if !bet.IsPositive() {
		return fmt.Errorf("%w: bet %s must be positive", ErrInvalidBet, bet.String())
	}
	if bet.GreaterThan(balance) {
		return fmt.Errorf("%w: bet %s exceeds balance %s", ErrInsufficientBalance, bet.String(), balance.StringFixed(2))
	}
	if !bet.Equal(bet.Truncate(2)) {
		return fmt.Errorf("%w: bet %s has more than 2 decimals", ErrInvalidBet, bet.String())
	}
	if s.cfg.MinBet.IsPositive() && bet.LessThan(s.cfg.MinBet) {
		return fmt.Errorf("%w: bet below minimum %s", ErrInvalidBet, s.cfg.MinBet.String())
	}
	if s.cfg.MaxBet.IsPositive() && bet.GreaterThan(s.cfg.MaxBet) {
		return fmt.Errorf("%w: bet exceeds maximum %s", ErrInvalidBet, s.cfg.MaxBet.String())
	}
	return nil
}

// mapRoundErr 校验错误原样返回，其余存储错误统一为结算失败
func (s *roundService) mapRoundErr(err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInvalidChoice),
		errors.Is(err, ErrSettlementFailed):
		return err
	}
	return fmt.Errorf("%w: %v", ErrSettlementFailed, err)
}

// replay 按已落库的结算记录还原结果；request_key 不允许跨玩家复用
func (s *roundService) replay(ctx context.Context, in PlayRoundInput, r *model.SettledRound) (*model.RoundOutcome, error) {
	if r.PlayerID != in.PlayerID {
		return nil, fmt.Errorf("%w: request key already used by another player", ErrBadRequest)
	}
	o := r.Outcome()
	logger.InfoCtx(ctx, "round replayed",
		zap.Int64("round_id", r.ID),
		zap.String("player_id", r.PlayerID),
		zap.String("request_key", in.RequestKey))
	s.cacheOutcome(ctx, in.RequestKey, r.PlayerID, &o)
	return &o, nil
}

type cachedRound struct {
	PlayerID   string          `json:"player_id"`
	DrawnCard  int             `json:"drawn_card"`
	DidWin     bool            `json:"did_win"`
	Winnings   decimal.Decimal `json:"winnings"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// cachedOutcome 命中且属于同一玩家时返回缓存结果
func (s *roundService) cachedOutcome(ctx context.Context, key, playerID string) *model.RoundOutcome {
	bs, err := s.rdb.Get(ctx, infrds.IdemResultKey(key)).Bytes()
	if err != nil || len(bs) == 0 {
		return nil
	}
	var c cachedRound
	if json.Unmarshal(bs, &c) != nil || c.PlayerID != playerID {
		return nil
	}
	return &model.RoundOutcome{DrawnCard: c.DrawnCard, DidWin: c.DidWin, Winnings: c.Winnings, NewBalance: c.NewBalance}
}

// cacheOutcome 写入结果缓存（降级容错，失败只告警）
func (s *roundService) cacheOutcome(ctx context.Context, key, playerID string, o *model.RoundOutcome) {
	if s.rdb == nil || key == "" {
		return
	}
	b, err := json.Marshal(cachedRound{PlayerID: playerID, DrawnCard: o.DrawnCard, DidWin: o.DidWin, Winnings: o.Winnings, NewBalance: o.NewBalance})
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, infrds.IdemResultKey(key), b, idemResultTTL).Err(); err != nil {
		logger.WarnCtx(ctx, "cache round outcome failed", zap.String("request_key", key), zap.Error(err))
	}
}

// lock 获取进行中锁；Redis 不可用时降级为无锁，由 request_key 唯一键兜底
func (s *roundService) lock(ctx context.Context, key string) (func(), error) {
	lockKey := infrds.IdemLockKey(key)
	lockValue := uuid.New().String()

	ok, err := s.rdb.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
	if err != nil {
		logger.WarnCtx(ctx, "idempotency lock unavailable, falling back to store", zap.String("request_key", key), zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, ErrDuplicateInFlight
	}
	return func() {
		released, err := infrds.Release(context.WithoutCancel(ctx), s.rdb, lockKey, lockValue)
		if err != nil {
			logger.WarnCtx(ctx, "release idempotency lock failed", zap.String("request_key", key), zap.Error(err))
		} else if !released {
			logger.WarnCtx(ctx, "idempotency lock expired before release", zap.String("request_key", key))
		}
	}, nil
}

func (s *roundService) CashOut(ctx context.Context, playerID string) (p *model.Player, err error) {
	start := time.Now()
	result := "fail"
	moved := false
	defer func() { metrics.RecordCashOut(result, moved, start) }()

	playerID = normalizeID(playerID)

	p, moved, err = s.ledger.SettleWinnings(ctx, playerID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrPlayerNotFound
		}
		logger.ErrorCtx(ctx, "cash out failed", zap.String("player_id", playerID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	before := state.NoCarry
	if moved {
		before = state.HasCarry
	}
	next, _ := state.Next(before, state.EvtCashOut)
	logger.InfoCtx(ctx, "cash out",
		zap.String("player_id", p.ID),
		zap.Bool("moved", moved),
		zap.String("balance", p.Balance.StringFixed(2)),
		zap.String("prev_state", before),
		zap.String("next_state", next))
	result = "success"
	return p, nil
}

func (s *roundService) GetPlayer(ctx context.Context, playerID string) (p *model.Player, err error) {
	start := time.Now()
	defer func() { metrics.RecordPlayerOp(errLabel(err), "get", start) }()

	playerID = normalizeID(playerID)

	p, err = s.ledger.Get(ctx, playerID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *roundService) CreateOrGetPlayer(ctx context.Context, playerID string) (p *model.Player, err error) {
	start := time.Now()
	defer func() { metrics.RecordPlayerOp(errLabel(err), "create", start) }()

	playerID = normalizeID(playerID)
	if playerID == "" {
		return nil, fmt.Errorf("%w: empty player id", ErrBadRequest)
	}
	return s.ledger.CreateOrInit(ctx, playerID, s.cfg.InitialBalance)
}

func (s *roundService) ResetPlayer(ctx context.Context, playerID string) (p *model.Player, err error) {
	start := time.Now()
	defer func() { metrics.RecordPlayerOp(errLabel(err), "reset", start) }()

	if !s.cfg.AllowReset {
		return nil, ErrResetDisabled
	}
	playerID = normalizeID(playerID)
	if playerID == "" {
		return nil, fmt.Errorf("%w: empty player id", ErrBadRequest)
	}
	p, err = s.ledger.Reset(ctx, playerID, s.cfg.InitialBalance)
	if err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "player reset", zap.String("player_id", playerID), zap.String("balance", p.Balance.StringFixed(2)))
	return p, nil
}

func (s *roundService) ListRounds(ctx context.Context, playerID string, limit int) (list []model.SettledRound, err error) {
	start := time.Now()
	defer func() { metrics.RecordPlayerOp(errLabel(err), "history", start) }()

	playerID = normalizeID(playerID)

	if _, err = s.ledger.Get(ctx, playerID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.history.ListRounds(ctx, playerID, limit)
}
