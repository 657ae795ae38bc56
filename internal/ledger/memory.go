package ledger

import (
	"context"
	"sync"
	"time"

	"tuplaus-server/internal/model"

	"github.com/shopspring/decimal"
)

// MemoryStore 进程内账本，每个玩家一把互斥锁
// 锁顺序：玩家锁 -> 全局锁；持有全局锁时不得再获取玩家锁
type MemoryStore struct {
	mu      sync.RWMutex
	players map[string]*memPlayer
	rounds  []model.SettledRound
	byKey   map[string]int // request_key -> rounds 下标
	nextID  int64
}

type memPlayer struct {
	mu sync.Mutex
	p  model.Player
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[string]*memPlayer),
		byKey:   make(map[string]int),
	}
}

func (s *MemoryStore) entry(id string) *memPlayer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players[id]
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Player, error) {
	e := s.entry(id)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	p := e.p
	e.mu.Unlock()
	return &p, nil
}

func (s *MemoryStore) CreateOrInit(ctx context.Context, id string, initialBalance decimal.Decimal) (*model.Player, error) {
	s.mu.Lock()
	e, ok := s.players[id]
	if !ok {
		now := time.Now().UnixMilli()
		e = &memPlayer{p: model.Player{
			ID:             id,
			Balance:        initialBalance,
			ActiveWinnings: decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		}}
		s.players[id] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	p := e.p
	e.mu.Unlock()
	return &p, nil
}

func (s *MemoryStore) Reset(ctx context.Context, id string, balance decimal.Decimal) (*model.Player, error) {
	if _, err := s.CreateOrInit(ctx, id, balance); err != nil {
		return nil, err
	}

	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.p.Balance = balance
	e.p.ActiveWinnings = decimal.Zero
	e.p.UpdatedAt = time.Now().UnixMilli()
	p := e.p
	return &p, nil
}

func (s *MemoryStore) ApplyOutcome(ctx context.Context, id string, fn Mutation) (*model.Player, *model.SettledRound, error) {
	e := s.entry(id)
	if e == nil {
		return nil, nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, storageErr("apply outcome", err)
	}

	next := e.p
	round, err := fn(&next)
	if err != nil {
		return nil, nil, err
	}
	if err := checkFunds(&next); err != nil {
		return nil, nil, err
	}
	if err := prepareRound(id, &next, round); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	if round.RequestKey != "" {
		if _, dup := s.byKey[round.RequestKey]; dup {
			s.mu.Unlock()
			return nil, nil, ErrDuplicateRequest
		}
	}
	now := time.Now().UnixMilli()
	s.nextID++
	round.ID = s.nextID
	if round.SettledAt == 0 {
		round.SettledAt = now
	}
	s.rounds = append(s.rounds, *round)
	if round.RequestKey != "" {
		s.byKey[round.RequestKey] = len(s.rounds) - 1
	}
	next.UpdatedAt = now
	e.p = next
	s.mu.Unlock()

	p := next
	r := *round
	return &p, &r, nil
}

func (s *MemoryStore) SettleWinnings(ctx context.Context, id string) (*model.Player, bool, error) {
	e := s.entry(id)
	if e == nil {
		return nil, false, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.p.HasCarry() {
		p := e.p
		return &p, false, nil
	}
	e.p.Balance = e.p.Balance.Add(e.p.ActiveWinnings)
	e.p.ActiveWinnings = decimal.Zero
	e.p.UpdatedAt = time.Now().UnixMilli()
	p := e.p
	return &p, true, nil
}

func (s *MemoryStore) ListRounds(ctx context.Context, playerID string, limit int) ([]model.SettledRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]model.SettledRound, 0)
	for i := len(s.rounds) - 1; i >= 0; i-- {
		if s.rounds[i].PlayerID != playerID {
			continue
		}
		list = append(list, s.rounds[i])
		if limit > 0 && len(list) == limit {
			break
		}
	}
	return list, nil
}

func (s *MemoryStore) RoundByRequestKey(ctx context.Context, key string) (*model.SettledRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	r := s.rounds[idx]
	return &r, nil
}

func (s *MemoryStore) Close() error { return nil }
