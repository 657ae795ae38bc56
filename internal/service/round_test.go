package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"tuplaus-server/common"
	"tuplaus-server/internal/card"
	infrds "tuplaus-server/internal/infra/redis"
	"tuplaus-server/internal/ledger"
	"tuplaus-server/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixedDrawer 每次返回当前设定的牌
type fixedDrawer struct {
	mu   sync.Mutex
	card int
}

func (f *fixedDrawer) set(c int) {
	f.mu.Lock()
	f.card = c
	f.mu.Unlock()
}

func (f *fixedDrawer) Draw() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.card
}

type harness struct {
	svc    RoundService
	store  ledger.Store
	drawer *fixedDrawer
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialBalance = d("100")
	cfg.AllowReset = true
	return cfg
}

func newSQLite(t *testing.T) *ledger.SQLStore {
	t.Helper()
	db, err := common.InitDB(common.DriverSQLite, ":memory:", 1, 1)
	require.NoError(t, err)
	s := ledger.NewSQLStore(db, common.DriverSQLite)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func eachBackend(t *testing.T, cfg Config, fn func(t *testing.T, h *harness)) {
	backends := map[string]func(t *testing.T) ledger.Store{
		"memory": func(*testing.T) ledger.Store { return ledger.NewMemoryStore() },
		"sqlite": func(t *testing.T) ledger.Store { return newSQLite(t) },
	}
	for _, name := range []string{"memory", "sqlite"} {
		mk := backends[name]
		t.Run(name, func(t *testing.T) {
			store := mk(t)
			dr := &fixedDrawer{card: 1}
			fn(t, &harness{svc: NewRoundService(store, store, dr, cfg), store: store, drawer: dr})
		})
	}
}

func (h *harness) play(t *testing.T, id, bet, choice string, drawn int) (*model.RoundOutcome, error) {
	t.Helper()
	h.drawer.set(drawn)
	return h.svc.PlayRound(context.Background(), PlayRoundInput{PlayerID: id, Bet: d(bet), Choice: choice})
}

func (h *harness) player(t *testing.T, id string) *model.Player {
	t.Helper()
	p, err := h.svc.GetPlayer(context.Background(), id)
	require.NoError(t, err)
	return p
}

func assertFunds(t *testing.T, p *model.Player, balance, winnings string) {
	t.Helper()
	assert.True(t, p.Balance.Equal(d(balance)), "balance = %s, want %s", p.Balance, balance)
	assert.True(t, p.ActiveWinnings.Equal(d(winnings)), "active winnings = %s, want %s", p.ActiveWinnings, winnings)
}

func TestWinsAllCards(t *testing.T) {
	for c := card.Min; c <= card.Max; c++ {
		assert.Equal(t, c <= 6, Wins(model.ChoiceSmall, c), "small card %d", c)
		assert.Equal(t, c >= 8, Wins(model.ChoiceLarge, c), "large card %d", c)
	}
	assert.False(t, Wins(model.ChoiceSmall, 0))
	assert.False(t, Wins(model.ChoiceLarge, 14))
	assert.False(t, Wins(model.Choice("tie"), 3))
}

// 13 张牌 x 2 种选择：非携带局的资金变化
func TestPlayRoundEveryCardAndChoice(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		for c := card.Min; c <= card.Max; c++ {
			for _, choice := range []string{"small", "large"} {
				id := fmt.Sprintf("p-%s-%d", choice, c)
				_, err := h.svc.CreateOrGetPlayer(ctx, id)
				require.NoError(t, err)

				out, err := h.play(t, id, "10", choice, c)
				require.NoError(t, err)

				want := Wins(model.Choice(choice), c)
				assert.Equal(t, c, out.DrawnCard)
				assert.Equal(t, want, out.DidWin, "%s on %d", choice, c)
				assert.True(t, out.NewBalance.Equal(d("90")), "balance always debited")
				if want {
					assert.True(t, out.Winnings.Equal(d("20")))
				} else {
					assert.True(t, out.Winnings.IsZero())
				}
				if c == 7 {
					assert.False(t, out.DidWin)
				}
			}
		}
	})
}

func TestScenarioWinCarryCashOut(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.CreateOrGetPlayer(ctx, "alice")
		require.NoError(t, err)

		// balance 100, bet 10 small, card 3
		out, err := h.play(t, "alice", "10", "small", 3)
		require.NoError(t, err)
		assert.True(t, out.DidWin)
		assert.True(t, out.Winnings.Equal(d("20")))
		assert.True(t, out.NewBalance.Equal(d("90")))
		assertFunds(t, h.player(t, "alice"), "90", "20")

		// 携带 20，large，card 12：余额不变，bet 被忽略
		out, err = h.play(t, "alice", "999", "large", 12)
		require.NoError(t, err)
		assert.True(t, out.DidWin)
		assert.True(t, out.Winnings.Equal(d("40")))
		assert.True(t, out.NewBalance.Equal(d("90")))

		// cash out 40 + 90
		p, err := h.svc.CashOut(ctx, "alice")
		require.NoError(t, err)
		assertFunds(t, p, "130", "0")

		rounds, err := h.svc.ListRounds(ctx, "alice", 0)
		require.NoError(t, err)
		require.Len(t, rounds, 2)
		assert.True(t, rounds[0].CarryOver)
		assert.True(t, rounds[0].EffectiveBet.Equal(d("20")))
		assert.False(t, rounds[1].CarryOver)
		assert.True(t, rounds[1].EffectiveBet.Equal(d("10")))
	})
}

func TestScenarioLoseOnSeven(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		_, err := h.svc.CreateOrGetPlayer(context.Background(), "bob")
		require.NoError(t, err)
		_, err = h.play(t, "bob", "10", "large", 7)
		require.NoError(t, err)
		assertFunds(t, h.player(t, "bob"), "90", "0")

		out, err := h.play(t, "bob", "50", "small", 7)
		require.NoError(t, err)
		assert.False(t, out.DidWin)
		assert.True(t, out.Winnings.IsZero())
		assert.True(t, out.NewBalance.Equal(d("40")))
	})
}

func TestScenarioInsufficientBalance(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		_, err := h.svc.CreateOrGetPlayer(context.Background(), "carol")
		require.NoError(t, err)
		_, err = h.play(t, "carol", "95", "small", 7)
		require.NoError(t, err)

		_, err = h.play(t, "carol", "10", "small", 3)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assertFunds(t, h.player(t, "carol"), "5", "0")

		rounds, err := h.svc.ListRounds(context.Background(), "carol", 0)
		require.NoError(t, err)
		assert.Len(t, rounds, 1)
	})
}

func TestScenarioCashOutWithoutWinnings(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.CreateOrGetPlayer(ctx, "dave")
		require.NoError(t, err)

		before := h.player(t, "dave")
		p, err := h.svc.CashOut(ctx, "dave")
		require.NoError(t, err)
		assertFunds(t, p, "100", "0")
		assert.Equal(t, before.UpdatedAt, h.player(t, "dave").UpdatedAt, "no write expected")
	})
}

func TestLossClearsCarry(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		_, err := h.svc.CreateOrGetPlayer(context.Background(), "p")
		require.NoError(t, err)
		_, err = h.play(t, "p", "10", "small", 1)
		require.NoError(t, err)

		// 携带局输：彩金清零，余额不变
		out, err := h.play(t, "p", "10", "small", 9)
		require.NoError(t, err)
		assert.False(t, out.DidWin)
		assertFunds(t, h.player(t, "p"), "90", "0")

		// 之后回到普通局，再次扣本金
		_, err = h.play(t, "p", "10", "small", 9)
		require.NoError(t, err)
		assertFunds(t, h.player(t, "p"), "80", "0")
	})
}

func TestSecondCarryWinDoublesStake(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		_, err := h.svc.CreateOrGetPlayer(context.Background(), "p")
		require.NoError(t, err)
		for i, want := range []string{"20", "40", "80", "160"} {
			out, err := h.play(t, "p", "10", "large", 13)
			require.NoError(t, err, "round %d", i)
			assert.True(t, out.Winnings.Equal(d(want)), "round %d winnings %s", i, out.Winnings)
			assert.True(t, out.NewBalance.Equal(d("90")))
		}
	})
}

func TestCarryIgnoresBetArgument(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		_, err := h.svc.CreateOrGetPlayer(context.Background(), "p")
		require.NoError(t, err)
		_, err = h.play(t, "p", "10", "small", 2)
		require.NoError(t, err)

		for _, bet := range []string{"0", "-5", "100000000"} {
			h.drawer.set(2)
			out, err := h.svc.PlayRound(context.Background(), PlayRoundInput{PlayerID: "p", Bet: d(bet), Choice: "small"})
			require.NoError(t, err, "bet %s", bet)
			assert.True(t, out.NewBalance.Equal(d("90")))
		}
	})
}

func TestRejectedRoundsWriteNothing(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.CreateOrGetPlayer(ctx, "p")
		require.NoError(t, err)

		cases := []struct {
			bet, choice string
			want        error
		}{
			{"0", "small", ErrInvalidBet},
			{"-1", "small", ErrInvalidBet},
			{"101", "small", ErrInsufficientBalance},
			{"0.001", "small", ErrInvalidBet},
			{"10", "medium", ErrInvalidChoice},
			{"10", "", ErrInvalidChoice},
		}
		for _, c := range cases {
			_, err := h.play(t, "p", c.bet, c.choice, 3)
			assert.ErrorIs(t, err, c.want, "bet=%s choice=%s", c.bet, c.choice)
		}
		// 非正数下注同时满足余额不足的判定
		_, err = h.play(t, "p", "0", "small", 3)
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		assertFunds(t, h.player(t, "p"), "100", "0")
		rounds, err := h.svc.ListRounds(ctx, "p", 0)
		require.NoError(t, err)
		assert.Empty(t, rounds)
	})
}

func TestValidationOrder(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		_, err := h.play(t, "ghost", "-1", "medium", 3)
		assert.ErrorIs(t, err, ErrPlayerNotFound)

		_, err = h.svc.CreateOrGetPlayer(context.Background(), "p")
		require.NoError(t, err)
		_, err = h.play(t, "p", "500", "medium", 3)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.NotErrorIs(t, err, ErrInvalidChoice)
	})
}

func TestBetLimits(t *testing.T) {
	cfg := testConfig()
	cfg.InitialBalance = d("1000")
	cfg.MinBet = d("5")
	cfg.MaxBet = d("100")
	eachBackend(t, cfg, func(t *testing.T, h *harness) {
		_, err := h.svc.CreateOrGetPlayer(context.Background(), "p")
		require.NoError(t, err)

		_, err = h.play(t, "p", "4.99", "small", 3)
		assert.ErrorIs(t, err, ErrInvalidBet)
		_, err = h.play(t, "p", "100.01", "small", 3)
		assert.ErrorIs(t, err, ErrInvalidBet)
		_, err = h.play(t, "p", "100", "small", 7)
		assert.NoError(t, err)
		assertFunds(t, h.player(t, "p"), "900", "0")
	})
}

func TestUnknownPlayer(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.GetPlayer(ctx, "ghost")
		assert.ErrorIs(t, err, ErrPlayerNotFound)
		_, err = h.svc.CashOut(ctx, "ghost")
		assert.ErrorIs(t, err, ErrPlayerNotFound)
		_, err = h.svc.ListRounds(ctx, "ghost", 10)
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})
}

func TestCreateOrGetPlayer(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		p, err := h.svc.CreateOrGetPlayer(ctx, "p")
		require.NoError(t, err)
		assertFunds(t, p, "100", "0")

		_, err = h.play(t, "p", "10", "small", 7)
		require.NoError(t, err)
		p, err = h.svc.CreateOrGetPlayer(ctx, "p")
		require.NoError(t, err)
		assertFunds(t, p, "90", "0")

		_, err = h.svc.CreateOrGetPlayer(ctx, "  ")
		assert.ErrorIs(t, err, ErrBadRequest)
	})
}

func TestPlayerIDTrimmedInEveryOperation(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.CreateOrGetPlayer(ctx, " bob ")
		require.NoError(t, err)

		out, err := h.play(t, " bob ", "10", "small", 3)
		require.NoError(t, err)
		assert.True(t, out.DidWin)

		p, err := h.svc.GetPlayer(ctx, "bob\t")
		require.NoError(t, err)
		assert.Equal(t, "bob", p.ID)
		assertFunds(t, p, "90", "20")

		list, err := h.svc.ListRounds(ctx, " bob", 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "bob", list[0].PlayerID)

		p, err = h.svc.CashOut(ctx, "bob ")
		require.NoError(t, err)
		assertFunds(t, p, "110", "0")
	})
}

func TestResetPlayer(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.CreateOrGetPlayer(ctx, "p")
		require.NoError(t, err)
		_, err = h.play(t, "p", "10", "small", 3)
		require.NoError(t, err)

		p, err := h.svc.ResetPlayer(ctx, "p")
		require.NoError(t, err)
		assertFunds(t, p, "100", "0")
	})

	svc := NewRoundService(ledger.NewMemoryStore(), nil, nil, DefaultConfig())
	_, err := svc.ResetPlayer(context.Background(), "p")
	assert.ErrorIs(t, err, ErrResetDisabled)
}

func TestListRoundsLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryLimit = 3
	eachBackend(t, cfg, func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.CreateOrGetPlayer(ctx, "p")
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			_, err := h.play(t, "p", "1", "small", 7)
			require.NoError(t, err)
		}

		rounds, err := h.svc.ListRounds(ctx, "p", 2)
		require.NoError(t, err)
		assert.Len(t, rounds, 2)

		rounds, err = h.svc.ListRounds(ctx, "p", 100)
		require.NoError(t, err)
		assert.Len(t, rounds, 3)
		assert.True(t, rounds[0].BalanceAfter.Equal(d("95")))
	})
}

func TestIdempotentReplay(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.CreateOrGetPlayer(ctx, "p")
		require.NoError(t, err)

		in := PlayRoundInput{PlayerID: "p", Bet: d("10"), Choice: "small", RequestKey: "req-1"}
		h.drawer.set(3)
		first, err := h.svc.PlayRound(ctx, in)
		require.NoError(t, err)

		// 重放时抽牌结果不同，也必须返回第一次的结果
		h.drawer.set(7)
		again, err := h.svc.PlayRound(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, first.DrawnCard, again.DrawnCard)
		assert.Equal(t, first.DidWin, again.DidWin)
		assert.True(t, first.Winnings.Equal(again.Winnings))
		assert.True(t, first.NewBalance.Equal(again.NewBalance))

		assertFunds(t, h.player(t, "p"), "90", "20")
		rounds, err := h.svc.ListRounds(ctx, "p", 0)
		require.NoError(t, err)
		assert.Len(t, rounds, 1)

		_, err = h.svc.CreateOrGetPlayer(ctx, "other")
		require.NoError(t, err)
		_, err = h.svc.PlayRound(ctx, PlayRoundInput{PlayerID: "other", Bet: d("10"), Choice: "small", RequestKey: "req-1"})
		assert.ErrorIs(t, err, ErrBadRequest)
	})
}

func TestConcurrentDuplicateRequestKey(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.CreateOrGetPlayer(ctx, "p")
		require.NoError(t, err)
		h.drawer.set(9)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.svc.PlayRound(ctx, PlayRoundInput{PlayerID: "p", Bet: d("10"), Choice: "large", RequestKey: "dup"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assertFunds(t, h.player(t, "p"), "90", "20")
		rounds, err := h.svc.ListRounds(ctx, "p", 0)
		require.NoError(t, err)
		assert.Len(t, rounds, 1)
	})
}

// 并发对同一玩家下注：按历史记录顺序重放，必须得到最终状态
func TestConcurrentRoundsConserveMoney(t *testing.T) {
	cfg := testConfig()
	cfg.InitialBalance = d("1000")
	backends := map[string]ledger.Store{
		"memory": ledger.NewMemoryStore(),
		"sqlite": newSQLite(t),
	}
	for name, store := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewRoundService(store, store, card.NewCryptoDrawer(), cfg)
			_, err := svc.CreateOrGetPlayer(ctx, "p")
			require.NoError(t, err)

			const workers = 8
			const perWorker = 10
			var (
				wg sync.WaitGroup
				mu sync.Mutex
				ok int
			)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					choice := "small"
					if w%2 == 1 {
						choice = "large"
					}
					for i := 0; i < perWorker; i++ {
						if _, err := svc.PlayRound(ctx, PlayRoundInput{PlayerID: "p", Bet: d("1"), Choice: choice}); err == nil {
							mu.Lock()
							ok++
							mu.Unlock()
						} else {
							assert.ErrorIs(t, err, ErrInsufficientBalance)
						}
					}
				}(w)
			}
			wg.Wait()

			rounds, err := svc.ListRounds(ctx, "p", 0)
			require.NoError(t, err)
			if len(rounds) > cfg.HistoryLimit {
				t.Fatalf("history limit not applied")
			}
			all, err := store.ListRounds(ctx, "p", 0)
			require.NoError(t, err)
			require.Len(t, all, ok)

			sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
			balance, winnings := d("1000"), decimal.Zero
			for _, r := range all {
				require.Equal(t, winnings.IsPositive(), r.CarryOver, "round %d carry flag", r.ID)
				if r.CarryOver {
					require.True(t, r.EffectiveBet.Equal(winnings), "round %d stake", r.ID)
				} else {
					balance = balance.Sub(r.EffectiveBet)
				}
				if r.DidWin {
					winnings = r.EffectiveBet.Mul(d("2"))
				} else {
					winnings = decimal.Zero
				}
				require.True(t, r.BalanceAfter.Equal(balance), "round %d balance_after", r.ID)
				require.True(t, r.Winnings.Equal(winnings), "round %d winnings", r.ID)
			}

			p, err := svc.GetPlayer(ctx, "p")
			require.NoError(t, err)
			assertFunds(t, p, balance.String(), winnings.String())
		})
	}
}

func TestConcurrentCashOutCreditsOnce(t *testing.T) {
	eachBackend(t, testConfig(), func(t *testing.T, h *harness) {
		ctx := context.Background()
		_, err := h.svc.CreateOrGetPlayer(ctx, "p")
		require.NoError(t, err)
		_, err = h.play(t, "p", "10", "small", 3)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.svc.CashOut(ctx, "p")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assertFunds(t, h.player(t, "p"), "110", "0")
	})
}

func TestInvalidDrawIsSettlementFailure(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewRoundService(store, store, card.Func(func() int { return 0 }), testConfig())
	_, err := svc.CreateOrGetPlayer(context.Background(), "p")
	require.NoError(t, err)

	_, err = svc.PlayRound(context.Background(), PlayRoundInput{PlayerID: "p", Bet: d("10"), Choice: "small"})
	assert.ErrorIs(t, err, ErrSettlementFailed)
	p, err := svc.GetPlayer(context.Background(), "p")
	require.NoError(t, err)
	assertFunds(t, p, "100", "0")
}

func TestHistoryFailureLeavesPlayerUntouched(t *testing.T) {
	store := newSQLite(t)
	dr := &fixedDrawer{card: 3}
	svc := NewRoundService(store, store, dr, testConfig())
	ctx := context.Background()
	_, err := svc.CreateOrGetPlayer(ctx, "p")
	require.NoError(t, err)

	_, err = store.DB().ExecContext(ctx, "DROP TABLE settled_rounds")
	require.NoError(t, err)

	out, err := svc.PlayRound(ctx, PlayRoundInput{PlayerID: "p", Bet: d("10"), Choice: "small"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrSettlementFailed)

	p, err := svc.GetPlayer(ctx, "p")
	require.NoError(t, err)
	assertFunds(t, p, "100", "0")
}

func TestCanceledContextFailsSettlement(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := NewRoundService(store, store, &fixedDrawer{card: 3}, testConfig())
	_, err := svc.CreateOrGetPlayer(context.Background(), "p")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.PlayRound(ctx, PlayRoundInput{PlayerID: "p", Bet: d("10"), Choice: "small"})
	assert.ErrorIs(t, err, ErrSettlementFailed)
}

func TestRedisUnavailableDegradesToStore(t *testing.T) {
	rdb := infrds.New(infrds.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer rdb.Close()

	store := ledger.NewMemoryStore()
	svc := NewRoundService(store, store, &fixedDrawer{card: 3}, testConfig(), WithRedis(rdb))
	ctx := context.Background()
	_, err := svc.CreateOrGetPlayer(ctx, "p")
	require.NoError(t, err)

	in := PlayRoundInput{PlayerID: "p", Bet: d("10"), Choice: "small", RequestKey: "k"}
	first, err := svc.PlayRound(ctx, in)
	require.NoError(t, err)
	again, err := svc.PlayRound(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.DrawnCard, again.DrawnCard)

	p, err := svc.GetPlayer(ctx, "p")
	require.NoError(t, err)
	assertFunds(t, p, "90", "20")
}
