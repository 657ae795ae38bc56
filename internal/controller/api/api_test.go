package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tuplaus-server/internal/card"
	"tuplaus-server/internal/common/response"
	"tuplaus-server/internal/infra/database"
	"tuplaus-server/internal/ledger"
	"tuplaus-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func newHandler(t *testing.T, allowReset bool, cards ...int) *beego.ControllerRegister {
	t.Helper()
	cfg := service.DefaultConfig()
	cfg.InitialBalance = decimal.NewFromInt(100)
	cfg.AllowReset = allowReset
	store := ledger.NewMemoryStore()
	SetRoundService(service.NewRoundService(store, store, card.Sequence(cards...), cfg))
	database.UseDB(nil, "memory")

	h := beego.NewControllerRegister()
	h.Add("/api/player", &PlayerController{}, beego.WithRouterMethods(&PlayerController{}, "post:Create"))
	h.Add("/api/player/reset", &PlayerController{}, beego.WithRouterMethods(&PlayerController{}, "post:Reset"))
	h.Add("/api/player/:id", &PlayerController{}, beego.WithRouterMethods(&PlayerController{}, "get:Get"))
	h.Add("/api/player/:id/rounds", &PlayerController{}, beego.WithRouterMethods(&PlayerController{}, "get:Rounds"))
	h.Add("/api/round", &RoundController{}, beego.WithRouterMethods(&RoundController{}, "post:Play"))
	h.Add("/api/cashout", &RoundController{}, beego.WithRouterMethods(&RoundController{}, "post:CashOut"))
	h.Add("/readyz", &HealthController{}, beego.WithRouterMethods(&HealthController{}, "get:Readyz"))
	return h
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestPlayerLifecycleOverHTTP(t *testing.T) {
	h := newHandler(t, true, 3, 11)

	code, env := do(t, h, "POST", "/api/player", `{"id":"alice"}`)
	require.Equal(t, 200, code)
	assert.Equal(t, response.CodeSuccess, env.Code)
	assert.Equal(t, "100.00", env.Data["balance"])
	assert.Equal(t, "0.00", env.Data["active_winnings"])

	// 3 -> small 赢，携带 20
	code, env = do(t, h, "POST", "/api/round", `{"player_id":"alice","bet":"10","choice":"small"}`)
	require.Equal(t, 200, code)
	assert.Equal(t, float64(3), env.Data["drawn_card"])
	assert.Equal(t, true, env.Data["did_win"])
	assert.Equal(t, "20.00", env.Data["winnings"])
	assert.Equal(t, "90.00", env.Data["new_balance"])

	// 携带局忽略 bet；11 -> large 赢，彩金翻倍
	code, env = do(t, h, "POST", "/api/round", `{"player_id":"alice","bet":"999","choice":"large"}`)
	require.Equal(t, 200, code)
	assert.Equal(t, "40.00", env.Data["winnings"])
	assert.Equal(t, "90.00", env.Data["new_balance"])

	code, env = do(t, h, "POST", "/api/cashout", `{"player_id":"alice"}`)
	require.Equal(t, 200, code)
	assert.Equal(t, "130.00", env.Data["balance"])
	assert.Equal(t, "0.00", env.Data["active_winnings"])

	code, env = do(t, h, "GET", "/api/player/alice", "")
	require.Equal(t, 200, code)
	assert.Equal(t, "130.00", env.Data["balance"])

	code, env = do(t, h, "GET", "/api/player/alice/rounds?limit=1", "")
	require.Equal(t, 200, code)
	rounds, ok := env.Data["rounds"].([]interface{})
	require.True(t, ok)
	require.Len(t, rounds, 1)
	assert.Equal(t, float64(11), rounds[0].(map[string]interface{})["drawn_card"])

	code, env = do(t, h, "POST", "/api/player/reset", `{"id":"alice"}`)
	require.Equal(t, 200, code)
	assert.Equal(t, "100.00", env.Data["balance"])
}

func TestRoundErrorsOverHTTP(t *testing.T) {
	h := newHandler(t, false, 7)
	do(t, h, "POST", "/api/player", `{"id":"bob"}`)

	cases := []struct {
		name   string
		body   string
		status int
		code   int
	}{
		{"unknown player", `{"player_id":"nobody","bet":"1","choice":"small"}`, 404, response.CodeNotFound},
		{"over balance", `{"player_id":"bob","bet":"100.01","choice":"small"}`, 409, response.CodeInsufficientBalance},
		{"non positive", `{"player_id":"bob","bet":"0","choice":"small"}`, 400, response.CodeInvalidBet},
		{"bad choice", `{"player_id":"bob","bet":"1","choice":"seven"}`, 400, response.CodeInvalidChoice},
		{"missing player", `{"bet":"1","choice":"small"}`, 400, response.CodeBadRequest},
		{"bad json", `{"player_id":`, 400, response.CodeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := do(t, h, "POST", "/api/round", tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, env.Code)
		})
	}

	// 以上失败均未改动余额
	_, env := do(t, h, "GET", "/api/player/bob", "")
	assert.Equal(t, "100.00", env.Data["balance"])

	status, env := do(t, h, "POST", "/api/player/reset", `{"id":"bob"}`)
	assert.Equal(t, 403, status)
	assert.Equal(t, response.CodeResetDisabled, env.Code)

	status, env = do(t, h, "GET", "/api/player/nobody/rounds", "")
	assert.Equal(t, 404, status)
	assert.Equal(t, response.CodeNotFound, env.Code)
}

func TestIdempotencyKeyHeaderReplays(t *testing.T) {
	h := newHandler(t, false, 2, 12)
	do(t, h, "POST", "/api/player", `{"id":"carol"}`)

	send := func() envelope {
		req := httptest.NewRequest("POST", "/api/round", strings.NewReader(`{"player_id":"carol","bet":"5","choice":"small"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "retry-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, 200, w.Code, w.Body.String())
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		return env
	}
	first := send()
	second := send()
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, float64(2), second.Data["drawn_card"])

	_, env := do(t, h, "GET", "/api/player/carol", "")
	assert.Equal(t, "95.00", env.Data["balance"])
	assert.Equal(t, "10.00", env.Data["active_winnings"])
}

func TestReadyzMemoryMode(t *testing.T) {
	h := newHandler(t, false)
	req := httptest.NewRequest("GET", "/readyz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"ready":true`)
}
