package helper

import (
	"net/http/httptest"
	"strings"
	"testing"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCtx(method, target, body, contentType string) *beegocontext.Context {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	ctx := beegocontext.NewContext()
	ctx.Reset(httptest.NewRecorder(), req)
	return ctx
}

func TestParseRoundFromJSONAcceptsNumberAndString(t *testing.T) {
	out, ok, _ := ParseRoundFromJSON(strings.NewReader(`{"player_id":"p1","bet":12.5,"choice":"small"}`))
	require.True(t, ok)
	assert.Equal(t, "12.5", out.BetOrZero().String())

	out, ok, _ = ParseRoundFromJSON(strings.NewReader(`{"player_id":"p1","bet":"10.00","choice":"large"}`))
	require.True(t, ok)
	assert.Equal(t, "10", out.BetOrZero().String())

	out, ok, _ = ParseRoundFromJSON(strings.NewReader(`{"player_id":"p1","choice":"large"}`))
	require.True(t, ok)
	assert.False(t, out.Bet.Valid)
	assert.True(t, out.BetOrZero().IsZero())

	_, ok, msg := ParseRoundFromJSON(strings.NewReader(`{"bet":"abc"}`))
	assert.False(t, ok)
	assert.Equal(t, "invalid json body", msg)
}

func TestParseAndValidateRoundJSON(t *testing.T) {
	ctx := newCtx("POST", "/api/round", `{"player_id":" p1 ","bet":"5","choice":"Small"}`, "application/json")
	ctx.Request.Header.Set("Idempotency-Key", "k-1")

	out, ok, msg := ParseAndValidateRound(ctx)
	require.True(t, ok, msg)
	assert.Equal(t, "p1", out.PlayerID)
	assert.Equal(t, "Small", out.Choice)
	assert.Equal(t, "k-1", out.IdempotencyKey)
}

func TestParseAndValidateRoundBodyKeyWins(t *testing.T) {
	ctx := newCtx("POST", "/api/round", `{"player_id":"p1","bet":"5","choice":"small","idempotency_key":"body"}`, "application/json")
	ctx.Request.Header.Set("Idempotency-Key", "header")

	out, ok, _ := ParseAndValidateRound(ctx)
	require.True(t, ok)
	assert.Equal(t, "body", out.IdempotencyKey)
}

func TestParseAndValidateRoundForm(t *testing.T) {
	ctx := newCtx("POST", "/api/round?player_id=p2&bet=3.25&choice=large", "", "")
	out, ok, msg := ParseAndValidateRound(ctx)
	require.True(t, ok, msg)
	assert.Equal(t, "p2", out.PlayerID)
	assert.Equal(t, "3.25", out.BetOrZero().String())

	ctx = newCtx("POST", "/api/round?player_id=p2&bet=x&choice=large", "", "")
	_, ok, _ = ParseAndValidateRound(ctx)
	assert.False(t, ok)
}

func TestValidateRoundRejects(t *testing.T) {
	ok, _ := ValidateRound(nil, &RoundParsed{PlayerID: "  "})
	assert.False(t, ok)
	ok, _ = ValidateRound(nil, &RoundParsed{PlayerID: strings.Repeat("a", 65)})
	assert.False(t, ok)
	ok, _ = ValidateRound(nil, &RoundParsed{PlayerID: "p", IdempotencyKey: strings.Repeat("k", 65)})
	assert.False(t, ok)
}

func TestParseAndValidatePlayerID(t *testing.T) {
	id, ok, _ := ParseAndValidatePlayerID(newCtx("POST", "/api/player", `{"id":"alice"}`, "application/json"))
	require.True(t, ok)
	assert.Equal(t, "alice", id)

	id, ok, _ = ParseAndValidatePlayerID(newCtx("POST", "/api/cashout", `{"player_id":"bob"}`, "application/json"))
	require.True(t, ok)
	assert.Equal(t, "bob", id)

	_, ok, _ = ParseAndValidatePlayerID(newCtx("POST", "/api/player", `{}`, "application/json"))
	assert.False(t, ok)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 10, ParseLimit("10"))
	assert.Equal(t, 0, ParseLimit(""))
	assert.Equal(t, 0, ParseLimit("-3"))
	assert.Equal(t, 0, ParseLimit("abc"))
}

func TestGetTraceID(t *testing.T) {
	ctx := newCtx("GET", "/", "", "")
	assert.Equal(t, "", GetTraceID(ctx))
	ctx.Request.Header.Set("X-Trace-ID", "h")
	assert.Equal(t, "h", GetTraceID(ctx))
	ctx.Input.SetData("trace_id", "d")
	assert.Equal(t, "d", GetTraceID(ctx))
}
