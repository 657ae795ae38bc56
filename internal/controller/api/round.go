package api

import (
	"tuplaus-server/common/logger"
	helper "tuplaus-server/internal/common/helper"
	"tuplaus-server/internal/common/response"
	"tuplaus-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// RoundController 单局与兑现接口
type RoundController struct{ beego.Controller }

// Play POST /api/round {player_id, bet, choice, idempotency_key?}
// 携带彩金时 bet 被忽略；同一 idempotency_key（或 Idempotency-Key 请求头）重试返回首次结果
func (c *RoundController) Play() {
	traceID := helper.GetTraceID(c.Ctx)
	rp, ok, msg := helper.ParseAndValidateRound(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	out, err := roundSvc.PlayRound(c.Ctx.Request.Context(), service.PlayRoundInput{
		PlayerID:   rp.PlayerID,
		Bet:        rp.BetOrZero(),
		Choice:     rp.Choice,
		RequestKey: rp.IdempotencyKey,
		TraceID:    traceID,
	})
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, outcomeView(out), traceID)
}

// CashOut POST /api/cashout {player_id}
// 无携带彩金时原样返回玩家，不视为错误
func (c *RoundController) CashOut() {
	traceID := helper.GetTraceID(c.Ctx)
	id, ok, msg := helper.ParseAndValidatePlayerID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	ctx := logger.WithTraceID(c.Ctx.Request.Context(), traceID)
	p, err := roundSvc.CashOut(ctx, id)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, playerView(p), traceID)
}
