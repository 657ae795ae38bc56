package api

import (
	"strings"

	"tuplaus-server/common/logger"
	helper "tuplaus-server/internal/common/helper"
	"tuplaus-server/internal/common/response"

	beego "github.com/beego/beego/v2/server/web"
)

// PlayerController 玩家接口
// POST /api/player          {id}   创建或返回已有玩家
// GET  /api/player/:id             查询余额与携带彩金
// POST /api/player/reset    {id}   重置余额（需开启 game.allow_reset）
// GET  /api/player/:id/rounds      结算历史，新记录在前
type PlayerController struct{ beego.Controller }

func (c *PlayerController) Create() {
	traceID := helper.GetTraceID(c.Ctx)
	id, ok, msg := helper.ParseAndValidatePlayerID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	ctx := logger.WithTraceID(c.Ctx.Request.Context(), traceID)
	p, err := roundSvc.CreateOrGetPlayer(ctx, id)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, playerView(p), traceID)
}

func (c *PlayerController) Get() {
	traceID := helper.GetTraceID(c.Ctx)
	id := strings.TrimSpace(c.Ctx.Input.Param(":id"))
	if id == "" {
		response.BadRequest(&c.Controller, "id is required", traceID)
		return
	}
	ctx := logger.WithTraceID(c.Ctx.Request.Context(), traceID)
	p, err := roundSvc.GetPlayer(ctx, id)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, playerView(p), traceID)
}

func (c *PlayerController) Reset() {
	traceID := helper.GetTraceID(c.Ctx)
	id, ok, msg := helper.ParseAndValidatePlayerID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	ctx := logger.WithTraceID(c.Ctx.Request.Context(), traceID)
	p, err := roundSvc.ResetPlayer(ctx, id)
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, playerView(p), traceID)
}

func (c *PlayerController) Rounds() {
	traceID := helper.GetTraceID(c.Ctx)
	id := strings.TrimSpace(c.Ctx.Input.Param(":id"))
	if id == "" {
		response.BadRequest(&c.Controller, "id is required", traceID)
		return
	}
	ctx := logger.WithTraceID(c.Ctx.Request.Context(), traceID)
	list, err := roundSvc.ListRounds(ctx, id, helper.ParseLimit(c.Ctx.Input.Query("limit")))
	if err != nil {
		writeServiceError(&c.Controller, err, traceID)
		return
	}
	rounds := make([]map[string]interface{}, 0, len(list))
	for i := range list {
		rounds = append(rounds, roundView(&list[i]))
	}
	response.Success(&c.Controller, map[string]interface{}{
		"player_id": id,
		"rounds":    rounds,
	}, traceID)
}
