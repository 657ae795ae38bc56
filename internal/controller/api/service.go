package api

import (
	"errors"

	money "tuplaus-server/common/helper"
	"tuplaus-server/common/logger"
	"tuplaus-server/internal/common/response"
	"tuplaus-server/internal/model"
	"tuplaus-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

// roundSvc 由 main 在注册路由前注入
var roundSvc service.RoundService

// SetRoundService 注入业务服务实例
func SetRoundService(s service.RoundService) { roundSvc = s }

// writeServiceError 服务层错误 -> HTTP 状态码与业务码
func writeServiceError(c *beego.Controller, err error, traceID string) {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound):
		response.NotFound(c, "player not found", traceID)
	case errors.Is(err, service.ErrInvalidBet):
		response.ErrorWithMessage(c, 400, response.CodeInvalidBet, err.Error(), traceID)
	case errors.Is(err, service.ErrInsufficientBalance):
		response.Conflict(c, response.CodeInsufficientBalance, traceID)
	case errors.Is(err, service.ErrInvalidChoice):
		response.Error(c, 400, response.CodeInvalidChoice, traceID)
	case errors.Is(err, service.ErrDuplicateInFlight):
		response.Accepted(c, traceID)
	case errors.Is(err, service.ErrResetDisabled):
		response.Error(c, 403, response.CodeResetDisabled, traceID)
	case errors.Is(err, service.ErrBadRequest):
		response.BadRequest(c, err.Error(), traceID)
	case errors.Is(err, service.ErrSettlementFailed):
		response.InternalError(c, response.CodeSettlementFailed, traceID)
	default:
		logger.Error("unhandled service error", zap.String("trace_id", traceID), zap.Error(err))
		response.InternalError(c, response.CodeSystemError, traceID)
	}
}

// 金额统一两位小数字符串输出

func playerView(p *model.Player) map[string]interface{} {
	return map[string]interface{}{
		"id":              p.ID,
		"balance":         money.TrimDecimal(p.Balance),
		"active_winnings": money.TrimDecimal(p.ActiveWinnings),
	}
}

func outcomeView(o *model.RoundOutcome) map[string]interface{} {
	return map[string]interface{}{
		"drawn_card":  o.DrawnCard,
		"did_win":     o.DidWin,
		"winnings":    money.TrimDecimal(o.Winnings),
		"new_balance": money.TrimDecimal(o.NewBalance),
	}
}

func roundView(r *model.SettledRound) map[string]interface{} {
	return map[string]interface{}{
		"id":            r.ID,
		"effective_bet": money.TrimDecimal(r.EffectiveBet),
		"choice":        r.Choice.String(),
		"drawn_card":    r.DrawnCard,
		"did_win":       r.DidWin,
		"winnings":      money.TrimDecimal(r.Winnings),
		"carry_over":    r.CarryOver,
		"balance_after": money.TrimDecimal(r.BalanceAfter),
		"settled_at":    r.SettledAt,
	}
}
