package middleware

import (
	"net/http"
	"runtime/debug"

	"tuplaus-server/common/logger"
	"tuplaus-server/internal/common/helper"
	"tuplaus-server/internal/common/response"

	beego "github.com/beego/beego/v2/server/web"
	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// RecoverPanic 作为 beego.BConfig.RecoverFunc 注册，由框架 defer 调用
// 捕获控制器中的 panic，返回统一 500 响应，防止进程崩溃
func RecoverPanic(ctx *beegocontext.Context, _ *beego.Config) {
	err := recover()
	if err == nil {
		return
	}
	if err == beego.ErrAbort {
		return
	}
	traceID := helper.GetTraceID(ctx)

	logger.Error("panic recovered",
		zap.String("trace_id", traceID),
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.Request.URL.Path),
		zap.Any("error", err),
		zap.String("stack", string(debug.Stack())))

	if ctx.ResponseWriter.Started {
		return
	}
	ctx.Output.SetStatus(http.StatusInternalServerError)
	_ = ctx.Output.JSON(response.APIResponse{
		Code:    response.CodeSystemError,
		Message: "系统繁忙，请稍后重试",
		TraceID: traceID,
	}, false, false)
}
