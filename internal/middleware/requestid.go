package middleware

import (
	"strings"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
)

const maxRequestIDLen = 64

// RequestIDFilter 为每个请求注入并返回 X-Request-Id，作为日志 trace_id
// 客户端传入的值过长时重新生成
func RequestIDFilter(ctx *context.Context) {
	id := strings.TrimSpace(ctx.Input.Header("X-Request-Id"))
	if id == "" || len(id) > maxRequestIDLen {
		id = uuid.NewString()
	}
	ctx.Input.SetData("trace_id", id)
	ctx.Output.Header("X-Request-Id", id)
}
