package api

import (
	"context"
	"time"

	helper "tuplaus-server/internal/common/helper"
	"tuplaus-server/internal/common/response"
	"tuplaus-server/internal/infra/database"
	infrds "tuplaus-server/internal/infra/redis"

	beego "github.com/beego/beego/v2/server/web"
)

const readyTimeout = 500 * time.Millisecond

// HealthController 提供健康检查端点：/healthz 与 /readyz
type HealthController struct{ beego.Controller }

// Healthz 存活探针：仅返回进程存活
func (c *HealthController) Healthz() {
	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ok"))
}

// Readyz 就绪探针：探测数据库与 Redis，未启用的依赖视为就绪
func (c *HealthController) Readyz() {
	ctx := c.Ctx.Request.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	checks := map[string]string{"db": "ok", "redis": "ok"}
	ready := true
	if err := database.Ping(ctx, readyTimeout); err != nil {
		checks["db"] = err.Error()
		ready = false
	}
	if err := infrds.Ping(ctx, readyTimeout); err != nil {
		checks["redis"] = err.Error()
		ready = false
	}

	data := map[string]interface{}{"ready": ready, "checks": checks}
	if !ready {
		response.Unavailable(&c.Controller, data, helper.GetTraceID(c.Ctx))
		return
	}
	response.Success(&c.Controller, data, helper.GetTraceID(c.Ctx))
}
