package routers

import (
	"tuplaus-server/internal/config"
	"tuplaus-server/internal/controller/api"
	"tuplaus-server/internal/metrics"
	"tuplaus-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// Register 注册HTTP路由与全局过滤器；需在 api.SetRoundService 之后调用
func Register(cfg *config.Config) {
	// 1. Panic Recovery：由框架 defer 调用
	beego.BConfig.RecoverPanic = true
	beego.BConfig.RecoverFunc = middleware.RecoverPanic

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（如果启用）；预检请求在路由前结束
	if cfg != nil && cfg.CORS.Enabled {
		beego.InsertFilter("/*", beego.BeforeRouter, middleware.CORSFilter)
	}

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter, beego.WithReturnOnOutput(false))

	// 健康检查
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// 玩家
	beego.Router("/api/player", &api.PlayerController{}, "post:Create")
	beego.Router("/api/player/reset", &api.PlayerController{}, "post:Reset")
	beego.Router("/api/player/:id", &api.PlayerController{}, "get:Get")
	beego.Router("/api/player/:id/rounds", &api.PlayerController{}, "get:Rounds")

	// 单局与兑现
	beego.Router("/api/round", &api.RoundController{}, "post:Play")
	beego.Router("/api/cashout", &api.RoundController{}, "post:CashOut")
}
