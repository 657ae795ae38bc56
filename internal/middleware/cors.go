package middleware

import (
	"strconv"
	"strings"

	"tuplaus-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// CORSFilter CORS 跨域中间件，读取当前生效配置（支持热更新）
func CORSFilter(ctx *beegocontext.Context) {
	cfg := config.GetCurrent()
	if cfg == nil || !cfg.CORS.Enabled {
		return
	}

	origin := ctx.Request.Header.Get("Origin")
	if origin == "" {
		return
	}

	allowed := false
	for _, o := range cfg.CORS.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}

	ctx.Output.Header("Access-Control-Allow-Origin", origin)
	ctx.Output.Header("Vary", "Origin")
	ctx.Output.Header("Access-Control-Allow-Methods", strings.Join(cfg.CORS.AllowedMethods, ", "))
	ctx.Output.Header("Access-Control-Allow-Headers", strings.Join(cfg.CORS.AllowedHeaders, ", "))
	if len(cfg.CORS.ExposedHeaders) > 0 {
		ctx.Output.Header("Access-Control-Expose-Headers", strings.Join(cfg.CORS.ExposedHeaders, ", "))
	}
	if cfg.CORS.MaxAge > 0 {
		ctx.Output.Header("Access-Control-Max-Age", strconv.Itoa(cfg.CORS.MaxAge))
	}
	if cfg.CORS.AllowCredentials {
		ctx.Output.Header("Access-Control-Allow-Credentials", "true")
	}

	// 预检请求直接结束，不进入路由
	if ctx.Request.Method == "OPTIONS" {
		ctx.ResponseWriter.WriteHeader(204)
	}
}
