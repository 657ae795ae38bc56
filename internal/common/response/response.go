package response

import (
	"time"

	beego "github.com/beego/beego/v2/server/web"
)

// APIResponse 统一 API 响应结构
// 所有 API 都应该返回这个结构，无论成功还是失败
type APIResponse struct {
	Code      int         `json:"code"`                // 业务错误码：0=成功，非0=失败
	Message   string      `json:"message"`             // 错误消息
	Data      interface{} `json:"data,omitempty"`      // 业务数据（失败时为 null）
	TraceID   string      `json:"trace_id,omitempty"`  // 请求追踪ID
	Timestamp int64       `json:"timestamp,omitempty"` // 响应时间戳（Unix 毫秒）
}

// 错误码定义
const (
	CodeSuccess             = 0    // 成功
	CodeBadRequest          = 1000 // 参数错误
	CodeInvalidBet          = 1001 // 下注金额非法
	CodeInvalidChoice       = 1002 // 押注方向非法
	CodeDuplicateInFlight   = 2001 // 重复请求进行中
	CodeInsufficientBalance = 2007 // 余额不足
	CodeResetDisabled       = 2010 // 未开启重置
	CodeNotFound            = 4004 // 资源不存在
	CodeSystemError         = 5000 // 系统错误
	CodeSettlementFailed    = 5001 // 结算提交失败
	CodeNotReady            = 5003 // 依赖未就绪
)

// ErrorMessages 错误消息映射
var ErrorMessages = map[int]string{
	CodeSuccess:             "success",
	CodeBadRequest:          "参数错误",
	CodeInvalidBet:          "下注金额非法",
	CodeInvalidChoice:       "押注方向只能为 small 或 large",
	CodeDuplicateInFlight:   "重复请求进行中，请稍后重试",
	CodeInsufficientBalance: "余额不足",
	CodeResetDisabled:       "当前环境未开启玩家重置",
	CodeNotFound:            "资源不存在",
	CodeSystemError:         "系统繁忙，请稍后重试",
	CodeSettlementFailed:    "结算失败，本局未生效",
	CodeNotReady:            "服务未就绪",
}

// Success 成功响应
// 示例：
//
//	response.Success(c, map[string]interface{}{
//	    "balance": "900.00",
//	    "active_winnings": "0.00",
//	}, traceID)
func Success(c *beego.Controller, data interface{}, traceID string) {
	c.Data["json"] = APIResponse{
		Code:      CodeSuccess,
		Message:   ErrorMessages[CodeSuccess],
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().UnixMilli(),
	}
	_ = c.ServeJSON()
}

// Error 错误响应（使用预定义的错误消息）
//
//	response.Error(c, 409, response.CodeInsufficientBalance, traceID)
func Error(c *beego.Controller, httpStatus int, code int, traceID string) {
	ErrorWithMessage(c, httpStatus, code, getErrorMessage(code), traceID)
}

// ErrorWithMessage 错误响应（使用自定义错误消息）
func ErrorWithMessage(c *beego.Controller, httpStatus int, code int, message string, traceID string) {
	c.Ctx.Output.SetStatus(httpStatus)
	c.Data["json"] = APIResponse{
		Code:      code,
		Message:   message,
		Data:      nil,
		TraceID:   traceID,
		Timestamp: time.Now().UnixMilli(),
	}
	_ = c.ServeJSON()
}

// BadRequest 参数错误响应（HTTP 400）
//
//	response.BadRequest(c, "player_id is required", traceID)
func BadRequest(c *beego.Controller, message string, traceID string) {
	ErrorWithMessage(c, 400, CodeBadRequest, message, traceID)
}

// Conflict 状态冲突响应（HTTP 409）
func Conflict(c *beego.Controller, code int, traceID string) {
	Error(c, 409, code, traceID)
}

// NotFound 资源不存在响应（HTTP 404）
func NotFound(c *beego.Controller, message string, traceID string) {
	ErrorWithMessage(c, 404, CodeNotFound, message, traceID)
}

// InternalError 系统错误响应（HTTP 500）
// 注意：不对外暴露底层错误，详细信息只记日志
func InternalError(c *beego.Controller, code int, traceID string) {
	Error(c, 500, code, traceID)
}

// Accepted 请求已接受但尚未处理完成（HTTP 202）
// 用于同一幂等键的并发重复请求
func Accepted(c *beego.Controller, traceID string) {
	c.Ctx.Output.Header("Retry-After", "1") // 建议客户端 1 秒后重试
	Error(c, 202, CodeDuplicateInFlight, traceID)
}

// Unavailable 依赖未就绪（HTTP 503），data 携带各依赖探测结果
func Unavailable(c *beego.Controller, data interface{}, traceID string) {
	c.Ctx.Output.SetStatus(503)
	c.Data["json"] = APIResponse{
		Code:      CodeNotReady,
		Message:   getErrorMessage(CodeNotReady),
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().UnixMilli(),
	}
	_ = c.ServeJSON()
}

// getErrorMessage 获取错误消息，如果未定义则返回通用消息
func getErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "未知错误"
}
