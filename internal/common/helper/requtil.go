package helper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"github.com/shopspring/decimal"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second

	maxIDLen = 64
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	// beego 开启 CopyRequestBody 时请求体已读入 RequestBody
	if len(ctx.Input.RequestBody) > 0 {
		return bytes.NewReader(ctx.Input.RequestBody)
	}
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// validID 玩家ID / 幂等键：非空且限制长度
func validID(s string) bool {
	return s != "" && len(s) <= maxIDLen
}

// -------- Round helpers --------

// RoundParsed 为解析后的单局入参
// Bet 允许缺省：携带局会忽略下注额；金额合法性由服务层判定
type RoundParsed struct {
	PlayerID       string              `json:"player_id"`
	Bet            decimal.NullDecimal `json:"bet"`
	Choice         string              `json:"choice"`
	IdempotencyKey string              `json:"idempotency_key"`
}

// BetOrZero 未传下注额时返回 0
func (r RoundParsed) BetOrZero() decimal.Decimal {
	if !r.Bet.Valid {
		return decimal.Zero
	}
	return r.Bet.Decimal
}

// ParseRoundFromJSON bet 既可为 JSON 数字也可为字符串
func ParseRoundFromJSON(r io.Reader) (RoundParsed, bool, string) {
	var out RoundParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return RoundParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseRoundFromForm(ctx *beegocontext.Context) (RoundParsed, bool, string) {
	var out RoundParsed
	out.PlayerID = ctx.Input.Query("player_id")
	out.Choice = ctx.Input.Query("choice")
	out.IdempotencyKey = ctx.Input.Query("idempotency_key")
	if s := strings.TrimSpace(ctx.Input.Query("bet")); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return RoundParsed{}, false, "bet must be numeric"
		}
		out.Bet = decimal.NewNullDecimal(d)
	}
	return out, true, ""
}

// ValidateRound 校验通用字段；幂等键缺省时从 Idempotency-Key 请求头读取
func ValidateRound(ctx *beegocontext.Context, in *RoundParsed) (bool, string) {
	in.PlayerID = strings.TrimSpace(in.PlayerID)
	in.Choice = strings.TrimSpace(in.Choice)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.IdempotencyKey == "" && ctx != nil {
		in.IdempotencyKey = strings.TrimSpace(ctx.Input.Header("Idempotency-Key"))
	}
	if !validID(in.PlayerID) {
		return false, "player_id required (max 64 chars)"
	}
	if len(in.IdempotencyKey) > maxIDLen {
		return false, "idempotency_key too long"
	}
	return true, ""
}

// ParseAndValidateRound 按 Content-Type 自动解析并做统一校验
func ParseAndValidateRound(ctx *beegocontext.Context) (RoundParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseRoundFromJSON, ParseRoundFromForm)
	if !ok {
		return RoundParsed{}, false, msg
	}
	if ok, msg := ValidateRound(ctx, &out); !ok {
		return RoundParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Player helpers --------

// PlayerParsed 玩家类接口入参：创建 / 重置使用 id，兑现使用 player_id
type PlayerParsed struct {
	ID       string `json:"id"`
	PlayerID string `json:"player_id"`
}

func ParsePlayerFromJSON(r io.Reader) (PlayerParsed, bool, string) {
	var out PlayerParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return PlayerParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParsePlayerFromForm(ctx *beegocontext.Context) (PlayerParsed, bool, string) {
	return PlayerParsed{ID: ctx.Input.Query("id"), PlayerID: ctx.Input.Query("player_id")}, true, ""
}

// ParseAndValidatePlayerID 两个字段任取其一，id 优先
func ParseAndValidatePlayerID(ctx *beegocontext.Context) (string, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParsePlayerFromJSON, ParsePlayerFromForm)
	if !ok {
		return "", false, msg
	}
	id := strings.TrimSpace(out.ID)
	if id == "" {
		id = strings.TrimSpace(out.PlayerID)
	}
	if !validID(id) {
		return "", false, "player id required (max 64 chars)"
	}
	return id, true, ""
}

// ParseLimit 解析 limit 查询参数；缺省或非法时返回 0，由服务层套用默认值
func ParseLimit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
