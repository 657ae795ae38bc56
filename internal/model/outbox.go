package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// Outbox 事件主题
const (
	TopicRoundSettled   = "round_settled"
	TopicWinningsCashed = "winnings_cashed"
)

// Outbox 状态与重试上限
const (
	OutboxPending = 1
	OutboxSent    = 2
	OutboxFailed  = 3

	outboxMaxRetry = 10
)

// Outbox 对应 outbox 表（事务消息表），与结算写入处于同一事务
type Outbox struct {
	ID         int64  `db:"id"`
	Topic      string `db:"topic"`
	BizKey     string `db:"biz_key"` // 业务键：结算记录ID或玩家ID
	Payload    string `db:"payload"` // JSON 字符串
	Status     int8   `db:"status"`
	RetryCount int    `db:"retry_count"`
	LastError  string `db:"last_error"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// CreateOutbox 序列化 payload 并插入一条待发送记录
func CreateOutbox(ctx context.Context, exec sqlx.ExecerContext, topic, bizKey string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO outbox (topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err = exec.ExecContext(ctx, sqlStr, topic, bizKey, string(b), OutboxPending, 0, "", now, now)
	return err
}

// OutboxRow 是分发器扫描用的轻量投影
type OutboxRow struct {
	ID      int64  `db:"id"`
	Topic   string `db:"topic"`
	BizKey  string `db:"biz_key"`
	Payload string `db:"payload"`
}

// ListOutboxPending 查询待发送且未超过重试上限的记录
func ListOutboxPending(ctx context.Context, exec sqlx.QueryerContext, limit int) ([]OutboxRow, error) {
	sqlStr := "SELECT id, topic, biz_key, payload FROM outbox WHERE status = ? AND retry_count < ? ORDER BY id ASC LIMIT ?"

	var list []OutboxRow
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, OutboxPending, outboxMaxRetry, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkOutboxSent 标记为已发送
func MarkOutboxSent(ctx context.Context, exec sqlx.ExecerContext, id int64) error {
	sqlStr := "UPDATE outbox SET status = ?, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, OutboxSent, time.Now().UnixMilli(), id)
	return err
}

// MarkOutboxFailed 记录失败并累加重试次数
// 第 outboxMaxRetry 次失败后置为永久失败，否则保持待发送以便继续重试
func MarkOutboxFailed(ctx context.Context, exec sqlx.ExecerContext, id int64, lastError string) error {
	sqlStr := "UPDATE outbox SET status = CASE WHEN retry_count >= ? THEN ? ELSE ? END, last_error = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?"
	_, err := exec.ExecContext(ctx, sqlStr, outboxMaxRetry-1, OutboxFailed, OutboxPending, lastError, time.Now().UnixMilli(), id)
	return err
}

// GetOutbox 按ID查询完整记录
func GetOutbox(ctx context.Context, exec sqlx.QueryerContext, id int64) (*Outbox, error) {
	sqlStr := "SELECT id, topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at FROM outbox WHERE id = ?"

	var o Outbox
	if err := sqlx.GetContext(ctx, exec, &o, sqlStr, id); err != nil {
		return nil, err
	}
	return &o, nil
}
