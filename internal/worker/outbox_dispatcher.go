package worker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"tuplaus-server/common/logger"
	infmq "tuplaus-server/internal/infra/rocketmq"
	"tuplaus-server/internal/metrics"
	"tuplaus-server/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// last_error 列为 VARCHAR(512)；留出 JSON 转义余量
const maxErrBytes = 200

// OutboxDispatcher 扫描 outbox 待发送记录并投递到 MQ
// outbox.topic 作为消息 Tag（round_settled / winnings_cashed），MQ 主题统一为 Topic
type OutboxDispatcher struct {
	DB        *sqlx.DB
	Publisher infmq.Publisher
	Topic     string
	Interval  time.Duration
	BatchSize int
}

// Start 启动分发循环，支持通过 ctx 优雅退出
func (d *OutboxDispatcher) Start(ctx context.Context, wg *sync.WaitGroup) {
	interval := d.Interval
	if interval <= 0 {
		interval = time.Second
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		logger.Info("outbox dispatcher started", zap.String("topic", d.Topic), zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("outbox dispatcher stopped")
				return
			case <-ticker.C:
				if _, err := d.DispatchOnce(ctx); err != nil {
					logger.Warn("outbox: dispatch failed", zap.Error(err))
				}
			}
		}
	}()
}

// DispatchOnce 投递一批待发送记录，返回成功条数
// 投递失败记录错误并累加重试次数，超过上限后置为失败
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	batch := d.BatchSize
	if batch <= 0 {
		batch = 100
	}
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	rows, err := model.ListOutboxPending(c, d.DB, batch)
	cancel()
	if err != nil {
		return 0, err
	}
	metrics.SetOutboxBatch(len(rows))

	sent := 0
	for _, r := range rows {
		msg := infmq.Message{Topic: d.Topic, Tag: r.Topic, Key: r.BizKey, Body: []byte(r.Payload)}
		if err := d.Publisher.Publish(ctx, msg); err != nil {
			metrics.RecordOutboxPublish(r.Topic, "fail")
			logger.Warn("outbox: publish failed", zap.Int64("id", r.ID), zap.String("tag", r.Topic), zap.Error(err))
			if e := model.MarkOutboxFailed(ctx, d.DB, r.ID, truncateErr(err)); e != nil {
				logger.Warn("outbox: mark failed failed", zap.Int64("id", r.ID), zap.Error(e))
			}
			continue
		}
		metrics.RecordOutboxPublish(r.Topic, "success")
		if err := model.MarkOutboxSent(ctx, d.DB, r.ID); err != nil {
			logger.Warn("outbox: mark sent failed", zap.Int64("id", r.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// truncateErr 按字符边界截断错误信息后再序列化，保证写入 last_error 的是合法 UTF-8 JSON
func truncateErr(err error) string {
	msg := strings.ToValidUTF8(err.Error(), "?")
	if len(msg) > maxErrBytes {
		cut := maxErrBytes
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}
