package rocketmq

import (
	"context"
	"errors"
	"strings"
	"time"

	"tuplaus-server/common/logger"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Message 一条待投递消息：Topic 为 MQ 主题，Tag 为业务事件名，Key 为业务键
type Message struct {
	Topic string
	Tag   string
	Key   string
	Body  []byte
}

// Publisher is a minimal facade for sending messages.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Options 生产者配置；Endpoint 为空表示不启用
type Options struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Topics       []string
	StartTimeout time.Duration
}

const sendTimeout = 5 * time.Second

// Real publisher backed by RocketMQ v5 client.
type rmqPublisher struct{ p rmq.Producer }

func (r *rmqPublisher) Publish(ctx context.Context, m Message) error {
	msg := &rmq.Message{Topic: m.Topic, Body: m.Body}
	if m.Tag != "" {
		msg.SetTag(m.Tag)
	}
	if m.Key != "" {
		msg.SetKeys(m.Key)
	}
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, err := r.p.Send(c, msg)
	return err
}

func (r *rmqPublisher) Close() error { return r.p.GracefulStop() }

// StubPublisher used when MQ is disabled: 丢弃消息并返回成功
type StubPublisher struct{}

func (StubPublisher) Publish(ctx context.Context, m Message) error {
	logger.Debug("[mq disabled] drop message", zap.String("topic", m.Topic), zap.String("tag", m.Tag), zap.String("key", m.Key))
	return nil
}

func (StubPublisher) Close() error { return nil }

// sanitizeEndpoint trim, strip scheme, pick first if contains ',' or ';'
func sanitizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if idx := strings.IndexAny(endpoint, ",;"); idx > 0 {
		endpoint = strings.TrimSpace(endpoint[:idx])
	}
	return endpoint
}

// New 创建并启动生产者；未配置或启动失败时返回 StubPublisher 与 enabled=false
func New(ctx context.Context, o Options) (pub Publisher, enabled bool) {
	endpoint := sanitizeEndpoint(o.Endpoint)
	if endpoint == "" {
		return StubPublisher{}, false
	}
	// 缺少凭证时禁用 MQ，避免底层 SDK 在 Sign 阶段空指针崩溃
	if strings.TrimSpace(o.AccessKey) == "" || strings.TrimSpace(o.SecretKey) == "" {
		logger.Warn("rocketmq disabled: missing access/secret key while endpoint present")
		return StubPublisher{}, false
	}

	// 使用 SDK 的 ResetLogger，避免默认写入 /logs
	rmq.ResetLogger()

	cfg := &rmq.Config{
		Endpoint:    endpoint,
		Credentials: &credentials.SessionCredentials{AccessKey: o.AccessKey, AccessSecret: o.SecretKey},
	}
	var opts []rmq.ProducerOption
	if len(o.Topics) > 0 {
		opts = append(opts, rmq.WithTopics(o.Topics...))
	}

	startTimeout := o.StartTimeout
	if startTimeout <= 0 {
		startTimeout = 2 * time.Second
	}

	// broker 刚启动时可能未就绪：指数退避重试启动
	p, err := backoff.Retry(ctx, func() (rmq.Producer, error) {
		p, err := rmq.NewProducer(cfg, opts...)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := startWithTimeout(p, startTimeout); err != nil {
			logger.Warn("rocketmq: producer start failed, retrying", zap.Error(err))
			return nil, err
		}
		return p, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		logger.Warn("rocketmq: producer unavailable, messages stay in outbox", zap.String("endpoint", endpoint), zap.Error(err))
		return StubPublisher{}, false
	}

	logger.Info("rocketmq enabled", zap.String("endpoint", endpoint), zap.Strings("topics", o.Topics))
	return &rmqPublisher{p: p}, true
}

var errStartTimeout = errors.New("rocketmq producer start timeout")

// startWithTimeout 异步启动，避免阻塞主流程
func startWithTimeout(p rmq.Producer, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- p.Start() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return errStartTimeout
	}
}
