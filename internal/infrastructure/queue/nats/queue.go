package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/resilience"
)

const workerQueueGroup = "notice-indexers"

// Queue carries notice-stored events over core NATS with a worker queue group.
type Queue struct {
	conn           *nats.Conn
	subject        string
	executor       *resilience.Executor
	logger         *slog.Logger
	handlerTimeout time.Duration
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	HandlerTimeout       time.Duration
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

// noticeEvent is the wire payload. Plain-text notice ids are accepted too.
type noticeEvent struct {
	NoticeID    string    `json:"notice_id"`
	PublishedAt time.Time `json:"published_at"`
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	handlerTimeout := options.HandlerTimeout
	if handlerTimeout <= 0 {
		handlerTimeout = 2 * time.Minute
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("campus-notice-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		executor:       options.ResilienceExecutor,
		logger:         logger,
		handlerTimeout: handlerTimeout,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishNoticeStored(ctx context.Context, noticeID string) error {
	data, err := encodeNoticeEvent(noticeID, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, publishOperation, err)
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	return publishError(noticeID, err)
}

// SubscribeNoticeStored blocks until ctx is done, then drains the subscription.
func (q *Queue) SubscribeNoticeStored(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		noticeID, err := decodeNoticeEvent(msg.Data)
		if err != nil {
			q.logger.Warn("notice_event_rejected", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithTimeout(ctx, q.handlerTimeout)
		defer cancel()
		if err := handler(handlerCtx, noticeID); err != nil {
			q.logger.Error("notice_event_failed", "notice_id", noticeID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeNoticeEvent(noticeID string, at time.Time) ([]byte, error) {
	noticeID = strings.TrimSpace(noticeID)
	if noticeID == "" {
		return nil, fmt.Errorf("notice id is required")
	}
	data, err := json.Marshal(noticeEvent{NoticeID: noticeID, PublishedAt: at})
	if err != nil {
		return nil, fmt.Errorf("marshal notice event: %w", err)
	}
	return data, nil
}

func decodeNoticeEvent(data []byte) (string, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return "", fmt.Errorf("empty notice event")
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var event noticeEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return "", fmt.Errorf("decode notice event: %w", err)
	}
	if strings.TrimSpace(event.NoticeID) == "" {
		return "", fmt.Errorf("notice event without notice_id")
	}
	return strings.TrimSpace(event.NoticeID), nil
}
