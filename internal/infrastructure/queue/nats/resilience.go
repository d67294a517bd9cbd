package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/resilience"
)

const publishOperation = "publish notice stored"

// classifyPublishError retries connection trouble only. A rejected event
// means the broker is healthy, so it does not count against the breaker.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case isRejectedEvent(err):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err), isConnectionError(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func isConnectionError(err error) bool {
	return errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrConnectionReconnecting) ||
		errors.Is(err, nats.ErrDisconnected)
}

func isRejectedEvent(err error) bool {
	return errors.Is(err, nats.ErrMaxPayload) ||
		errors.Is(err, nats.ErrBadSubject) ||
		errors.Is(err, nats.ErrInvalidMsg)
}

// publishError maps a failed notice-stored publish onto domain error kinds.
func publishError(noticeID string, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrInvalidInput):
		return err
	case isRejectedEvent(err):
		return domain.WrapError(domain.ErrInvalidInput, publishOperation, fmt.Errorf("notice_id=%s: %w", noticeID, err))
	case classifyPublishError(err).Retryable:
		return domain.WrapError(domain.ErrTemporary, publishOperation, fmt.Errorf("notice_id=%s: %w", noticeID, err))
	default:
		return fmt.Errorf("%s notice_id=%s: %w", publishOperation, noticeID, err)
	}
}
