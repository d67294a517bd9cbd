package httpadapter

import (
	"net/http"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
)

const (
	errCodeChatFailure      = "chat_failure"
	errCodeInvalidRequest   = "invalid_request"
	errCodeNoticeNotFound   = "notice_not_found"
	errCodeIndexUnavailable = "index_unavailable"
	errCodeOverloaded       = "overloaded"
	errCodeRateLimited      = "rate_limited"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNoticeNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrStoreUnavailable),
		domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrServiceDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// indexErrorCode keeps internal error text out of responses.
func indexErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return errCodeInvalidRequest
	case http.StatusNotFound:
		return errCodeNoticeNotFound
	default:
		return errCodeIndexUnavailable
	}
}
