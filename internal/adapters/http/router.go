package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/campus-notice-assistant/internal/config"
	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
	"github.com/kirillkom/campus-notice-assistant/internal/core/ports"
	"github.com/kirillkom/campus-notice-assistant/internal/observability/metrics"
)

const chatEndpoint = "chat"

type Router struct {
	cfg     config.Config
	chat    ports.ChatService
	indexer ports.NoticeIndexRequester
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func NewRouter(
	cfg config.Config,
	chat ports.ChatService,
	indexer ports.NoticeIndexRequester,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:     cfg,
		chat:    chat,
		indexer: indexer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Handler builds the full middleware stack. Traffic control and contract
// validation apply to /v1 only so probes and scrapes are never shed.
func (rt *Router) Handler() http.Handler {
	contract, err := loadAPIRouter()
	if err != nil {
		panic(fmt.Sprintf("http router: %v", err))
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /v1/chat", rt.postChat)
	api.HandleFunc("POST /v1/notices/{notice_id}/index", rt.postNoticeIndex)

	var apiHandler http.Handler = requestValidationMiddleware(contract, api)
	apiHandler = backpressureMiddleware(apiHandler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWaitTimeout)
	apiHandler = rateLimitMiddleware(apiHandler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", apiHandler)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errCodeInvalidRequest})
		return
	}

	start := time.Now()
	resp, err := rt.chat.Answer(r.Context(), req)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordChatFailure(rt.cfg.ServiceName, chatEndpoint)
		}
		rt.logger.ErrorContext(r.Context(), "chat_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": errCodeChatFailure})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordChatOutcome(rt.cfg.ServiceName, chatEndpoint, resp.Meta, len(resp.Notices), time.Since(start))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) postNoticeIndex(w http.ResponseWriter, r *http.Request) {
	noticeID := r.PathValue("notice_id")
	if err := rt.indexer.RequestIndex(r.Context(), noticeID); err != nil {
		status := mapErrorToHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			rt.logger.ErrorContext(r.Context(), "notice_index_request_failed",
				"request_id", requestIDFromContext(r.Context()),
				"notice_id", noticeID,
				"error", err,
			)
		}
		writeJSON(w, status, map[string]string{"error": indexErrorCode(status)})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"notice_id": noticeID,
		"status":    "queued",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
