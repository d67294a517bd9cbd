package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/campus-notice-assistant/internal/core/domain"
	"github.com/kirillkom/campus-notice-assistant/internal/infrastructure/resilience"
)

// pointNamespace derives stable point ids so re-indexing a notice overwrites
// its previous vector.
var pointNamespace = uuid.MustParse("6f1c4a2e-9b7d-4c35-8f0e-2d5a7b9c1e43")

var errCollectionMissing = errors.New("qdrant collection missing")

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type Option func(*Client)

func WithResilience(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL, collection string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func PointID(noticeID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(noticeID)).String()
}

// Search returns the closest notices. A collection that was never provisioned
// yields no hits.
func (c *Client) Search(ctx context.Context, vector []float32, limit, offset int) ([]domain.VectorHit, error) {
	if limit <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"offset":       max(offset, 0),
		"with_payload": []string{"post_id"},
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	err := c.execute(ctx, "qdrant.search", func(callCtx context.Context) error {
		return c.doJSON(callCtx, http.MethodPost, url, reqBody, &searchResp, "search")
	})
	if errors.Is(err, errCollectionMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.VectorHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		noticeID := getStringPayload(r.Payload, "post_id")
		if noticeID == "" {
			continue
		}
		out = append(out, domain.VectorHit{NoticeID: noticeID, Score: r.Score})
	}
	return out, nil
}

func (c *Client) UpsertNotice(ctx context.Context, noticeID string, vector []float32, payload map[string]any) error {
	if len(vector) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant upsert", fmt.Errorf("empty vector for notice %s", noticeID))
	}
	if err := c.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}

	body := map[string]any{
		"points": []map[string]any{{
			"id":      PointID(noticeID),
			"vector":  vector,
			"payload": payload,
		}},
	}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.execute(ctx, "qdrant.upsert", func(callCtx context.Context) error {
		return c.doJSON(callCtx, http.MethodPut, url, body, nil, "upsert")
	})
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		return nil
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.execute(ctx, "qdrant.get_collection", func(callCtx context.Context) error {
		return c.doJSON(callCtx, http.MethodGet, url, nil, nil, "get collection")
	})
	switch {
	case err == nil:
		c.ensuredCollection = true
		c.ensuredVectorSize = vectorSize
		return nil
	case !errors.Is(err, errCollectionMissing):
		return err
	}

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err = c.execute(ctx, "qdrant.create_collection", func(callCtx context.Context) error {
		return c.doJSON(callCtx, http.MethodPut, url, reqBody, nil, "create collection")
	})
	var statusErr *HTTPStatusError
	if err != nil && !(errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict) {
		return err
	}
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	return nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyQdrantError)
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload, out any, operation string) error {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", errCollectionMissing, c.collection)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
