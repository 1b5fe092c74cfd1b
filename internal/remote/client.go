package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote status %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the remote store.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsRejected reports whether the remote store answered and refused the
// request. Retrying the same request cannot succeed, but the store is
// reachable. Timeouts and throttling are not rejections.
func IsRejected(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.Default().WithPrefix("remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BatchUpdate submits every item in one request. Ids unknown to the store
// come back in MissingIDs.
func (c *Client) BatchUpdate(ctx context.Context, items []models.BatchUpdateItem) (models.BatchUpdateResult, error) {
	var out models.BatchUpdateResult
	err := c.do(ctx, http.MethodPost, "/api/reviews/batch", models.BatchUpdateRequest{Items: items}, &out)
	if err != nil {
		return models.BatchUpdateResult{}, err
	}
	c.log.Debug("batch of %d applied: modified=%d missing=%d", len(items), out.Modified, len(out.MissingIDs))
	return out, nil
}

func (c *Client) DueCards(ctx context.Context, limit, offset int) (models.DueCardsPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out models.DueCardsPage
	err := c.do(ctx, http.MethodGet, "/api/cards/due?"+q.Encode(), nil, &out)
	return out, err
}

func (c *Client) GetCard(ctx context.Context, id string) (*models.Card, error) {
	var out models.Card
	if err := c.do(ctx, http.MethodGet, "/api/cards/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterCard creates a scheduling document. An empty id lets the server
// assign one.
func (c *Client) RegisterCard(ctx context.Context, id string) (*models.Card, error) {
	var out models.Card
	body := map[string]string{"id": id}
	if err := c.do(ctx, http.MethodPost, "/api/cards", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks that the store is reachable and ready.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ready", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	log := logger.FromContext(ctx).WithPrefix("remote").WithFields(map[string]any{
		"method": method,
		"path":   path,
	})

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed: %v", err)
		return err
	}
	defer resp.Body.Close()

	log.Debug("response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Error("failed to decode response: %v", err)
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	se := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}

	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error.Code != "" {
		se.Code = payload.Error.Code
		se.Message = payload.Error.Message
	}
	return se
}
