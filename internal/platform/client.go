// Package platform is the HTTP client for the job-matching backend: the
// remote schedule store and the job-assignment source.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"smena/internal/metrics"
	"smena/internal/model"
)

// Client calls the platform availability APIs.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
	limiter  *rate.Limiter
}

// NewClient constructs a client with baseURL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

// UseRedisCache configures optional Redis caching for GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// SetRateLimit overrides the default request rate limit.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// LoadRows fetches the per-weekday schedule rows.
// Implements schedule.Store.
func (c *Client) LoadRows(ctx context.Context) ([]model.ScheduleRow, error) {
	endpoint := fmt.Sprintf("%s/api/v1/schedule", c.baseURL)
	var wrap struct {
		Schedule []model.ScheduleRow `json:"schedule"`
	}
	if err := c.doGet(ctx, "schedule", endpoint, &wrap); err != nil {
		return nil, err
	}
	return wrap.Schedule, nil
}

// SaveRows writes all 7 rows back; the API does not support partial updates.
// Implements schedule.Store.
func (c *Client) SaveRows(ctx context.Context, rows []model.ScheduleRow) error {
	if len(rows) != 7 {
		return fmt.Errorf("expected 7 schedule rows, got %d", len(rows))
	}
	endpoint := fmt.Sprintf("%s/api/v1/schedule", c.baseURL)
	body := struct {
		Schedule []model.ScheduleRow `json:"schedule"`
	}{Schedule: rows}
	return c.doPut(ctx, "schedule", endpoint, body)
}

type assignmentRow struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Label string `json:"label"`
}

// Assignments fetches confirmed job dates in [from, to].
// Implements engine.AssignmentSource.
func (c *Client) Assignments(ctx context.Context, from, to model.Date) ([]model.Assignment, error) {
	endpoint := fmt.Sprintf("%s/api/v1/assignments?from=%s&to=%s",
		c.baseURL, url.QueryEscape(from.String()), url.QueryEscape(to.String()))
	cacheKey := fmt.Sprintf("assignments:%s:%s", from, to)

	var wrap struct {
		Assignments []assignmentRow `json:"assignments"`
	}
	if !c.readCache(ctx, cacheKey, &wrap) {
		if err := c.doGet(ctx, "assignments", endpoint, &wrap); err != nil {
			return nil, err
		}
		c.writeCache(ctx, cacheKey, wrap)
	}

	out := make([]model.Assignment, 0, len(wrap.Assignments))
	for _, row := range wrap.Assignments {
		date, err := model.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("assignment %q: %w", row.Label, err)
		}
		out = append(out, model.Assignment{Date: date, Label: row.Label})
	}
	return out, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, name, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	return c.do(ctx, name, req, out)
}

func (c *Client) doPut(ctx context.Context, name, endpoint string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, name, req, nil)
}

func (c *Client) do(ctx context.Context, name string, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncPlatformRequest(name, "error")
		return fmt.Errorf("%s request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncPlatformRequest(name, "error")
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s request: status %d: %s", name, resp.StatusCode, payload)
	}

	metrics.IncPlatformRequest(name, "ok")
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", name, err)
	}
	return nil
}
