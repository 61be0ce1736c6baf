package upstream

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"kbadmin/internal/schema"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
	defaultRetryDelay = time.Second
	defaultCacheTTL   = 5 * time.Minute

	// rateLimitDelay is used when a 429 response carries no Retry-After.
	rateLimitDelay = 2 * time.Second
)

// APIError is a non-2xx response from the knowledge-base API.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream api error: status %d: %s", e.StatusCode, e.Body)
}

// HTTPClient implements Client against the knowledge-base REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	recorder   CategoryRecorder
	maxRetries int
	retryDelay time.Duration
	cacheTTL   time.Duration

	mu          sync.Mutex
	itemCache   []Item
	itemFetched time.Time
	catCache    []Category
	catFetched  time.Time
}

// NewHTTPClient creates a client for the given configuration. The recorder
// may be nil, in which case custom categories are only created remotely.
func NewHTTPClient(cfg Config, recorder CategoryRecorder) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = defaultMaxRetries
	} else if retries < 0 {
		retries = 0
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		recorder:   recorder,
		maxRetries: retries,
		retryDelay: delay,
		cacheTTL:   ttl,
	}
}

// ListItems returns all items, served from cache when fresh.
func (c *HTTPClient) ListItems(ctx context.Context) ([]Item, error) {
	c.mu.Lock()
	if c.itemCache != nil && time.Since(c.itemFetched) < c.cacheTTL {
		items := make([]Item, len(c.itemCache))
		copy(items, c.itemCache)
		c.mu.Unlock()
		return items, nil
	}
	c.mu.Unlock()

	var items []Item
	if err := c.do(ctx, http.MethodGet, "/knowledge", nil, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].NormalizeCategory()
	}

	c.mu.Lock()
	c.itemCache = make([]Item, len(items))
	copy(c.itemCache, items)
	c.itemFetched = time.Now()
	c.mu.Unlock()

	return items, nil
}

// CreateItem persists a new item, trying the new endpoint first and falling
// back to the legacy one while backend migrations are in flight.
func (c *HTTPClient) CreateItem(ctx context.Context, item Item) (Item, error) {
	item.NormalizeCategory()
	c.ensureCategory(ctx, item.Category)
	payload := sanitizeItem(item)

	var created Item
	err := c.do(ctx, http.MethodPost, "/items", payload, &created)
	if isLegacyFallback(err) {
		err = c.do(ctx, http.MethodPost, "/knowledge", payload, &created)
	}
	if err != nil {
		return Item{}, err
	}
	created.NormalizeCategory()
	c.invalidate()
	return created, nil
}

// UpdateItem replaces the item with the given id.
func (c *HTTPClient) UpdateItem(ctx context.Context, id int64, item Item) (Item, error) {
	item.NormalizeCategory()
	c.ensureCategory(ctx, item.Category)
	payload := sanitizeItem(item)
	payload.ID = id

	var updated Item
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/items/%d", id), payload, &updated)
	if isLegacyFallback(err) {
		err = c.do(ctx, http.MethodPut, fmt.Sprintf("/knowledge/%d", id), payload, &updated)
	}
	if err != nil {
		return Item{}, err
	}
	updated.NormalizeCategory()
	c.invalidate()
	return updated, nil
}

// DeleteItem removes the item with the given id.
func (c *HTTPClient) DeleteItem(ctx context.Context, id int64) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/items/%d", id), nil, nil)
	if isLegacyFallback(err) {
		err = c.do(ctx, http.MethodDelete, fmt.Sprintf("/knowledge/%d", id), nil, nil)
	}
	if err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// ListCategories returns all categories, served from cache when fresh.
func (c *HTTPClient) ListCategories(ctx context.Context) ([]Category, error) {
	c.mu.Lock()
	if c.catCache != nil && time.Since(c.catFetched) < c.cacheTTL {
		cats := make([]Category, len(c.catCache))
		copy(cats, c.catCache)
		c.mu.Unlock()
		return cats, nil
	}
	c.mu.Unlock()

	var cats []Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &cats); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.catCache = make([]Category, len(cats))
	copy(c.catCache, cats)
	c.catFetched = time.Now()
	c.mu.Unlock()

	return cats, nil
}

// CreateCategory persists a new category.
func (c *HTTPClient) CreateCategory(ctx context.Context, input CategoryInput) (Category, error) {
	payload := CategoryInput{
		Name:        sanitizeString(input.Name),
		Description: sanitizeString(input.Description),
	}

	var created Category
	if err := c.do(ctx, http.MethodPost, "/categories", payload, &created); err != nil {
		return Category{}, err
	}
	c.invalidate()
	return created, nil
}

// DeleteCategory removes the category with the given id.
func (c *HTTPClient) DeleteCategory(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// CheckConnectivity pings the health endpoint.
func (c *HTTPClient) CheckConnectivity(ctx context.Context) Status {
	var body struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodGet, "/ping", nil, &body)
	status := Status{CheckedAt: time.Now()}
	if err != nil {
		status.Message = err.Error()
		return status
	}
	status.Connected = true
	status.Message = body.Message
	return status
}

// ensureCategory makes a category known before an item referencing it is
// written. Remote creation is best effort: its failure must not block the
// item write, and the name is still recorded locally.
func (c *HTTPClient) ensureCategory(ctx context.Context, name string) {
	if name == "" || schema.IsBuiltin(name) {
		return
	}

	if c.recorder != nil {
		known, err := c.recorder.HasCategory(ctx, name)
		if err == nil && known {
			return
		}
	}

	exists := false
	if cats, err := c.ListCategories(ctx); err == nil {
		for _, cat := range cats {
			if cat.Name == name {
				exists = true
				break
			}
		}
	}

	if !exists {
		if _, err := c.CreateCategory(ctx, CategoryInput{Name: name}); err != nil {
			log.Warn().Err(err).Str("category", name).Msg("remote category creation failed, keeping local record")
		}
	}

	if c.recorder != nil {
		if err := c.recorder.RecordCategory(ctx, name); err != nil {
			log.Warn().Err(err).Str("category", name).Msg("local category record failed")
		}
	}
}

func (c *HTTPClient) invalidate() {
	c.mu.Lock()
	c.itemCache = nil
	c.catCache = nil
	c.mu.Unlock()
}

// do performs a request with the retry policy: transport errors and 5xx get
// a fixed backoff, 429 honors Retry-After, other 4xx fail immediately. The
// last attempt's error is surfaced unchanged.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload, out any) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = c.attempt(ctx, method, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if attempt >= c.maxRetries {
			break
		}

		wait := c.retryDelay
		var apiErr *APIError
		if errors.As(lastErr, &apiErr) {
			switch {
			case apiErr.StatusCode == http.StatusTooManyRequests:
				wait = rateLimitDelay
				if apiErr.RetryAfter > 0 {
					wait = apiErr.RetryAfter
				}
			case apiErr.StatusCode >= 500:
				// retry with the fixed delay
			default:
				return lastErr
			}
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return lastErr
		}
	}
	return lastErr
}

func (c *HTTPClient) attempt(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// setHeaders attaches the content negotiation and hardening headers. The
// anti-forgery token lives only for this one request; server-side validation
// is assumed external.
func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Content-Type-Options", "nosniff")
	req.Header.Set("X-Frame-Options", "DENY")
	req.Header.Set("X-XSS-Protection", "1; mode=block")
	req.Header.Set("Referrer-Policy", "strict-origin-when-cross-origin")

	if req.Method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", csrfToken())
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
	}
}

func csrfToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// isLegacyFallback reports whether the new endpoint rejected the request in
// a way that warrants retrying against the legacy /knowledge route.
func isLegacyFallback(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusUnprocessableEntity
}
