package upstream

import (
	"context"
	"time"
)

// Item is a knowledge-base listing record as exchanged with the remote API.
// Structured sub-records (tickets, price ranges, date/time ranges) travel as
// flat strings; see the form package for the encode/decode rules.
type Item struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	Time        string `json:"time,omitempty"`
	Date        string `json:"date,omitempty"`
	Category    string `json:"category,omitempty"`
	// Type is a legacy alias of Category kept in sync for older API
	// consumers.
	Type       string `json:"type,omitempty"`
	Image      string `json:"image,omitempty"`
	Location   string `json:"location,omitempty"`
	Tickets    string `json:"tickets,omitempty"`
	PriceRange string `json:"priceRange,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// NormalizeCategory keeps the category/type alias pair in sync, preferring
// whichever of the two is set.
func (it *Item) NormalizeCategory() {
	if it.Category == "" {
		it.Category = it.Type
	}
	it.Type = it.Category
}

// Category classifies items. Built-ins are immutable; custom categories are
// created and deleted by users.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Status reports the outcome of a connectivity probe.
type Status struct {
	Connected bool      `json:"connected"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Client defines the operations the dashboard needs from the knowledge-base
// REST API.
type Client interface {
	// ListItems returns all items. Results may be served from a short-lived
	// in-memory cache.
	ListItems(ctx context.Context) ([]Item, error)

	// CreateItem persists a new item and returns it with its assigned id.
	CreateItem(ctx context.Context, item Item) (Item, error)

	// UpdateItem replaces the item with the given id.
	UpdateItem(ctx context.Context, id int64, item Item) (Item, error)

	// DeleteItem removes the item with the given id.
	DeleteItem(ctx context.Context, id int64) error

	// ListCategories returns all categories, cached like ListItems.
	ListCategories(ctx context.Context) ([]Category, error)

	// CreateCategory persists a new category.
	CreateCategory(ctx context.Context, input CategoryInput) (Category, error)

	// DeleteCategory removes the category with the given id.
	DeleteCategory(ctx context.Context, id int64) error

	// CheckConnectivity pings the health endpoint. It never gates other
	// operations; callers use it for status display only.
	CheckConnectivity(ctx context.Context) Status
}

// CategoryRecorder is the local durable fallback for custom categories. The
// local record is authoritative for "does this category exist"; the remote
// API is authoritative for its server id.
type CategoryRecorder interface {
	HasCategory(ctx context.Context, name string) (bool, error)
	RecordCategory(ctx context.Context, name string) error
}

// Config holds settings for the HTTP client.
type Config struct {
	// BaseURL is the root of the knowledge-base API, without trailing slash.
	BaseURL string

	// Token, when set, is sent as a bearer Authorization header on mutating
	// requests.
	Token string

	// RequestTimeout bounds a single HTTP attempt. Defaults to 30s.
	RequestTimeout time.Duration

	// MaxRetries is the number of additional attempts after a failed one.
	// Defaults to 2.
	MaxRetries int

	// RetryDelay is the fixed backoff between attempts. Defaults to 1s.
	RetryDelay time.Duration

	// CacheTTL bounds how long list results are served from memory.
	// Defaults to 5 minutes.
	CacheTTL time.Duration
}
