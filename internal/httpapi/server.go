package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"kbadmin/internal/auth"
	"kbadmin/internal/form"
	"kbadmin/internal/geo"
	"kbadmin/internal/http/middleware"
	"kbadmin/internal/listing"
	"kbadmin/internal/pending"
	"kbadmin/internal/upstream"
)

// AuthService handles dashboard logins and token validation.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	Validate(token string) (*auth.Claims, error)
}

// ListingService exposes the item listing and the pending-change queue.
type ListingService interface {
	Items(ctx context.Context, session string, q listing.Query) ([]upstream.Item, error)
	Item(ctx context.Context, session string, id int64) (upstream.Item, error)
	Grouped(ctx context.Context, session string, q listing.Query) ([]listing.Group, error)
	Categories(ctx context.Context, session string) ([]listing.CategoryCount, error)
	CreateCategory(ctx context.Context, name, description string) (upstream.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	QueueCreate(session string, item upstream.Item)
	QueueUpdate(session string, item upstream.Item)
	QueueDelete(session string, id int64)
	DiscardCreate(session string, index int) error
	DiscardUpdate(session string, id int64)
	DiscardDelete(session string, id int64)
	DiscardAll(session string)
	Pending(session string) pending.Counts
	Commit(ctx context.Context, session string) error
	EndSession(session string)
}

// EditStash persists the item a session started editing.
type EditStash interface {
	StashEditItem(ctx context.Context, session string, item upstream.Item) error
	ClearEditItem(ctx context.Context, session string) error
}

// StatusService reports reachability of the knowledge base server.
type StatusService interface {
	Status() upstream.Status
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	auth    AuthService
	listing ListingService
	forms   *form.Manager
	stash   EditStash
	geo     geo.Geocoder
	status  StatusService
}

// New configures a Server with the given services.
func New(
	authSvc AuthService,
	listingSvc ListingService,
	forms *form.Manager,
	stash EditStash,
	geocoder geo.Geocoder,
	status StatusService,
) *Server {
	return &Server{
		auth:    authSvc,
		listing: listingSvc,
		forms:   forms,
		stash:   stash,
		geo:     geocoder,
		status:  status,
	}
}

// Routes exposes the HTTP handlers for the admin dashboard.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/status", s.handleStatus).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(s.auth))

	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	api.HandleFunc("/items", s.handleListItems).Methods(http.MethodGet)
	api.HandleFunc("/items/{id:[0-9]+}", s.handleGetItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id:[0-9]+}", s.handleDeleteItem).Methods(http.MethodDelete)
	api.HandleFunc("/items/{id:[0-9]+}/edit", s.handleBeginEdit).Methods(http.MethodPost)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id:[0-9]+}", s.handleDeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/pending", s.handlePendingCounts).Methods(http.MethodGet)
	api.HandleFunc("/pending", s.handleDiscardAll).Methods(http.MethodDelete)
	api.HandleFunc("/pending/commit", s.handleCommit).Methods(http.MethodPost)
	api.HandleFunc("/pending/creations/{index:[0-9]+}", s.handleDiscardCreate).Methods(http.MethodDelete)
	api.HandleFunc("/pending/updates/{id:[0-9]+}", s.handleDiscardUpdate).Methods(http.MethodDelete)
	api.HandleFunc("/pending/deletions/{id:[0-9]+}", s.handleDiscardDelete).Methods(http.MethodDelete)

	api.HandleFunc("/forms", s.handleCreateForm).Methods(http.MethodPost)
	api.HandleFunc("/forms/{form}", s.handleGetForm).Methods(http.MethodGet)
	api.HandleFunc("/forms/{form}", s.handlePatchForm).Methods(http.MethodPatch)
	api.HandleFunc("/forms/{form}", s.handleAbandonForm).Methods(http.MethodDelete)
	api.HandleFunc("/forms/{form}/category", s.handleSelectCategory).Methods(http.MethodPost)
	api.HandleFunc("/forms/{form}/submit", s.handleSubmitForm).Methods(http.MethodPost)

	api.HandleFunc("/geocode", s.handleGeocode).Methods(http.MethodGet)
	api.HandleFunc("/geocode/reverse", s.handleReverseGeocode).Methods(http.MethodGet)

	api.HandleFunc("/images", s.handleNormalizeImage).Methods(http.MethodPost)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
