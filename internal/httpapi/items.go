package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"kbadmin/internal/form"
	"kbadmin/internal/http/middleware"
	"kbadmin/internal/listing"
	"kbadmin/internal/upstream"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	params := r.URL.Query()
	q := listing.Query{
		Search:     params.Get("search"),
		Categories: params["category"],
		Oldest:     params.Get("sort") == "oldest",
	}

	if params.Get("grouped") == "true" {
		groups, err := s.listing.Grouped(r.Context(), session, q)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Groups []listing.Group `json:"groups"`
		}{Groups: groups})
		return
	}

	items, err := s.listing.Items(r.Context(), session, q)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Items []upstream.Item `json:"items"`
	}{Items: items})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	id := pathID(r)

	item, err := s.listing.Item(r.Context(), session, id)
	if err != nil {
		if errors.Is(err, listing.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "item not found"})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleDeleteItem only queues the deletion. The item disappears from the
// session's listing right away; the server is told on commit.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	s.listing.QueueDelete(session, pathID(r))
	writeJSON(w, http.StatusAccepted, s.listing.Pending(session))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	categories, err := s.listing.Categories(r.Context(), session)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Categories []listing.CategoryCount `json:"categories"`
	}{Categories: categories})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	created, err := s.listing.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, listing.ErrBuiltinCategory) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.listing.DeleteCategory(r.Context(), pathID(r)); err != nil {
		switch {
		case errors.Is(err, listing.ErrBuiltinCategory):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		case errors.Is(err, listing.ErrCategoryNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBeginEdit looks the item up, stashes it so an interrupted edit can
// resume, and opens a form session seeded with the item's fields.
func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	id := pathID(r)

	item, err := s.listing.Item(r.Context(), session, id)
	if err != nil {
		if errors.Is(err, listing.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "item not found"})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	if err := s.stash.StashEditItem(r.Context(), session, item); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	sess := form.EditSession(item)
	s.forms.Add(sess)
	writeJSON(w, http.StatusCreated, formView(sess))
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}
