package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"kbadmin/internal/form"
	"kbadmin/internal/http/middleware"
	"kbadmin/internal/schema"
)

// formResponse is the wire shape of an editing session.
type formResponse struct {
	ID          string                 `json:"id"`
	State       string                 `json:"state"`
	Category    string                 `json:"category,omitempty"`
	Visibility  schema.FieldVisibility `json:"visibility"`
	ItemID      int64                  `json:"item_id,omitempty"`
	Values      form.Values            `json:"values"`
	FieldErrors map[string]string      `json:"field_errors,omitempty"`
}

func formView(s *form.Session) formResponse {
	return formResponse{
		ID:          s.ID,
		State:       s.State().String(),
		Category:    s.Category(),
		Visibility:  s.Visibility(),
		ItemID:      s.ItemID(),
		Values:      s.Values(),
		FieldErrors: s.FieldErrors(),
	}
}

type patchFormRequest struct {
	Fields     map[string]string `json:"fields,omitempty"`
	Tickets    []form.Ticket     `json:"tickets,omitempty"`
	PriceRange *form.PriceRange  `json:"priceRange,omitempty"`
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	sess := form.NewSession()
	s.forms.Add(sess)
	writeJSON(w, http.StatusCreated, formView(sess))
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	sess, err := s.formSession(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "form session not found"})
		return
	}
	writeJSON(w, http.StatusOK, formView(sess))
}

func (s *Server) handleSelectCategory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.formSession(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "form session not found"})
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Category == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "category is required"})
		return
	}

	if err := sess.SelectCategory(req.Category); err != nil {
		writeJSON(w, formErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, formView(sess))
}

func (s *Server) handlePatchForm(w http.ResponseWriter, r *http.Request) {
	sess, err := s.formSession(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "form session not found"})
		return
	}

	var req patchFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	for field, value := range req.Fields {
		if err := sess.SetField(field, value); err != nil {
			writeJSON(w, formErrorStatus(err), errorResponse{Error: err.Error()})
			return
		}
	}
	if req.Tickets != nil {
		if err := sess.SetTickets(req.Tickets); err != nil {
			writeJSON(w, formErrorStatus(err), errorResponse{Error: err.Error()})
			return
		}
	}
	if req.PriceRange != nil {
		if err := sess.SetPriceRange(*req.PriceRange); err != nil {
			writeJSON(w, formErrorStatus(err), errorResponse{Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, formView(sess))
}

// handleSubmitForm validates the session and, on success, queues the result
// as a pending creation or update and closes the session.
func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	sess, err := s.formSession(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "form session not found"})
		return
	}

	item, err := sess.Submit()
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, struct {
				Error       string            `json:"error"`
				FieldErrors map[string]string `json:"field_errors"`
			}{Error: verr.First, FieldErrors: verr.Fields})
			return
		}
		writeJSON(w, formErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	if item.ID > 0 {
		s.listing.QueueUpdate(session, item)
	} else {
		s.listing.QueueCreate(session, item)
	}
	s.forms.Remove(sess.ID)
	if err := s.stash.ClearEditItem(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, struct {
		Item    any `json:"item"`
		Pending any `json:"pending"`
	}{Item: item, Pending: s.listing.Pending(session)})
}

func (s *Server) handleAbandonForm(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	sess, err := s.formSession(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "form session not found"})
		return
	}

	s.forms.Remove(sess.ID)
	if err := s.stash.ClearEditItem(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) formSession(r *http.Request) (*form.Session, error) {
	return s.forms.Get(mux.Vars(r)["form"])
}

func formErrorStatus(err error) int {
	switch {
	case errors.Is(err, form.ErrNoCategory),
		errors.Is(err, form.ErrCategoryFixed),
		errors.Is(err, form.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, form.ErrUnknownField):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
