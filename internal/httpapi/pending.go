package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"kbadmin/internal/http/middleware"
	"kbadmin/internal/listing"
	"kbadmin/internal/pending"
)

func (s *Server) handlePendingCounts(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, s.listing.Pending(session))
}

func (s *Server) handleDiscardAll(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	s.listing.DiscardAll(session)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDiscardCreate(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	index, _ := strconv.Atoi(mux.Vars(r)["index"])
	if err := s.listing.DiscardCreate(session, index); err != nil {
		if errors.Is(err, pending.ErrIndexOutOfRange) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDiscardUpdate(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	s.listing.DiscardUpdate(session, pathID(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDiscardDelete(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	s.listing.DiscardDelete(session, pathID(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleCommit flushes the queue. A partial failure reports which operation
// stopped the run; everything not yet flushed stays queued for a retry.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	if err := s.listing.Commit(r.Context(), session); err != nil {
		var cerr *listing.CommitError
		if errors.As(err, &cerr) {
			writeJSON(w, http.StatusBadGateway, struct {
				Error   string         `json:"error"`
				Op      string         `json:"op"`
				ID      int64          `json:"id,omitempty"`
				Name    string         `json:"name,omitempty"`
				Pending pending.Counts `json:"pending"`
			}{
				Error:   cerr.Error(),
				Op:      cerr.Op,
				ID:      cerr.ID,
				Name:    cerr.Name,
				Pending: s.listing.Pending(session),
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, s.listing.Pending(session))
}
