package httpapi

import (
	"net/http"
	"strconv"

	"kbadmin/internal/geo"
)

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "q is required"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	candidates, err := s.geo.Search(r.Context(), query, limit)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Candidates []geo.Candidate `json:"candidates"`
	}{Candidates: candidates})
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "lat and lng are required"})
		return
	}

	candidate, err := s.geo.Reverse(r.Context(), lat, lng)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	if candidate == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no address found"})
		return
	}
	writeJSON(w, http.StatusOK, candidate)
}
