package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"kbadmin/internal/imaging"
)

type imageRequest struct {
	Image string `json:"image"`
}

type imageResponse struct {
	Image string `json:"image"`
}

// handleNormalizeImage shrinks and re-encodes an inline image before it is
// attached to an item, so oversized uploads never reach the knowledge base.
func (s *Server) handleNormalizeImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	normalized, err := imaging.Normalize(req.Image)
	if err != nil {
		if errors.Is(err, imaging.ErrNotDataURL) || errors.Is(err, imaging.ErrUnsupportedFormat) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{Image: normalized})
}
