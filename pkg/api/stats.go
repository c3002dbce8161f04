package api

import (
	"net/http"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// HandleStats reports engine and memory statistics
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, r, http.StatusOK, domain.OK("stats", h.engine.Stats()))
}
