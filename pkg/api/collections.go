package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// HandleListCollections lists collection names
func (h *Handler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	names := h.engine.Collections()
	h.writeResult(w, r, http.StatusOK, domain.OK(fmt.Sprintf("%d collections", len(names)), names))
}

// HandleCreateCollection creates an empty collection
func (h *Handler) HandleCreateCollection(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	result := h.engine.CreateCollection(collName)
	if !result.Success {
		h.logger.Warnw("create collection failed", "collection", collName, "error", result.Message)
	}
	h.writeResult(w, r, http.StatusCreated, result)
}
