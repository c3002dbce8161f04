package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleDeleteById handles DELETE requests to remove a specific document by ID
func (h *Handler) HandleDeleteById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	result := h.engine.DeleteDocument(collName, docId)
	if !result.Success {
		h.logger.Warnw("delete failed", "collection", collName, "id", docId, "error", result.Message)
	}
	h.writeResult(w, r, http.StatusOK, result)
}
