package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleDropIndex removes the index on a field of a collection
func (h *Handler) HandleDropIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	fieldName := vars["field"]

	result := h.engine.DropIndex(collName, fieldName)
	if !result.Success {
		h.logger.Warnw("drop index failed", "collection", collName, "field", fieldName, "error", result.Message)
	}
	h.writeResult(w, r, http.StatusOK, result)
}
