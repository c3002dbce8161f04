package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleCreateIndex creates an index on a specific field in a collection.
// An index that already exists is reported with 200 instead of 201.
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	fieldName := vars["field"]

	result := h.engine.CreateIndex(collName, fieldName)
	status := http.StatusCreated
	if result.Success && result.Message != "index created" {
		status = http.StatusOK
	}
	h.writeResult(w, r, status, result)
}
