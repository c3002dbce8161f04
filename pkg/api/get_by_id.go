package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleGetById handles GET requests to retrieve a specific document by ID
func (h *Handler) HandleGetById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.writeResult(w, r, http.StatusOK, h.engine.GetDocument(vars["coll"], vars["id"]))
}
