package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// HandleGetIndexes handles GET requests to retrieve all indexes for a collection
func (h *Handler) HandleGetIndexes(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	indexes, err := h.engine.GetIndexes(collName)
	if err != nil {
		h.writeResult(w, r, http.StatusOK, domain.Failed(err))
		return
	}
	h.writeResult(w, r, http.StatusOK, domain.OK(fmt.Sprintf("%d indexes", len(indexes)), indexes))
}
