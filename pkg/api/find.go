package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleFind handles GET requests for documents whose field equals value.
// value is compared with the field's string form: strings raw, everything
// else as compact JSON.
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]
	query := r.URL.Query()

	field := query.Get("field")
	if field == "" {
		h.writeResult(w, r, http.StatusOK, invalidRequest("field is required"))
		return
	}
	if _, ok := query["value"]; !ok {
		h.writeResult(w, r, http.StatusOK, invalidRequest("value is required"))
		return
	}

	h.writeResult(w, r, http.StatusOK, h.engine.FindDocuments(collName, field, query.Get("value")))
}
