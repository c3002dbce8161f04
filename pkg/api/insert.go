package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleInsert handles POST requests to insert a document. The body is a
// document; a missing id is generated.
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	doc, err := readDocument(w, r)
	if err != nil {
		h.logger.Warnw("decoding body failed", "collection", collName, "error", err)
		h.writeResult(w, r, http.StatusCreated, invalidRequest("%v", err))
		return
	}

	result := h.engine.InsertDocument(collName, doc)
	if !result.Success {
		h.logger.Warnw("insert failed", "collection", collName, "id", doc.ID(), "error", result.Message)
	}
	h.writeResult(w, r, http.StatusCreated, result)
}
