package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// HandleReplaceById handles PUT requests replacing a document's data. The
// id comes from the path; any id in the body is ignored.
func (h *Handler) HandleReplaceById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	body, err := readDocument(w, r)
	if err != nil {
		h.logger.Warnw("decoding body failed", "collection", collName, "id", docId, "error", err)
		h.writeResult(w, r, http.StatusOK, invalidRequest("%v", err))
		return
	}

	result := h.engine.UpdateDocument(collName, domain.NewDocumentWithID(docId, body.Data()))
	if !result.Success {
		h.logger.Warnw("update failed", "collection", collName, "id", docId, "error", result.Message)
	}
	h.writeResult(w, r, http.StatusOK, result)
}
