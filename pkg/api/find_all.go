package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// HandleFindAll handles GET requests listing a collection one page at a
// time. limit and offset are optional query parameters.
func (h *Handler) HandleFindAll(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	opts, err := parsePagination(r)
	if err != nil {
		h.writeResult(w, r, http.StatusOK, domain.Failed(err))
		return
	}

	result := h.engine.GetAllDocuments(collName)
	if !result.Success {
		h.writeResult(w, r, http.StatusOK, result)
		return
	}
	docs, _ := result.Documents()
	page := domain.Paginate(docs, opts)
	h.writeResult(w, r, http.StatusOK, domain.OK(result.Message, page))
}

func parsePagination(r *http.Request) (*domain.PaginationOptions, error) {
	opts := domain.DefaultPaginationOptions()
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalidRequest("limit must be an integer").Err
		}
		opts.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalidRequest("offset must be an integer").Err
		}
		opts.Offset = offset
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
