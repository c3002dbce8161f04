package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-nosql/pkg/metrics"
)

// NewRouter builds a router serving every API route with request logging
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	router.Use(h.requestLoggerMiddleware)

	// Customize NotFoundHandler to log 404s
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.logger.Warnw("no route found", "method", r.Method, "path", r.URL.Path)
		http.NotFound(w, r)
	})
	return router
}

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	router.HandleFunc("/stats", h.HandleStats).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Collection operations
	router.HandleFunc("/collections", h.HandleListCollections).Methods("GET")
	router.HandleFunc("/collections/{coll}", h.HandleCreateCollection).Methods("POST")

	// Document operations
	router.HandleFunc("/collections/{coll}/documents", h.HandleInsert).Methods("POST")
	router.HandleFunc("/collections/{coll}/documents", h.HandleFindAll).Methods("GET")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleReplaceById).Methods("PUT")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleDeleteById).Methods("DELETE")

	// Index operations
	router.HandleFunc("/collections/{coll}/indexes", h.HandleGetIndexes).Methods("GET")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleCreateIndex).Methods("POST")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleDropIndex).Methods("DELETE")
	router.HandleFunc("/collections/{coll}/find", h.HandleFind).Methods("GET")
}
