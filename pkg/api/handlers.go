package api

import (
	"go.uber.org/zap"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 10 << 20

// Handler provides HTTP handlers for the database API
type Handler struct {
	engine domain.DatabaseEngine
	logger *zap.SugaredLogger
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(engine domain.DatabaseEngine, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{
		engine: engine,
		logger: logger,
	}
}
