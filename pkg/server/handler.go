package server

import (
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// Handler turns request lines into engine calls
type Handler struct {
	engine domain.DatabaseEngine
	logger *zap.SugaredLogger
}

// NewHandler creates a handler over engine
func NewHandler(engine domain.DatabaseEngine, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{engine: engine, logger: logger}
}

// Handle executes one request line. The boolean reports whether the
// client asked to close the connection. A panic while executing becomes a
// generic failure instead of taking the connection down.
func (h *Handler) Handle(line []byte) (result domain.Result, exit bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorw("request panicked", "panic", r, "stack", string(debug.Stack()))
			result = domain.Result{Message: "internal error"}
			exit = false
		}
	}()

	req, err := domain.ParseRequest(line)
	if err != nil {
		return invalidRequest(err), false
	}
	return h.Execute(req), req.Command == domain.CmdExit
}

// Execute dispatches a decoded request
func (h *Handler) Execute(req *domain.Request) domain.Result {
	switch req.Command {
	case "":
		return invalidRequest(errors.New("command is required"))
	case domain.CmdExit:
		return domain.OK("connection closed", nil)
	case domain.CmdListCollections:
		names := h.engine.Collections()
		return domain.OK(fmt.Sprintf("%d collections", len(names)), names)
	}

	if !knownCommand(req.Command) {
		return domain.Result{
			Message: "unknown command: " + req.Command,
			Err:     fmt.Errorf("%w: unknown command %s", domain.ErrInvalidInput, req.Command),
		}
	}
	if req.Collection == "" {
		return invalidRequest(errors.New("collection is required"))
	}

	switch req.Command {
	case domain.CmdInsert:
		doc, err := req.DocumentValue()
		if err != nil {
			return invalidRequest(err)
		}
		return h.engine.InsertDocument(req.Collection, doc)

	case domain.CmdUpdate:
		doc, err := req.DocumentValue()
		if err != nil {
			return invalidRequest(err)
		}
		return h.engine.UpdateDocument(req.Collection, doc)

	case domain.CmdDelete:
		if req.ID == "" {
			return invalidRequest(errors.New("id is required"))
		}
		return h.engine.DeleteDocument(req.Collection, req.ID)

	case domain.CmdGet:
		if req.ID == "" {
			return invalidRequest(errors.New("id is required"))
		}
		return h.engine.GetDocument(req.Collection, req.ID)

	case domain.CmdGetAll:
		return h.engine.GetAllDocuments(req.Collection)

	case domain.CmdCreateCollection:
		return h.engine.CreateCollection(req.Collection)

	case domain.CmdCreateIndex:
		if req.Field == "" {
			return invalidRequest(errors.New("field is required"))
		}
		return h.engine.CreateIndex(req.Collection, req.Field)

	default: // domain.CmdFind
		if req.Field == "" {
			return invalidRequest(errors.New("field is required"))
		}
		key, err := req.ValueKey()
		if err != nil {
			return invalidRequest(err)
		}
		return h.engine.FindDocuments(req.Collection, req.Field, key)
	}
}

func knownCommand(cmd string) bool {
	switch cmd {
	case domain.CmdInsert, domain.CmdUpdate, domain.CmdDelete, domain.CmdGet, domain.CmdGetAll,
		domain.CmdCreateCollection, domain.CmdCreateIndex, domain.CmdFind:
		return true
	}
	return false
}

func invalidRequest(err error) domain.Result {
	return domain.Result{
		Message: "invalid request: " + err.Error(),
		Err:     fmt.Errorf("%w: %v", domain.ErrInvalidInput, err),
	}
}
