package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// statusFor maps a result to an HTTP status. Successful results use ok.
func statusFor(result domain.Result, ok int) int {
	switch {
	case result.Success:
		return ok
	case result.Is(domain.ErrDocumentNotFound), result.Is(domain.ErrCollectionMissing), result.Is(domain.ErrIndexNotFound):
		return http.StatusNotFound
	case result.Is(domain.ErrDocumentExists), result.Is(domain.ErrCollectionExists):
		return http.StatusConflict
	case result.Is(domain.ErrInvalidInput):
		return http.StatusBadRequest
	case result.Is(domain.ErrWALFailure), result.Is(domain.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// wantsMsgpack reports whether the client asked for MessagePack
func wantsMsgpack(r *http.Request) bool {
	for _, accept := range r.Header.Values("Accept") {
		if strings.Contains(accept, contentTypeMsgpack) {
			return true
		}
	}
	return false
}

// writeResult encodes result as JSON, or MessagePack when requested
func (h *Handler) writeResult(w http.ResponseWriter, r *http.Request, ok int, result domain.Result) {
	status := statusFor(result, ok)

	if wantsMsgpack(r) {
		body, err := msgpack.Marshal(result)
		if err != nil {
			h.logger.Errorw("failed to encode msgpack response", "error", err)
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		w.Write(body)
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		h.logger.Errorw("failed to encode json response", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// invalidRequest builds the failure for a request the handler could not decode
func invalidRequest(format string, args ...interface{}) domain.Result {
	return domain.Failedf(domain.ErrInvalidInput, format, args...)
}

// readDocument decodes a request body holding a document
func readDocument(w http.ResponseWriter, r *http.Request) (*domain.Document, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}
	return domain.ParseDocument(string(body))
}
