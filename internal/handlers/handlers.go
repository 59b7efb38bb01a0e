// Package handlers implements the admin HTTP API for inspecting and
// maintaining the cache.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hilmishah-img/usms/internal/cache"
	"github.com/hilmishah-img/usms/internal/common/errors"
	"github.com/hilmishah-img/usms/internal/common/logging"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// CacheAdmin is the cache surface exposed over HTTP
type CacheAdmin interface {
	Stats() cache.Stats
	Invalidate(sel cache.Selector) (int, error)
	Cleanup()
	Clear()
}

type Handlers struct {
	cache  CacheAdmin
	logger logging.Logger
}

func New(cacheAdmin CacheAdmin, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		cache:  cacheAdmin,
		logger: logger.WithFields(logging.String("component", "handlers")),
	}
}

// errorResponse is the body of every non-2xx reply
type errorResponse struct {
	Error   string      `json:"error"`
	Type    string      `json:"type,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps validation errors to 400 and everything else to 500
func (h *Handlers) writeError(w http.ResponseWriter, err error, details interface{}) {
	status := http.StatusInternalServerError
	errType := errors.GetType(err)
	if errType == errors.ErrTypeValidation {
		status = http.StatusBadRequest
	} else {
		h.logger.Error("Request failed", err)
	}

	message := err.Error()
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	writeJSON(w, status, errorResponse{
		Error:   message,
		Type:    string(errType),
		Details: details,
	})
}
