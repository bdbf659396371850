// Package handler serves the inventory over HTTP and websocket.
package handler

import (
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// Version is the application version.
const Version = "1.0.0"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Items   int    `json:"items"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, message, field string) {
	writeJSON(w, logger, status, model.ErrorResponse{
		Code:    status,
		Message: message,
		Field:   field,
	})
}
