package model

import (
	"time"
)

// APIResponse wraps successful API payloads. Failures use ErrorResponse.
type APIResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WebSocketMessage is pushed to screens subscribed to collection changes.
type WebSocketMessage struct {
	Type      string    `json:"type"`
	Revision  uint64    `json:"revision"`
	Items     []Item    `json:"items"`
	Timestamp time.Time `json:"timestamp"`
}

// WebSocket message types.
const (
	WSMessageTypeItems = "items"
)

// NewItemsMessage creates a WebSocket message carrying the full collection.
func NewItemsMessage(snap Snapshot) WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypeItems,
		Revision:  snap.Revision,
		Items:     CloneItems(snap.Items),
		Timestamp: time.Now().UTC(),
	}
}
