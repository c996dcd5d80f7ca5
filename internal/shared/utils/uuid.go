package utils

import "github.com/google/uuid"

// NewRequestID returns a UUID v4 used as X-Request-ID on gateway calls.
func NewRequestID() string {
	return uuid.New().String()
}
