package model

import "github.com/google/uuid"

// NewID returns a fresh random identifier for a bookmark or group.
func NewID() string {
	return uuid.New().String()
}
