package utils

import "github.com/google/uuid"

// NewSessionID returns a fresh random session identifier. UUIDv4 gives
// 122 bits of randomness; collisions are not a practical concern.
func NewSessionID() string {
	return uuid.New().String()
}

// NewVisitorID returns a fresh random visitor identifier, issued once per
// browser and persisted client-side across sessions.
func NewVisitorID() string {
	return uuid.New().String()
}
