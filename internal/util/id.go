package util

import "github.com/google/uuid"

// NewID returns a random UUID string, used for outbound request
// correlation and media object keys.
func NewID() string {
	return uuid.NewString()
}
