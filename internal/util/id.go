package util

import "github.com/google/uuid"

// NewID returns a random UUID string suitable for the uuid primary keys.
func NewID() string {
	return uuid.NewString()
}

// IsID reports whether value parses as a UUID.
func IsID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
