package utils

import "github.com/google/uuid"

// GenerateUUID generates a plain UUID string.
func GenerateUUID() string {
	return uuid.New().String()
}
