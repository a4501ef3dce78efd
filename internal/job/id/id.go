// Package id provides unique identifier generation for generation sessions.
package id

import "github.com/google/uuid"

// Prefix marks session identifiers so they are not confused with provider task ids.
const Prefix = "gen-"

// Generate creates a new unique session ID.
// Format: gen-<uuid v4>
// Example: gen-3f1c2a9e-6b7d-4c1e-9a0f-2d5b8e7c4a10
func Generate() string {
	return Prefix + uuid.NewString()
}

// Valid reports whether s looks like an ID produced by Generate.
func Valid(s string) bool {
	if len(s) <= len(Prefix) || s[:len(Prefix)] != Prefix {
		return false
	}
	_, err := uuid.Parse(s[len(Prefix):])
	return err == nil
}
