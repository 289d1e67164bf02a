// Package id provides unique identifier generation for jobs and artifacts.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// Generate creates a new unique job ID.
// Format: job-<uuid v4>
// Example: job-0b0d5f3e-6c1a-4e34-9c8e-2f1f3b7a9d10
func Generate() string {
	return "job-" + uuid.NewString()
}

// Suffix returns a short random token used to keep storage keys distinct
// when two artifacts share a timestamp.
// Example: 9f86d081
func Suffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
