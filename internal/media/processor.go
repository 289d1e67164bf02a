// Package media provides image processing used to prepare vendor inputs.
package media

import "context"

// Processor defines the interface for image processing operations.
// Implementations should use ffmpeg or similar tools for media manipulation.
type Processor interface {
	// FitImage scales an image to cover w x h and center-crops it so the
	// output is exactly w x h. The output format follows dst's extension.
	FitImage(ctx context.Context, src, dst string, w, h int) error
}
