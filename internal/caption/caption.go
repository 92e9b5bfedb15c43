// Package caption describes uploaded gallery photos in a short sentence.
package caption

import (
	"context"
	"io"
)

// Prompt is the instruction sent alongside every photo.
const Prompt = `Describe this photo in one short sentence suitable as a gallery caption.
Respond with the caption only, no quotes and no preamble.`

type Captioner interface {
	Caption(ctx context.Context, r io.Reader, mimeType string) (string, error)
}
