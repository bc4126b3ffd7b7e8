package driven

import "context"

// Parser turns raw document bytes into plain text.
// The format hint is usually the original filename or extension.
type Parser interface {
	// Parse extracts text from the document bytes.
	// Returns domain.ErrParseError on unsupported or corrupt input.
	Parse(ctx context.Context, data []byte, formatHint string) (string, error)
}
