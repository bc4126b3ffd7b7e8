// Package chunker splits document text into bounded, overlapping chunks.
// Splitting is a pure function of the input text and options: no IO, and
// identical input always produces identical chunks.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

// Auto-mode defaults, tuned to balance retrieval recall against embedding
// cost. Deterministic but not part of the caller-visible contract.
const (
	DefaultMaxTokens     = 400
	DefaultOverlapTokens = 50
)

// Manual-mode window bounds.
const (
	MinChunkTokens = 100
	MaxChunkTokens = 8000
)

// TokenCounter estimates the token length of a text.
type TokenCounter func(text string) int

// CountTokens is the default token counter: whitespace-delimited words.
// The corpus carries no model tokenizer; word counting is a stable proxy
// that both splitting and reporting share.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// Options configures a chunking pass.
type Options struct {
	// Mode selects auto (tuned defaults) or manual (caller-supplied sizes).
	// Empty means auto.
	Mode domain.ChunkMode

	// MaxTokens is the manual-mode window size, bounded to
	// [MinChunkTokens, MaxChunkTokens]. Ignored in auto mode.
	MaxTokens int

	// OverlapTokens is the manual-mode overlap, 0 up to (but excluding)
	// the window size. Ignored in auto mode.
	OverlapTokens int

	// Counter overrides the token counter used for reported token counts.
	Counter TokenCounter
}

// span marks one token's byte offsets in the source text.
type span struct {
	start int
	end   int
}

// Split chunks text according to the options.
//
// Every produced chunk holds at most the window's worth of tokens, indices
// are contiguous from 0, and each chunk's text is a slice of the source on
// token boundaries: concatenating the chunks in order, dropping each chunk's
// leading overlap tokens, reconstructs the source text exactly.
func Split(text string, opts Options) ([]domain.Chunk, error) {
	maxTokens, overlap, err := resolveWindow(opts)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyDocument
	}

	counter := opts.Counter
	if counter == nil {
		counter = CountTokens
	}

	spans := tokenSpans(text)
	step := maxTokens - overlap

	var chunks []domain.Chunk
	for start := 0; start < len(spans); start += step {
		end := start + maxTokens
		if end > len(spans) {
			end = len(spans)
		}

		// The first chunk keeps any leading whitespace; every chunk runs
		// through to the next token's start (or end of text) so no bytes
		// fall between consecutive windows.
		byteStart := spans[start].start
		if start == 0 {
			byteStart = 0
		}
		byteEnd := len(text)
		if end < len(spans) {
			byteEnd = spans[end].start
		}

		chunkText := text[byteStart:byteEnd]
		chunks = append(chunks, domain.Chunk{
			Index:      len(chunks),
			Text:       chunkText,
			TokenCount: counter(chunkText),
		})

		if end == len(spans) {
			break
		}
	}

	return chunks, nil
}

// resolveWindow validates the options and returns the effective window and
// overlap sizes in tokens.
func resolveWindow(opts Options) (maxTokens, overlap int, err error) {
	switch opts.Mode {
	case domain.ChunkModeAuto, "":
		return DefaultMaxTokens, DefaultOverlapTokens, nil

	case domain.ChunkModeManual:
		maxTokens = opts.MaxTokens
		overlap = opts.OverlapTokens
		if maxTokens < MinChunkTokens || maxTokens > MaxChunkTokens {
			return 0, 0, fmt.Errorf("%w: chunk size %d outside [%d, %d]",
				domain.ErrInvalidChunkConfig, maxTokens, MinChunkTokens, MaxChunkTokens)
		}
		if overlap < 0 {
			return 0, 0, fmt.Errorf("%w: negative overlap %d",
				domain.ErrInvalidChunkConfig, overlap)
		}
		if overlap >= maxTokens {
			return 0, 0, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
				domain.ErrInvalidChunkConfig, overlap, maxTokens)
		}
		return maxTokens, overlap, nil

	default:
		return 0, 0, fmt.Errorf("%w: unknown chunk mode %q",
			domain.ErrInvalidChunkConfig, opts.Mode)
	}
}

// tokenSpans returns the byte offsets of every whitespace-delimited token.
func tokenSpans(text string) []span {
	var spans []span
	inToken := false
	start := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inToken {
				spans = append(spans, span{start: start, end: i})
				inToken = false
			}
			continue
		}
		if !inToken {
			start = i
			inToken = true
		}
	}
	if inToken {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

// Reassemble joins chunks back into the source text by dropping each
// chunk's leading overlap tokens. It is the inverse of Split for any valid
// options and exists to make the coverage guarantee testable.
func Reassemble(chunks []domain.Chunk, overlapTokens int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 || overlapTokens == 0 {
			b.WriteString(c.Text)
			continue
		}
		spans := tokenSpans(c.Text)
		if len(spans) <= overlapTokens {
			// Chunk is nothing but overlap; contributes no new text.
			continue
		}
		b.WriteString(c.Text[spans[overlapTokens].start:])
	}
	return b.String()
}
