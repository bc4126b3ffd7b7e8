// Package plaintext normalises plain text documents.
package plaintext

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// Normaliser handles plain text documents. It is also the fallback for
// unknown formats, so it must reject binary content rather than index it.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt", ".text", ".log", ".csv", ".json", ".yaml", ".yml", ".toml", ".go", ".py"}
}

// Normalise converts the raw bytes to text.
// Binary or non-UTF-8 content is rejected.
func (n *Normaliser) Normalise(_ context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM

	if !utf8.Valid(data) {
		return "", errors.New("content is not valid UTF-8")
	}
	if bytes.IndexByte(data, 0x00) >= 0 {
		return "", errors.New("content looks binary")
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return text, nil
}
