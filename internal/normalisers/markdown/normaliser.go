// Package markdown normalises Markdown documents to plain text.
package markdown

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Normaliser handles Markdown documents. Formatting is simplified rather
// than fully rendered: the retrieval pipeline wants readable text, not HTML.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".mdown"}
}

var (
	codeFenceRe = regexp.MustCompile("(?s)```.*?```")
	inlineRe    = regexp.MustCompile("`([^`]*)`")
	imageRe     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRe   = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	emphasisRe  = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
	hruleRe     = regexp.MustCompile(`(?m)^(-{3,}|\*{3,}|_{3,})\s*$`)
)

// Normalise strips Markdown syntax and returns the remaining text.
func (n *Normaliser) Normalise(_ context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		return "", errors.New("content is not valid UTF-8")
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	// Keep fenced code blocks' content but drop the fences.
	text = codeFenceRe.ReplaceAllStringFunc(text, func(block string) string {
		return strings.Trim(block, "`\n")
	})
	text = inlineRe.ReplaceAllString(text, "$1")
	text = imageRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = headingRe.ReplaceAllString(text, "")
	text = emphasisRe.ReplaceAllString(text, "$2")
	text = hruleRe.ReplaceAllString(text, "")

	return text, nil
}
