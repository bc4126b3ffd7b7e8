package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalise_PassThrough(t *testing.T) {
	n := New()

	text, err := n.Normalise(context.Background(), []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestNormalise_StripsBOM(t *testing.T) {
	n := New()

	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("content")...)
	text, err := n.Normalise(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "content", text)
}

func TestNormalise_NormalisesLineEndings(t *testing.T) {
	n := New()

	text, err := n.Normalise(context.Background(), []byte("one\r\ntwo\r\nthree"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree", text)
}

func TestNormalise_RejectsInvalidUTF8(t *testing.T) {
	n := New()

	_, err := n.Normalise(context.Background(), []byte{0xC3, 0x28})
	assert.Error(t, err)
}

func TestNormalise_RejectsBinary(t *testing.T) {
	n := New()

	_, err := n.Normalise(context.Background(), []byte("text with \x00 byte"))
	assert.Error(t, err)
}

func TestSupportedExtensions(t *testing.T) {
	n := New()
	assert.Contains(t, n.SupportedExtensions(), ".txt")
}
