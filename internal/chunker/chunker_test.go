package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kb-cli/internal/core/domain"
)

// words builds a deterministic text of n whitespace-delimited tokens.
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestSplit_EmptyDocument(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t  \n"} {
		_, err := Split(text, Options{})
		assert.ErrorIs(t, err, domain.ErrEmptyDocument, "input %q", text)
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	text := words(50)
	chunks, err := Split(text, Options{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 50, chunks[0].TokenCount)
}

func TestSplit_AutoModeBounds(t *testing.T) {
	chunks, err := Split(words(3000), Options{Mode: domain.ChunkModeAuto})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, c.TokenCount, DefaultMaxTokens)
		assert.Greater(t, c.TokenCount, 0)
	}
}

func TestSplit_ManualModeValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "minimum size", size: 100, overlap: 0},
		{name: "maximum size", size: 8000, overlap: 100},
		{name: "below minimum", size: 99, overlap: 0, wantErr: true},
		{name: "above maximum", size: 8001, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 200, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds size", size: 100, overlap: 150, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(words(500), Options{
				Mode:          domain.ChunkModeManual,
				MaxTokens:     tt.size,
				OverlapTokens: tt.overlap,
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplit_UnknownMode(t *testing.T) {
	_, err := Split(words(10), Options{Mode: domain.ChunkMode("sideways")})
	assert.ErrorIs(t, err, domain.ErrInvalidChunkConfig)
}

func TestSplit_CoverageExact(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts Options
	}{
		{
			name: "auto long",
			text: words(3000),
			opts: Options{Mode: domain.ChunkModeAuto},
		},
		{
			name: "manual no overlap",
			text: words(1000),
			opts: Options{Mode: domain.ChunkModeManual, MaxTokens: 150, OverlapTokens: 0},
		},
		{
			name: "manual heavy overlap",
			text: words(1000),
			opts: Options{Mode: domain.ChunkModeManual, MaxTokens: 100, OverlapTokens: 99},
		},
		{
			name: "irregular whitespace",
			text: "  leading\n\n" + words(500) + "\t\ttrailing   \n",
			opts: Options{Mode: domain.ChunkModeManual, MaxTokens: 120, OverlapTokens: 30},
		},
		{
			name: "unicode tokens",
			text: strings.Repeat("héllo wörld 世界 ", 200),
			opts: Options{Mode: domain.ChunkModeManual, MaxTokens: 100, OverlapTokens: 25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.text, tt.opts)
			require.NoError(t, err)

			overlap := tt.opts.OverlapTokens
			if tt.opts.Mode == domain.ChunkModeAuto {
				overlap = DefaultOverlapTokens
			}
			assert.Equal(t, tt.text, Reassemble(chunks, overlap))
		})
	}
}

func TestSplit_OverlapShared(t *testing.T) {
	chunks, err := Split(words(400), Options{
		Mode:          domain.ChunkModeManual,
		MaxTokens:     100,
		OverlapTokens: 20,
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Text)
		cur := strings.Fields(chunks[i].Text)
		require.GreaterOrEqual(t, len(prev), 20)
		require.GreaterOrEqual(t, len(cur), 20)
		assert.Equal(t, prev[len(prev)-20:], cur[:20],
			"chunk %d should start with chunk %d's last 20 tokens", i, i-1)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := words(2500)
	first, err := Split(text, Options{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Split(text, Options{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSplit_CustomCounter(t *testing.T) {
	calls := 0
	counter := func(text string) int {
		calls++
		return len(text)
	}

	chunks, err := Split("one two three", Options{Counter: counter})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, len("one two three"), chunks[0].TokenCount)
	assert.Equal(t, 1, calls)
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Equal(t, 0, CountTokens("   \n\t"))
	assert.Equal(t, 3, CountTokens("one two three"))
	assert.Equal(t, 3, CountTokens("  one\n\ttwo   three  "))
}
