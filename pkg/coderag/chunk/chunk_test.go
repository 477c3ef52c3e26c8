package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag/coderag/pkg/coderag/extract"
	"github.com/coderag/coderag/pkg/coderag/types"
)

func TestFromBlocksRespectsMaxTokens(t *testing.T) {
	longText := strings.Repeat("word ", 1000)
	blocks := []extract.Block{{Kind: types.ContentProse, Text: longText, Heading: "Intro", Title: "Doc"}}

	chunks := FromBlocks(blocks, "https://x/doc", "x", Config{MaxTokens: 200, OverlapTokens: 20})
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 260) // allows overlap slack
	}
}

// TestFromBlocksKeepsCodeBlockAtomic covers spec P9: a code block is
// never split across chunks.
func TestFromBlocksKeepsCodeBlockAtomic(t *testing.T) {
	code := "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n"
	blocks := []extract.Block{{Kind: types.ContentCodeExample, Code: code, Language: "go", Heading: "Example"}}

	chunks := FromBlocks(blocks, "https://x/doc", "x", DefaultConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, code, chunks[0].Text)
	assert.Equal(t, types.ContentCodeExample, chunks[0].ContentType)
}

func TestFromBlocksTagsChangelogByHeading(t *testing.T) {
	blocks := []extract.Block{{Kind: types.ContentProse, Text: "v1.2.0 fixed a bug", Heading: "Changelog"}}
	chunks := FromBlocks(blocks, "https://x/doc", "x", DefaultConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, types.ContentChangelog, chunks[0].ContentType)
}

func TestContentHashNormalizesProseWhitespace(t *testing.T) {
	h1 := ContentHash("Hello   World", types.ContentProse)
	h2 := ContentHash("hello world", types.ContentProse)
	assert.Equal(t, h1, h2)
}

func TestContentHashIsExactForCode(t *testing.T) {
	h1 := ContentHash("x :=1", types.ContentCodeExample)
	h2 := ContentHash("x := 1", types.ContentCodeExample)
	assert.NotEqual(t, h1, h2)
}
