// Package chunk implements C5, the chunker: splitting extracted content
// blocks into bounded, overlapping, content-typed chunks ready for
// embedding.
//
// Grounded on the teacher's pkg/rag/chunk/chunk.go (ChunkText's rune-based
// sliding window with word-boundary backtracking and forced forward
// progress), generalized here from "one flat window over plain text" to
// "per-block splitting that never cuts a code block, and carries a
// heading-path prefix forward across the overlap" per spec §4.5.
package chunk

import (
	"strings"
	"unicode"

	"github.com/coderag/coderag/pkg/coderag/extract"
	"github.com/coderag/coderag/pkg/coderag/types"
)

// Config bounds the chunker's output. Defaults match spec §4.5.
type Config struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultConfig returns spec §4.5's defaults (max 1500 units, ~200 unit
// overlap).
func DefaultConfig() Config {
	return Config{MaxTokens: 1500, OverlapTokens: 200}
}

// pending is one not-yet-finalized chunk being accumulated.
type pending struct {
	headingPath string
	kind        types.ContentType
	language    string
	title       string
	text        strings.Builder
}

// FromBlocks splits blocks (as produced by pkg/coderag/extract) into
// chunks. url and source are stamped onto every emitted chunk.
func FromBlocks(blocks []extract.Block, url, source string, cfg Config) []types.Chunk {
	if cfg.MaxTokens <= 0 {
		cfg = DefaultConfig()
	}

	var out []types.Chunk
	var cur *pending
	var lastHeading string

	flush := func() {
		if cur == nil {
			return
		}
		// Code chunks keep their text byte-for-byte so a code block's
		// whitespace survives; prose chunks are trimmed.
		text := cur.text.String()
		if cur.kind != types.ContentCodeExample && cur.kind != types.ContentAPIReference {
			text = strings.TrimSpace(text)
		}
		if strings.TrimSpace(text) != "" {
			out = append(out, types.Chunk{
				Text:        text,
				URL:         url,
				Source:      source,
				Title:       cur.title,
				Section:     cur.headingPath,
				ContentType: tagContentType(cur.kind, cur.headingPath),
				Language:    cur.language,
				ContentHash: ContentHash(text, cur.kind),
			})
		}
		cur = nil
	}

	startChunk := func(heading, title string, kind types.ContentType, lang string) {
		cur = &pending{headingPath: heading, kind: kind, language: lang, title: title}
	}

	for _, b := range blocks {
		if b.Heading != "" {
			lastHeading = b.Heading
		}

		if b.Kind == types.ContentCodeExample || b.Kind == types.ContentAPIReference {
			// Code blocks are never split across chunks (spec §4.5): if
			// the current chunk has room, the block joins it as its own
			// paragraph; otherwise it starts (and, if oversized on its
			// own, solely occupies) a fresh chunk.
			if cur != nil && cur.text.Len()+len(b.Code) > cfg.MaxTokens && cur.text.Len() > 0 {
				flush()
			}
			if cur == nil {
				startChunk(lastHeading, b.Title, b.Kind, b.Language)
			}
			if cur.text.Len() > 0 {
				cur.text.WriteString("\n\n")
			}
			cur.text.WriteString(b.Code)
			cur.kind = b.Kind
			cur.language = b.Language
			if cur.language == "go" && !ConfirmGoLanguage(b.Code) {
				cur.language = ""
			}
			if cur.text.Len() >= cfg.MaxTokens {
				flush()
			}
			continue
		}

		for _, piece := range splitProse(b.Text, cfg.MaxTokens) {
			if cur == nil {
				startChunk(lastHeading, b.Title, types.ContentProse, "")
			} else if cur.headingPath != lastHeading && cur.text.Len() > 0 {
				// Heading change is the highest-priority split boundary.
				flush()
				startChunk(lastHeading, b.Title, types.ContentProse, "")
			}

			if cur.text.Len()+len(piece) > cfg.MaxTokens && cur.text.Len() > 0 {
				overlap := tailOverlap(cur.text.String(), cfg.OverlapTokens)
				flush()
				startChunk(lastHeading, b.Title, types.ContentProse, "")
				if overlap != "" {
					cur.text.WriteString(overlap)
					cur.text.WriteString("\n\n")
				}
			}
			if cur.text.Len() > 0 {
				cur.text.WriteString("\n\n")
			}
			cur.text.WriteString(piece)
		}
	}
	flush()

	return out
}

// splitProse breaks text into pieces no longer than maxTokens, preferring
// paragraph breaks then sentence ends, mirroring the teacher's
// respectWordBoundaries backtracking but operating over paragraphs and
// sentences instead of single words.
func splitProse(text string, maxTokens int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxTokens {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var pieces []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			pieces = append(pieces, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}

	for _, para := range paragraphs {
		if len(para) > maxTokens {
			flush()
			pieces = append(pieces, splitLongParagraph(para, maxTokens)...)
			continue
		}
		if cur.Len()+len(para) > maxTokens {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()

	return pieces
}

// splitLongParagraph breaks a single oversized paragraph at sentence
// boundaries (., !, ? followed by whitespace), falling back to a hard cut
// if no sentence boundary is found within range — the same
// forced-forward-progress guarantee as the teacher's chunker.
func splitLongParagraph(para string, maxTokens int) []string {
	var pieces []string
	runes := []rune(para)
	start := 0
	for start < len(runes) {
		end := start + maxTokens
		if end >= len(runes) {
			pieces = append(pieces, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := lastSentenceEnd(runes[start:end+1]) + start
		if cut <= start {
			cut = end
		}
		pieces = append(pieces, strings.TrimSpace(string(runes[start:cut])))
		start = cut
	}
	return pieces
}

func lastSentenceEnd(runes []rune) int {
	for i := len(runes) - 1; i > 0; i-- {
		if (runes[i-1] == '.' || runes[i-1] == '!' || runes[i-1] == '?') && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// tailOverlap returns up to n trailing characters of text, with its start
// moved forward to the next whitespace so the overlap doesn't begin
// mid-word.
func tailOverlap(text string, n int) string {
	if n <= 0 || len(text) == 0 {
		return ""
	}
	runes := []rune(text)
	start := len(runes) - n
	if start < 0 {
		start = 0
	}
	for start < len(runes) && !unicode.IsSpace(runes[start]) && start > 0 {
		start++
	}
	return strings.TrimSpace(string(runes[start:]))
}

// tagContentType applies spec §4.5's heading-pattern overrides on top of
// the block-provenance content type.
func tagContentType(base types.ContentType, heading string) types.ContentType {
	if base == types.ContentCodeExample || base == types.ContentAPIReference {
		return base
	}

	lower := strings.ToLower(heading)
	switch {
	case strings.Contains(lower, "changelog"), strings.Contains(lower, "release notes"):
		return types.ContentChangelog
	case strings.Contains(lower, "troubleshooting"), strings.Contains(lower, "faq"):
		return types.ContentTroubleshooting
	case strings.Contains(lower, "getting started"), strings.Contains(lower, "tutorial"), strings.Contains(lower, "quickstart"):
		return types.ContentTutorial
	default:
		return types.ContentProse
	}
}
