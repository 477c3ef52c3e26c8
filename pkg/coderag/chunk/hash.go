package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/coderag/coderag/pkg/coderag/types"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ContentHash computes the normalized hash spec §4.5 dedup relies on:
// whitespace-collapsed and lower-cased for prose, byte-exact for code
// blocks (where whitespace is often significant).
func ContentHash(text string, kind types.ContentType) string {
	normalized := text
	if kind != types.ContentCodeExample && kind != types.ContentAPIReference {
		normalized = strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " "))
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
