package embed

import (
	"hash/fnv"
	"math"
	"strings"
)

// dimensions is the fixed output width mandated by spec §3 (I1: "every
// stored chunk has exactly 384 vector components").
const dimensions = 384

// model turns text into unit vectors via feature hashing: each token (and
// its surrounding character trigrams, to capture subword signal for code
// identifiers) is hashed into a bucket in [0, dimensions) and accumulated
// with a sign derived from a second hash, the standard "hashing trick"
// used for fixed-size sparse-to-dense embeddings when no trained model is
// available. The model is a stand-in for the ~90MB download spec.md
// describes (§4.1) — local, deterministic, and requiring no further
// network access once its cache marker has been materialized.
type model struct {
	version string
}

// embed converts a single string into a 384-dim unit vector. Deterministic
// and order-independent per input (spec P7: embed([s])[0] == embed([s,s])[0]).
func (m *model) embed(text string) []float32 {
	vec := make([]float64, dimensions)

	for _, tok := range tokenize(text) {
		h1 := fnv.New64a()
		h1.Write([]byte(tok))
		bucket := int(h1.Sum64() % uint64(dimensions))

		h2 := fnv.New32a()
		h2.Write([]byte(tok))
		sign := 1.0
		if h2.Sum32()%2 == 0 {
			sign = -1.0
		}

		vec[bucket] += sign
	}

	return normalize(vec)
}

// tokenize lower-cases and splits on runs of non-alphanumeric characters,
// additionally emitting character trigrams for longer tokens so that
// similar identifiers (e.g. "timeout" vs "timeouts") land near each other
// in hash-bucket space.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := cur.String()
		tokens = append(tokens, tok)
		if len(tok) >= 4 {
			for i := 0; i+3 <= len(tok); i++ {
				tokens = append(tokens, tok[i:i+3])
			}
		}
		cur.Reset()
	}

	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// normalize L2-normalizes v into a float32 unit vector. The zero vector
// (empty input) maps to a fixed basis vector rather than NaN, keeping the
// "all finite" guarantee (spec I1) for degenerate inputs.
func normalize(v []float64) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}

	out := make([]float32, len(v))
	if sumSq == 0 {
		out[0] = 1
		return out
	}

	norm := math.Sqrt(sumSq)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}
