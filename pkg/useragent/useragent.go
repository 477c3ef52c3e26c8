// Package useragent provides the compiled-in identity strings CodeRAG
// presents to external HTTP servers. Content-delivery networks and
// documentation sites reject requests carrying generic or empty User-Agent
// headers, so both the crawler and the embedding model's asset fetcher
// identify themselves explicitly; no user configuration is needed.
package useragent

import "github.com/coderag/coderag/internal/version"

// Crawler is the identity string the crawler presents when fetching
// documentation pages.
var Crawler = "CodeRAG/" + version.Version + " (AI Documentation Assistant)"

// ModelFetch is the identity string presented when fetching embedding
// model assets. Kept short and version-only, matching the bare
// product identifier CDNs expect for asset downloads.
var ModelFetch = "CodeRAG/" + version.Version
