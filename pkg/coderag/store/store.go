// Package store implements the vector store: the authoritative,
// file-backed collection of chunks a project's CodeRAG index holds, with
// content-hash dedup, cosine-similarity search, and crash-atomic
// persistence.
//
// Grounded on the teacher's pkg/rag/strategy/vector_store.go (the
// single in-memory index with a file-hash map guarding reindexing) and
// pkg/rag/database/database.go (CosineSimilarity, SearchResult shape).
// Unlike the teacher, which backs onto a pluggable Database interface
// (sqlite, future providers), CodeRAG's scale target of tens of thousands
// of chunks rather than millions makes a single JSON file plus an
// in-process linear scan the right fit — the same reasoning the teacher
// applies when choosing not to add a proximity-graph index.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/coderag/coderag/pkg/coderagerrors"
	"github.com/coderag/coderag/pkg/coderag/types"
)

// document is the on-disk record. It's the same Chunk type: on disk the
// vector is always present, in memory it's identical, so no translation
// layer is needed beyond this alias existing as a documentation anchor.
type document = types.Chunk

// fileFormat is the root JSON object persisted to the store path (spec
// §6): a schema version for forward compatibility, the store's creation
// and last-write timestamps, the live chunks, and the full set of
// content hashes ever seen — including hashes whose chunks have since
// been deleted or expired, so a re-crawl doesn't re-ingest them.
type fileFormat struct {
	SchemaVersion int        `json:"schema_version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	SeenHashes    []string   `json:"seen_hashes"`
	Chunks        []document `json:"chunks"`
}

const currentSchemaVersion = 1

// Store is the in-memory, file-backed chunk collection for one project.
// A single Store instance enforces a single-writer/many-readers policy
// via an RWMutex — the same discipline the teacher's VectorStore applies
// with its fileHashesMu, generalized here to guard the whole chunk slice
// since CodeRAG has no separate SQL-backed store to delegate locking to.
type Store struct {
	path string

	mu         sync.RWMutex
	chunks     []types.Chunk
	byHash     map[string]string // content hash -> chunk ID, for live chunks only
	seenHashes map[string]bool   // every content hash ever upserted, never pruned by delete/expire
	createdAt  time.Time
	updatedAt  time.Time
}

// Open loads path if it exists, or starts empty if it does not (a brand
// new project has no store file yet). Open never creates the file; the
// first Save call does.
func Open(path string) (*Store, error) {
	s := &Store{
		path:       path,
		byHash:     make(map[string]string),
		seenHashes: make(map[string]bool),
	}
	if err := s.ReloadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

// ReloadFromDisk discards in-memory state and reloads from path. A
// missing file is not an error: it means an empty, not-yet-saved store.
func (s *Store) ReloadFromDisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.chunks = nil
			s.byHash = make(map[string]string)
			s.seenHashes = make(map[string]bool)
			s.createdAt = time.Now()
			s.updatedAt = s.createdAt
			return nil
		}
		return &coderagerrors.StorageIOError{Path: s.path, Cause: err}
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return &coderagerrors.StorageIOError{Path: s.path, Cause: fmt.Errorf("parsing store file: %w", err)}
	}

	s.chunks = ff.Chunks
	s.byHash = make(map[string]string, len(ff.Chunks))
	for _, c := range s.chunks {
		if c.ContentHash != "" {
			s.byHash[c.ContentHash] = c.ID
		}
	}

	// seenHashes is the union of the persisted set and every live chunk's
	// hash, so a store file predating this field (or hand-edited) still
	// ends up consistent rather than silently losing its dedup history.
	s.seenHashes = make(map[string]bool, len(ff.SeenHashes)+len(s.chunks))
	for _, h := range ff.SeenHashes {
		s.seenHashes[h] = true
	}
	for hash := range s.byHash {
		s.seenHashes[hash] = true
	}

	s.createdAt = ff.CreatedAt
	if s.createdAt.IsZero() {
		s.createdAt = time.Now()
	}
	s.updatedAt = ff.UpdatedAt
	if s.updatedAt.IsZero() {
		s.updatedAt = s.createdAt
	}
	return nil
}

// Save persists the current in-memory state atomically: a temp file is
// written and renamed into place, so a crash mid-write never leaves a
// corrupt store. Grounded on the teacher's pkg/userconfig/userconfig.go
// Save, which uses the same natefinch/atomic helper for the identical
// reason.
func (s *Store) Save() error {
	s.mu.Lock()
	s.updatedAt = time.Now()
	if s.createdAt.IsZero() {
		s.createdAt = s.updatedAt
	}

	seenHashes := make([]string, 0, len(s.seenHashes))
	for h := range s.seenHashes {
		seenHashes = append(seenHashes, h)
	}
	sort.Strings(seenHashes)

	ff := fileFormat{
		SchemaVersion: currentSchemaVersion,
		CreatedAt:     s.createdAt,
		UpdatedAt:     s.updatedAt,
		SeenHashes:    seenHashes,
		Chunks:        s.chunks,
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return &coderagerrors.StorageIOError{Path: s.path, Cause: err}
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return &coderagerrors.StorageIOError{Path: s.path, Cause: err}
	}
	return nil
}

// Upsert inserts c, assigning it a fresh ID if unset. If a chunk with the
// same ContentHash already exists, Upsert updates that chunk in place
// (same ID, refreshed metadata) instead of inserting a duplicate — spec
// §3 I3 ("re-indexing identical content must not grow the store"). If no
// live chunk holds ContentHash but it was seen in a prior session (spec
// §3: hashes are "retained across sessions to suppress re-ingestion of
// previously-seen chunks"), Upsert silently skips the insert and reports
// a dedup against the empty ID. Otherwise it inserts c fresh. The bool
// return reports whether the write was a dedup (true) or a new insert
// (false).
func (s *Store) Upsert(ctx context.Context, c types.Chunk) (id string, deduplicated bool, err error) {
	select {
	case <-ctx.Done():
		return "", false, &coderagerrors.CancelledError{Cause: ctx.Err()}
	default:
	}

	if len(c.Vector) == 0 {
		return "", false, &coderagerrors.InvalidRequestError{Field: "vector", Reason: "must not be empty"}
	}
	if c.ContentHash == "" {
		return "", false, &coderagerrors.InvalidRequestError{Field: "content_hash", Reason: "must not be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byHash[c.ContentHash]; ok {
		for i := range s.chunks {
			if s.chunks[i].ID == existingID {
				c.ID = existingID
				s.chunks[i] = c
				return existingID, true, nil
			}
		}
	}

	if s.seenHashes[c.ContentHash] {
		return "", true, nil
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.chunks = append(s.chunks, c)
	s.byHash[c.ContentHash] = c.ID
	s.seenHashes[c.ContentHash] = true
	return c.ID, false, nil
}

// DeleteBy removes every chunk whose Source equals source, returning the
// count removed.
func (s *Store) DeleteBy(source string) int {
	return s.DeleteByPredicate(func(c types.Chunk) bool { return c.Source == source })
}

// CountBy reports how many chunks satisfy pred, without mutating the
// store. Used by manage_docs's dry_run path (spec §4.7) to preview an
// operation's effect.
func (s *Store) CountBy(pred func(types.Chunk) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.chunks {
		if pred(c) {
			n++
		}
	}
	return n
}

// DeleteByPredicate removes every chunk for which pred returns true,
// returning the count removed. The underlying operation for manage_docs's
// delete and expire operations (spec §4.7), each supplying a different
// predicate over target and age; refresh uses DeleteAndForget instead. It prunes byHash (the live
// dedup index) but deliberately leaves seenHashes untouched: spec §3
// requires previously-seen content hashes to keep suppressing
// re-ingestion even after their chunk is deleted or expired.
func (s *Store) DeleteByPredicate(pred func(types.Chunk) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0:0]
	removed := 0
	for _, c := range s.chunks {
		if pred(c) {
			removed++
			delete(s.byHash, c.ContentHash)
			continue
		}
		kept = append(kept, c)
	}
	s.chunks = kept
	return removed
}

// DeleteAndForget removes every chunk for which pred returns true, like
// DeleteByPredicate, but additionally drops their content hashes from
// seenHashes so a subsequent Upsert with the same hash inserts fresh
// rather than being silently suppressed. This is manage_docs's refresh
// operation's delete step (spec §3: "mutated only by explicit refresh
// (which deletes+reinserts by URL)") — the one path that intentionally
// re-ingests content matching a hash it just removed.
func (s *Store) DeleteAndForget(pred func(types.Chunk) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0:0]
	removed := 0
	for _, c := range s.chunks {
		if pred(c) {
			removed++
			delete(s.byHash, c.ContentHash)
			delete(s.seenHashes, c.ContentHash)
			continue
		}
		kept = append(kept, c)
	}
	s.chunks = kept
	return removed
}

// IterSources returns one SourceSummary per distinct Source, in no
// particular order — callers sort if a presentation order matters.
func (s *Store) IterSources() []types.SourceSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySource := make(map[string]*types.SourceSummary)
	var order []string
	for _, c := range s.chunks {
		sum, ok := bySource[c.Source]
		if !ok {
			sum = &types.SourceSummary{Source: c.Source}
			bySource[c.Source] = sum
			order = append(order, c.Source)
		}
		sum.Count++
		if c.IndexedAt.After(sum.LastIndexed) {
			sum.LastIndexed = c.IndexedAt
		}
	}

	out := make([]types.SourceSummary, 0, len(order))
	for _, src := range order {
		out = append(out, *bySource[src])
	}
	return out
}

// Len returns the number of chunks currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
