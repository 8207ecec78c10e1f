// Package lexgo provides an embedded inverted-index search engine for Go.
//
// Lexgo indexes tokenized documents into immutable on-disk segments and
// answers boolean term queries over them:
//
//   - Write-once segments: documents accumulate in memory and become an
//     immutable segment blob on Flush
//   - Boolean queries: term lookups composed with AND, OR and NOT,
//     scored by a selectable similarity model (TF, boolean, BM25)
//   - Deletes as tombstones: deletion never rewrites a segment; merges
//     compact tombstoned documents away
//   - Pluggable storage: local disk (mmap reads), in-memory, S3 and
//     MinIO blob stores
//   - Crash-safe commits: a numbered manifest plus CURRENT pointer makes
//     every state change a single atomic blob overwrite
//
// # Quick Start
//
//	ctx := context.Background()
//	store, err := blobstore.NewLocalStore("./data")
//	if err != nil {
//		panic(err)
//	}
//	idx, err := lexgo.Open(ctx, store)
//	if err != nil {
//		panic(err)
//	}
//	defer idx.Close()
//
//	idx.Add(ctx, model.Document{Fields: []model.Field{
//		{Name: "body", Tokens: []string{"rust", "safe"}},
//	}})
//	idx.Flush(ctx)
//
//	hits, err := idx.Search(ctx, query.And(
//		query.Term("body", "rust"),
//		query.Not(query.Term("body", "fast")),
//	))
//
// Results are ordered by descending score with ties broken by ascending
// document id, so the same index state always yields the same output.
package lexgo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lexgo/blobstore"
	"github.com/hupe1980/lexgo/internal/manifest"
	"github.com/hupe1980/lexgo/internal/segment"
	"github.com/hupe1980/lexgo/internal/tombstone"
	"github.com/hupe1980/lexgo/model"
	"github.com/hupe1980/lexgo/query"
	"github.com/hupe1980/lexgo/scoring"
	"github.com/hupe1980/lexgo/searcher"
)

// Index is an embedded inverted-index over immutable segments.
//
// Reads (Search, Stats) take a lock-free snapshot of the segment set and
// may run concurrently with each other and with writes. Writes (Add,
// Flush, Delete, Merge) are serialized internally; a single *Index must
// be the only writer for its blob store prefix.
type Index struct {
	store     blobstore.BlobStore
	manifests *manifest.Store
	sim       scoring.Similarity
	exec      *searcher.Executor

	compression Compression
	ioLimit     int
	metrics     MetricsCollector
	logger      *Logger

	mu      sync.Mutex // serializes writers
	pending *segment.Writer
	retired []*segment.Reader // readers replaced by a merge, closed on Close
	state   atomic.Pointer[segmentSet]
	closed  atomic.Bool
}

// segmentSet is one immutable commit point: the manifest plus the opened
// readers and tombstones it describes. Mutations build a new set and
// publish it atomically.
type segmentSet struct {
	manifest *manifest.Manifest
	segments []*liveSegment
}

func (ss *segmentSet) liveDocs() uint64 {
	var n uint64
	for _, s := range ss.segments {
		n += uint64(s.reader.DocCount()) - s.deleted()
	}
	return n
}

// liveSegment pairs a segment reader with its tombstone overlay.
type liveSegment struct {
	info   manifest.SegmentInfo
	reader *segment.Reader
	dels   *tombstone.Set // nil when the segment has no deletions
}

func (s *liveSegment) deleted() uint64 {
	if s.dels == nil {
		return 0
	}
	return s.dels.Len()
}

// DocCount implements searcher.Segment.
func (s *liveSegment) DocCount() uint32 { return s.reader.DocCount() }

// TotalTokens implements searcher.Segment.
func (s *liveSegment) TotalTokens() uint64 { return s.reader.TotalTokens() }

// DocLen implements searcher.Segment.
func (s *liveSegment) DocLen(id model.DocID) uint32 { return s.reader.DocLen(id) }

// DocFreq implements searcher.Segment.
func (s *liveSegment) DocFreq(term model.Term) uint32 { return s.reader.DocFreq(term) }

// TermPostings implements searcher.Segment.
func (s *liveSegment) TermPostings(term model.Term) (searcher.PostingsIterator, bool) {
	it, ok := s.reader.TermPostings(term)
	if !ok {
		return nil, false
	}
	return it, true
}

// IsLive implements searcher.Segment.
func (s *liveSegment) IsLive(id model.DocID) bool {
	return s.dels == nil || !s.dels.Contains(id)
}

// Open opens the index stored under store, creating a fresh one if no
// manifest exists yet.
//
// The similarity model of a fresh index is taken from WithSimilarity
// (scoring.Default if unset) and persisted in the manifest. Reopening an
// existing index with a different model fails with ErrInvalidState.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Index, error) {
	opts := applyOptions(optFns)

	ms := manifest.NewStore(store)

	m, err := ms.Load(ctx)
	switch {
	case err == nil:
		// existing index
	case errors.Is(err, manifest.ErrNotFound):
		sim := opts.similarity
		if sim == nil {
			sim = scoring.Default
		}
		m = manifest.New(sim.Name())
		if err := ms.Save(ctx, m); err != nil {
			return nil, translateError(err)
		}
	default:
		opts.logger.LogOpen(ctx, 0, 0, err)
		return nil, translateError(err)
	}

	sim := opts.similarity
	if sim == nil {
		var ok bool
		if sim, ok = scoring.ByName(m.Similarity); !ok {
			return nil, fmt.Errorf("%w: manifest names unknown similarity %q", ErrCorrupt, m.Similarity)
		}
	} else if sim.Name() != m.Similarity {
		return nil, fmt.Errorf("%w: index uses similarity %q, got %q", ErrInvalidState, m.Similarity, sim.Name())
	}

	segs, err := openSegments(ctx, store, m)
	if err != nil {
		opts.logger.LogOpen(ctx, 0, 0, err)
		return nil, translateError(err)
	}

	idx := &Index{
		store:       store,
		manifests:   ms,
		sim:         sim,
		exec:        searcher.New(sim),
		compression: opts.compression,
		ioLimit:     opts.ioLimitBytesPerSec,
		metrics:     opts.metricsCollector,
		logger:      opts.logger,
	}
	ss := &segmentSet{manifest: m, segments: segs}
	idx.state.Store(ss)

	idx.logger.LogOpen(ctx, len(segs), ss.liveDocs(), nil)

	return idx, nil
}

func openSegments(ctx context.Context, store blobstore.BlobStore, m *manifest.Manifest) ([]*liveSegment, error) {
	segs := make([]*liveSegment, 0, len(m.Segments))

	fail := func(err error) ([]*liveSegment, error) {
		for _, s := range segs {
			_ = s.reader.Close()
		}
		return nil, err
	}

	for _, si := range m.Segments {
		blob, err := store.Open(ctx, si.Path)
		if err != nil {
			return fail(fmt.Errorf("open segment %s: %w", si.Path, err))
		}
		r, err := segment.Open(blob)
		if err != nil {
			_ = blob.Close()
			return fail(fmt.Errorf("segment %s: %w", si.Path, err))
		}
		if r.DocCount() != si.DocCount {
			_ = r.Close()
			return fail(fmt.Errorf("%w: segment %s doc count disagrees with manifest", segment.ErrCorrupt, si.Path))
		}

		var dels *tombstone.Set
		if si.DelGen > 0 {
			dels, err = loadTombstones(ctx, store, si)
			if err != nil {
				_ = r.Close()
				return fail(err)
			}
		}

		segs = append(segs, &liveSegment{info: si, reader: r, dels: dels})
	}

	return segs, nil
}

func loadTombstones(ctx context.Context, store blobstore.BlobStore, si manifest.SegmentInfo) (*tombstone.Set, error) {
	blob, err := store.Open(ctx, si.DelPath())
	if err != nil {
		return nil, fmt.Errorf("open tombstones %s: %w", si.DelPath(), err)
	}
	data, err := blobstore.ReadAll(blob)
	if cerr := blob.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	dels, err := tombstone.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("tombstones %s: %w", si.DelPath(), err)
	}
	return dels, nil
}

// Add buffers one document into the pending segment and returns its id
// within that segment. The document is not searchable until Flush.
func (idx *Index) Add(ctx context.Context, doc model.Document) (model.DocID, error) {
	start := time.Now()

	id, err := idx.add(doc)

	idx.metrics.RecordAdd(time.Since(start), err)
	idx.logger.LogAdd(ctx, uint32(id), doc.Len(), err)

	return id, translateError(err)
}

func (idx *Index) add(doc model.Document) (model.DocID, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed.Load() {
		return 0, ErrClosed
	}

	if idx.pending == nil {
		idx.pending = segment.NewWriter(idx.compression)
	}

	return idx.pending.Add(doc)
}

// Flush writes the pending documents as a new immutable segment, commits
// it to the manifest and makes it searchable. Flushing with nothing
// buffered is a no-op that returns 0.
func (idx *Index) Flush(ctx context.Context) (model.SegmentID, error) {
	start := time.Now()

	id, docs, bytes, err := idx.flush(ctx)

	idx.metrics.RecordFlush(docs, bytes, time.Since(start), err)
	if docs > 0 || err != nil {
		idx.logger.LogFlush(ctx, uint64(id), docs, err)
	}

	return id, translateError(err)
}

func (idx *Index) flush(ctx context.Context) (model.SegmentID, uint32, int64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed.Load() {
		return 0, 0, 0, ErrClosed
	}
	if idx.pending == nil || idx.pending.DocCount() == 0 {
		return 0, 0, 0, nil
	}

	// The segment id is bound here, not when the buffer was opened: a
	// merge may have advanced NextSegmentID since the first Add.
	cur := idx.state.Load()
	id := cur.manifest.NextSegmentID
	docs := idx.pending.DocCount()
	path := manifest.SegmentPath(id)

	blob, err := idx.store.Create(ctx, path)
	if err != nil {
		return id, docs, 0, err
	}
	cw := &countingWriter{w: newLimitedWriter(ctx, blob, idx.ioLimit)}
	if err := idx.pending.Flush(ctx, id, cw); err != nil {
		_ = blob.Close()
		_ = idx.store.Delete(ctx, path)
		return id, docs, cw.n, err
	}
	if err := blob.Close(); err != nil {
		return id, docs, cw.n, err
	}

	ls, err := idx.openLive(ctx, manifest.SegmentInfo{ID: id, DocCount: docs, Path: path})
	if err != nil {
		return id, docs, cw.n, err
	}

	m := cur.manifest.Clone()
	m.Segments = append(m.Segments, ls.info)
	m.NextSegmentID = id + 1
	if err := idx.manifests.Save(ctx, m); err != nil {
		_ = ls.reader.Close()
		return id, docs, cw.n, err
	}

	segs := make([]*liveSegment, len(cur.segments), len(cur.segments)+1)
	copy(segs, cur.segments)
	segs = append(segs, ls)
	idx.state.Store(&segmentSet{manifest: m, segments: segs})

	idx.pending = nil

	return id, docs, cw.n, nil
}

func (idx *Index) openLive(ctx context.Context, si manifest.SegmentInfo) (*liveSegment, error) {
	blob, err := idx.store.Open(ctx, si.Path)
	if err != nil {
		return nil, err
	}
	r, err := segment.Open(blob)
	if err != nil {
		_ = blob.Close()
		return nil, err
	}
	return &liveSegment{info: si, reader: r}, nil
}

// Search evaluates q against all committed segments and returns matches
// ordered by descending score, ties broken by ascending document id.
// Tombstoned documents never match. Pending (unflushed) documents are
// not visible.
func (idx *Index) Search(ctx context.Context, q query.Query) ([]model.ScoredDoc, error) {
	start := time.Now()

	if idx.closed.Load() {
		return nil, ErrClosed
	}

	ss := idx.state.Load()
	segs := make([]searcher.Segment, len(ss.segments))
	for i, s := range ss.segments {
		segs[i] = s
	}

	hits, err := idx.exec.Execute(ctx, q, segs)

	idx.metrics.RecordSearch(len(hits), time.Since(start), err)
	idx.logger.LogSearch(ctx, q.String(), len(hits), err)

	return hits, translateError(err)
}

// Delete tombstones the document with the given global id. It returns
// false when the document was already deleted. Ids outside the committed
// document space yield ErrNotFound.
//
// The tombstone is durable before Delete returns: a new tombstone blob
// is written and the manifest committed.
func (idx *Index) Delete(ctx context.Context, id model.GlobalID) (bool, error) {
	start := time.Now()

	deleted, err := idx.delete(ctx, id)

	idx.metrics.RecordDelete(time.Since(start), err)
	idx.logger.LogDelete(ctx, uint64(id), err)

	return deleted, translateError(err)
}

func (idx *Index) delete(ctx context.Context, id model.GlobalID) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed.Load() {
		return false, ErrClosed
	}

	cur := idx.state.Load()

	// Resolve the owning segment by walking the base offsets.
	pos := -1
	local := uint64(id)
	for i, s := range cur.segments {
		n := uint64(s.reader.DocCount())
		if local < n {
			pos = i
			break
		}
		local -= n
	}
	if pos == -1 {
		return false, fmt.Errorf("%w: document %d", ErrNotFound, id)
	}

	target := cur.segments[pos]

	dels := tombstone.NewSet()
	if target.dels != nil {
		dels = target.dels.Clone()
	}
	if !dels.Delete(model.DocID(local)) {
		return false, nil
	}

	data, err := dels.MarshalBinary()
	if err != nil {
		return false, err
	}

	si := target.info
	oldDelPath := ""
	if si.DelGen > 0 {
		oldDelPath = si.DelPath()
	}
	si.DelGen++
	si.NumDeleted = dels.Len()

	if err := idx.store.Put(ctx, si.DelPath(), data); err != nil {
		return false, err
	}

	m := cur.manifest.Clone()
	m.Segments[pos] = si
	if err := idx.manifests.Save(ctx, m); err != nil {
		return false, err
	}

	segs := make([]*liveSegment, len(cur.segments))
	copy(segs, cur.segments)
	segs[pos] = &liveSegment{info: si, reader: target.reader, dels: dels}
	idx.state.Store(&segmentSet{manifest: m, segments: segs})

	// Retired tombstone generations are garbage once the manifest
	// commits; failure to remove them is harmless.
	if oldDelPath != "" {
		_ = idx.store.Delete(ctx, oldDelPath)
	}

	return true, nil
}

// Merge compacts all committed segments into a single new segment,
// dropping tombstoned documents, and commits the result. It returns the
// id of the merged segment. With fewer than two segments and no
// tombstones there is nothing to do and Merge returns 0.
//
// Merging renumbers documents: global ids from before the merge are not
// comparable to ids after it.
func (idx *Index) Merge(ctx context.Context) (model.SegmentID, error) {
	start := time.Now()

	id, sources, docs, err := idx.merge(ctx)

	idx.metrics.RecordMerge(sources, docs, time.Since(start), err)
	if sources > 0 || err != nil {
		idx.logger.LogMerge(ctx, sources, uint64(id), docs, err)
	}

	return id, translateError(err)
}

func (idx *Index) merge(ctx context.Context) (model.SegmentID, int, uint32, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed.Load() {
		return 0, 0, 0, ErrClosed
	}

	cur := idx.state.Load()
	if len(cur.segments) == 0 {
		return 0, 0, 0, nil
	}

	var hasDels bool
	for _, s := range cur.segments {
		if s.deleted() > 0 {
			hasDels = true
			break
		}
	}
	if len(cur.segments) < 2 && !hasDels {
		return 0, 0, 0, nil
	}

	id := cur.manifest.NextSegmentID
	path := manifest.SegmentPath(id)

	srcs := make([]*segment.Reader, len(cur.segments))
	dels := make([]*tombstone.Set, len(cur.segments))
	for i, s := range cur.segments {
		srcs[i] = s.reader
		dels[i] = s.dels
	}

	blob, err := idx.store.Create(ctx, path)
	if err != nil {
		return id, len(srcs), 0, err
	}
	lw := newLimitedWriter(ctx, blob, idx.ioLimit)
	docs, err := segment.Merge(ctx, lw, id, idx.compression, srcs, dels)
	if err != nil {
		_ = blob.Close()
		_ = idx.store.Delete(ctx, path)
		return id, len(srcs), docs, err
	}
	if err := blob.Close(); err != nil {
		return id, len(srcs), docs, err
	}

	ls, err := idx.openLive(ctx, manifest.SegmentInfo{ID: id, DocCount: docs, Path: path})
	if err != nil {
		return id, len(srcs), docs, err
	}

	m := cur.manifest.Clone()
	m.Segments = []manifest.SegmentInfo{ls.info}
	m.NextSegmentID = id + 1
	if err := idx.manifests.Save(ctx, m); err != nil {
		_ = ls.reader.Close()
		return id, len(srcs), docs, err
	}

	idx.state.Store(&segmentSet{manifest: m, segments: []*liveSegment{ls}})

	// Old readers may still back in-flight searches on the previous
	// snapshot; they are closed when the index closes. The blobs
	// themselves are garbage after the commit.
	for _, s := range cur.segments {
		idx.retired = append(idx.retired, s.reader)
		_ = idx.store.Delete(ctx, s.info.Path)
		if s.info.DelGen > 0 {
			_ = idx.store.Delete(ctx, s.info.DelPath())
		}
	}

	return id, len(srcs), docs, nil
}

// Stats is a point-in-time summary of the committed index state.
type Stats struct {
	Segments   int
	Docs       uint64 // live documents (tombstoned excluded)
	Deleted    uint64
	Pending    uint32 // buffered documents awaiting Flush
	Similarity string
}

// Stats returns a snapshot of the index state.
func (idx *Index) Stats() Stats {
	idx.mu.Lock()
	var pending uint32
	if idx.pending != nil {
		pending = idx.pending.DocCount()
	}
	idx.mu.Unlock()

	ss := idx.state.Load()
	var deleted uint64
	for _, s := range ss.segments {
		deleted += s.deleted()
	}

	return Stats{
		Segments:   len(ss.segments),
		Docs:       ss.liveDocs(),
		Deleted:    deleted,
		Pending:    pending,
		Similarity: ss.manifest.Similarity,
	}
}

// Close releases all segment readers. Buffered documents that were not
// flushed are discarded. Close is idempotent.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.pending = nil

	var firstErr error
	for _, s := range idx.state.Load().segments {
		if err := s.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, r := range idx.retired {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	idx.retired = nil

	return firstErr
}
