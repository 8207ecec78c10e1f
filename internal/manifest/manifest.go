// Package manifest tracks the set of live segments. Each state change
// writes a new numbered manifest blob and then atomically repoints the
// CURRENT blob at it, so readers always load a complete, consistent
// segment set and never observe a partial update.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hupe1980/lexgo/blobstore"
	"github.com/hupe1980/lexgo/model"
)

const (
	manifestFileName = "MANIFEST"
	currentFileName  = "CURRENT"

	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1
)

var (
	// ErrNotFound is returned when no manifest exists yet (fresh index).
	ErrNotFound = errors.New("manifest: not found")

	// ErrCorrupt is returned when a manifest blob fails to decode.
	ErrCorrupt = errors.New("manifest: data corruption detected")
)

// Manifest describes the state of the index at a point in time.
type Manifest struct {
	Version       int             `json:"version"`
	ID            uint64          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	Similarity    string          `json:"similarity"`
	NextSegmentID model.SegmentID `json:"next_segment_id"`
	Segments      []SegmentInfo   `json:"segments"`
}

// SegmentInfo describes a single live segment.
type SegmentInfo struct {
	ID       model.SegmentID `json:"id"`
	DocCount uint32          `json:"doc_count"`
	Path     string          `json:"path"`
	// DelGen is the tombstone generation; 0 means no deletions.
	DelGen uint64 `json:"del_gen,omitempty"`
	// NumDeleted is the tombstone cardinality at DelGen.
	NumDeleted uint64 `json:"num_deleted,omitempty"`
}

// DelPath returns the blob name of the tombstone file for DelGen.
func (si SegmentInfo) DelPath() string {
	return fmt.Sprintf("%06d-%06d.del", si.ID, si.DelGen)
}

// SegmentPath returns the blob name for a segment id.
func SegmentPath(id model.SegmentID) string {
	return fmt.Sprintf("%06d.seg", id)
}

// New creates a new empty manifest.
func New(similarity string) *Manifest {
	return &Manifest{
		Version:       CurrentVersion,
		CreatedAt:     time.Now().UTC(),
		Similarity:    similarity,
		NextSegmentID: 1,
	}
}

// Clone returns a deep copy, for copy-on-write updates.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Segments = append([]SegmentInfo(nil), m.Segments...)
	return &c
}

// TotalDocs returns the document count across all segments, including
// tombstoned documents.
func (m *Manifest) TotalDocs() uint64 {
	var n uint64
	for _, si := range m.Segments {
		n += uint64(si.DocCount)
	}
	return n
}

// Store manages manifest blobs and atomic CURRENT updates.
type Store struct {
	store blobstore.BlobStore
	mu    sync.Mutex
}

// NewStore creates a manifest store on top of a blob store.
func NewStore(store blobstore.BlobStore) *Store {
	return &Store{store: store}
}

// Load loads the manifest CURRENT points at. A missing CURRENT blob
// yields ErrNotFound so callers can initialize a fresh index.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.store.Open(ctx, currentFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	name, err := blobstore.ReadAll(b)
	if cerr := b.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	return s.loadFile(ctx, string(name))
}

func (s *Store) loadFile(ctx context.Context, name string) (*Manifest, error) {
	b, err := s.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", name, err)
	}
	defer b.Close()

	content, err := blobstore.ReadAll(b)
	if err != nil {
		return nil, err
	}

	m := &Manifest{}
	if err := json.Unmarshal(content, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported manifest version %d", ErrCorrupt, m.Version)
	}
	return m, nil
}

// Save writes m as a new numbered manifest blob and repoints CURRENT.
// The manifest id is incremented; m is updated in place.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	m.ID++
	m.CreatedAt = time.Now().UTC()

	name := fmt.Sprintf("%s-%06d.json", manifestFileName, m.ID)

	content, err := json.Marshal(m)
	if err != nil {
		return err
	}

	if err := s.store.Put(ctx, name, content); err != nil {
		return err
	}
	// Overwriting CURRENT is the commit point: local stores rename,
	// object stores overwrite with strong consistency.
	return s.store.Put(ctx, currentFileName, []byte(name))
}

// DeleteVersion removes an old manifest blob. Best-effort cleanup; the
// caller decides which versions are retired.
func (s *Store) DeleteVersion(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Delete(ctx, fmt.Sprintf("%s-%06d.json", manifestFileName, id))
}
