package lexgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lexgo/internal/manifest"
	"github.com/hupe1980/lexgo/internal/postings"
	"github.com/hupe1980/lexgo/internal/segment"
	"github.com/hupe1980/lexgo/internal/termdict"
	"github.com/hupe1980/lexgo/internal/tombstone"
)

var (
	// ErrNotFound is returned when an item is not found.
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned when stored index data fails validation
	// (checksum mismatch, malformed postings, truncated blobs).
	ErrCorrupt = errors.New("data corruption detected")

	// ErrInvalidState is returned when an operation is not valid in the
	// current lifecycle state (e.g. adding documents after a flush).
	ErrInvalidState = errors.New("invalid state")

	// ErrClosed is returned when the index has been closed.
	ErrClosed = errors.New("index is closed")
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, manifest.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Corruption unification: every codec layer reports its own
	// sentinel so the cause stays visible through errors.Unwrap.
	if errors.Is(err, segment.ErrCorrupt) ||
		errors.Is(err, segment.ErrIncompatibleFormat) ||
		errors.Is(err, postings.ErrCorrupt) ||
		errors.Is(err, termdict.ErrCorrupt) ||
		errors.Is(err, tombstone.ErrCorrupt) ||
		errors.Is(err, manifest.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	if errors.Is(err, segment.ErrInvalidState) {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	return err
}
