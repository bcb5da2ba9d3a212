package infraction

import (
	"context"

	"github.com/google/uuid"
)

// Store persists infraction and annotation records. Interface-driven so
// the submission engine and handlers can run against the in-memory
// implementation in tests and against Postgres in production.
//
// Point lookups return sentinel.ErrNotFound (possibly wrapped) on a miss;
// Find returning an empty slice is a valid empty success, not an error.
type Store interface {
	// Insert persists a new record, assigning its identifier and creation
	// timestamp, and returns the stored record.
	Insert(ctx context.Context, rec Record) (Record, error)
	// FindByID returns the record with the given identifier.
	FindByID(ctx context.Context, id uuid.UUID) (Record, error)
	// FindDuplicate returns one existing record matching the duplicate
	// query shape, or sentinel.ErrNotFound when none matches.
	FindDuplicate(ctx context.Context, f Filter) (Record, error)
	// Find returns all records matching the filter, honoring Limit and
	// Offset. Ordering is storage-determined.
	Find(ctx context.Context, f Filter) ([]Record, error)
	// Count returns the number of records matching the filter.
	Count(ctx context.Context, f Filter) (int64, error)
}
