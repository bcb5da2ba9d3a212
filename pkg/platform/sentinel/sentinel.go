package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the lock provider
// return these (optionally wrapped) so services can translate them into
// coded domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrLockNotAcquired: the per-key lock was held elsewhere or the
//   coordination store refused the acquisition
// - ErrUnavailable: store or coordination backend temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound        = errors.New("not found")
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrUnavailable     = errors.New("unavailable")
)
