package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mimir/internal/infraction"
	infractionmetrics "mimir/internal/infraction/metrics"
	"mimir/internal/lock"
	dErrors "mimir/pkg/domain-errors"
	"mimir/pkg/platform/audit"
	"mimir/pkg/platform/sentinel"
)

// LockTTL bounds how long a submission can hold its composite-key lock.
// A writer that crashes mid-submission blocks the key for at most this
// long before the lease expires on its own.
const LockTTL = 10 * time.Second

// DefaultDedupWindow bounds how far back the duplicate lookup reaches.
const DefaultDedupWindow = 24 * time.Hour

// defaultHistoryMonths is how far back a history query reaches when the
// caller gives no start date.
const defaultHistoryMonths = 6

const defaultPageSize = 25

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the write and read engine for infraction records. Writes to
// the same composite key serialize behind a distributed lock; reads never
// take locks.
type Service struct {
	store       infraction.Store
	locker      lock.Locker
	logger      *slog.Logger
	audit       AuditPublisher
	metrics     *infractionmetrics.Metrics
	dedupWindow time.Duration
	clock       func() time.Time
	tracer      trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m *infractionmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDedupWindow overrides how far back a submission looks for an
// existing duplicate.
func WithDedupWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.dedupWindow = window
		}
	}
}

// WithClock injects a time source for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(store infraction.Store, locker lock.Locker, opts ...Option) *Service {
	s := &Service{
		store:       store,
		locker:      locker,
		logger:      slog.Default(),
		dedupWindow: DefaultDedupWindow,
		clock:       time.Now,
		tracer:      otel.Tracer("mimir/infraction"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInfraction records an infraction, collapsing duplicates onto the
// existing record. The returned bool is true when a new record was
// created and false when the submission matched an existing one.
//
// Protocol: validate, derive the composite key, acquire the key lock,
// look for a duplicate inside the dedup window, insert only on a miss.
// Validation runs before the lock so malformed input never costs a lock
// acquisition.
func (s *Service) SubmitInfraction(ctx context.Context, rec infraction.Record) (infraction.Record, bool, error) {
	ctx, span := s.tracer.Start(ctx, "infraction.submit")
	defer span.End()

	start := s.clock()

	if err := infraction.ValidateInfraction(rec); err != nil {
		s.incrementSubmissions("invalid")
		return infraction.Record{}, false, err
	}

	key := infraction.DeriveKey(rec)
	span.SetAttributes(attribute.String("infraction.key", key))

	lease, err := s.locker.Acquire(ctx, key, LockTTL)
	if err != nil {
		s.incrementSubmissions("lock_failed")
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionLockAcquisitionMiss,
			ShopperID:    rec.ShopperID,
			CompositeKey: key,
		})
		s.logger.WarnContext(ctx, "submission lock not acquired", "key", key, "error", err)
		return infraction.Record{}, false, dErrors.Wrap(dErrors.CodeLockContention,
			"another submission for this infraction is in progress", err)
	}
	defer func() {
		if err := lease.Release(ctx); err != nil {
			s.logger.WarnContext(ctx, "submission lock release failed", "key", key, "error", err)
		}
	}()

	since := start.Add(-s.dedupWindow)
	existing, err := s.store.FindDuplicate(ctx, infraction.DuplicateFilter(rec, since))
	if err == nil {
		s.incrementSubmissions("duplicate")
		if s.metrics != nil {
			s.metrics.IncrementDuplicateHits()
		}
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionInfractionDuplicate,
			RecordID:     existing.ID,
			ShopperID:    existing.ShopperID,
			CompositeKey: key,
		})
		s.observeSubmission(start)
		return existing, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		s.incrementSubmissions("storage_error")
		return infraction.Record{}, false, dErrors.Wrap(dErrors.CodeUnavailable,
			"duplicate lookup failed", err)
	}

	stored, err := s.store.Insert(ctx, rec)
	if err != nil {
		s.incrementSubmissions("storage_error")
		return infraction.Record{}, false, dErrors.Wrap(dErrors.CodeUnavailable,
			"failed to persist infraction", err)
	}

	s.incrementSubmissions("created")
	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionInfractionRecorded,
		RecordID:     stored.ID,
		ShopperID:    stored.ShopperID,
		CompositeKey: key,
	})
	s.logger.InfoContext(ctx, "infraction recorded",
		"infraction_id", stored.ID, "shopper_id", stored.ShopperID, "key", key)
	s.observeSubmission(start)
	return stored, true, nil
}

// SubmitNonInfraction records a note or external report. Annotations skip
// the lock and duplicate protocol entirely and are always persisted.
func (s *Service) SubmitNonInfraction(ctx context.Context, rec infraction.Record) (infraction.Record, error) {
	ctx, span := s.tracer.Start(ctx, "infraction.submit_annotation")
	defer span.End()

	if err := infraction.ValidateNonInfraction(rec); err != nil {
		return infraction.Record{}, err
	}

	stored, err := s.store.Insert(ctx, rec)
	if err != nil {
		return infraction.Record{}, dErrors.Wrap(dErrors.CodeUnavailable,
			"failed to persist record", err)
	}

	action := audit.ActionNoteRecorded
	if stored.RecordType == infraction.RecordTypeNCMECReport {
		action = audit.ActionNCMECReportRecorded
	}
	s.emitAudit(ctx, audit.Event{
		Action:    action,
		RecordID:  stored.ID,
		ShopperID: stored.ShopperID,
	})
	s.logger.InfoContext(ctx, "annotation recorded",
		"infraction_id", stored.ID, "record_type", stored.RecordType)
	return stored, nil
}

// GetByID returns a single record by its identifier.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (infraction.Record, error) {
	rec, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return infraction.Record{}, dErrors.New(dErrors.CodeNotFound, "infraction not found")
	}
	if err != nil {
		return infraction.Record{}, dErrors.Wrap(dErrors.CodeUnavailable, "lookup failed", err)
	}
	return rec, nil
}

// ListHistory returns records matching the filter, applying the default
// time window and page size when the caller leaves them unset. An empty
// result is a valid empty success.
func (s *Service) ListHistory(ctx context.Context, f infraction.Filter) ([]infraction.Record, error) {
	ctx, span := s.tracer.Start(ctx, "infraction.history")
	defer span.End()

	now := s.clock()
	if f.StartDate.IsZero() {
		f.StartDate = now.AddDate(0, -defaultHistoryMonths, 0)
	}
	if f.EndDate.IsZero() {
		f.EndDate = now
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}

	records, err := s.store.Find(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "history query failed", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementHistoryQueries()
	}
	return records, nil
}

// Count returns how many records match the filter. At least one
// constraint is required so a bare query cannot scan the whole table.
func (s *Service) Count(ctx context.Context, f infraction.Filter) (int64, error) {
	if f.Empty() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "at least one filter parameter is required")
	}
	n, err := s.store.Count(ctx, f)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeUnavailable, "count query failed", err)
	}
	return n, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(ctx, event)
}

func (s *Service) incrementSubmissions(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementSubmissions(outcome)
	}
}

func (s *Service) observeSubmission(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSubmission(s.clock().Sub(start).Seconds())
	}
}
