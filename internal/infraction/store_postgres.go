package infraction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"mimir/pkg/platform/sentinel"
)

// PostgresStore persists records in the infraction_records table. Optional
// fields are stored as empty strings rather than NULLs so the filter
// semantics stay identical to the in-memory store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `id, record_type, infraction_type, abuse_type,
	source_domain_or_ip, source_sub_domain, hosted_status, domain_id,
	hosting_guid, shopper_id, ticket_id, note, ncmec_report_id, created_at`

func (s *PostgresStore) Insert(ctx context.Context, rec Record) (Record, error) {
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO infraction_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.RecordType),
		string(rec.InfractionType),
		string(rec.AbuseType),
		rec.SourceDomainOrIP,
		rec.SourceSubDomain,
		string(rec.HostedStatus),
		rec.DomainID,
		rec.HostingGUID,
		rec.ShopperID,
		rec.TicketID,
		rec.Note,
		rec.NCMECReportID,
		rec.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert infraction record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM infraction_records WHERE id = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("find %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("find %s: %w", id, err)
	}
	return rec, nil
}

func (s *PostgresStore) FindDuplicate(ctx context.Context, f Filter) (Record, error) {
	where, args := buildWhere(f)
	query := `SELECT ` + recordColumns + ` FROM infraction_records` + where + ` LIMIT 1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("find duplicate: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("find duplicate: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Find(ctx context.Context, f Filter) ([]Record, error) {
	where, args := buildWhere(f)
	query := `SELECT ` + recordColumns + ` FROM infraction_records` + where +
		` ORDER BY created_at, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find infraction records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan infraction record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find infraction records: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := buildWhere(f)
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM infraction_records`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count infraction records: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var recordType, infractionType, abuseType, hostedStatus string
	err := row.Scan(
		&rec.ID,
		&recordType,
		&infractionType,
		&abuseType,
		&rec.SourceDomainOrIP,
		&rec.SourceSubDomain,
		&hostedStatus,
		&rec.DomainID,
		&rec.HostingGUID,
		&rec.ShopperID,
		&rec.TicketID,
		&rec.Note,
		&rec.NCMECReportID,
		&rec.CreatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.RecordType = RecordType(recordType)
	rec.InfractionType = InfractionType(infractionType)
	rec.AbuseType = AbuseType(abuseType)
	rec.HostedStatus = HostedStatus(hostedStatus)
	return rec, nil
}

// buildWhere compiles a Filter to a WHERE clause with positional args.
// Semantics match Filter.Matches exactly.
func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.SourceDomainOrIP != "" {
		add("source_domain_or_ip = $%d", f.SourceDomainOrIP)
	}
	if f.SourceSubDomain != "" {
		add("source_sub_domain = $%d", f.SourceSubDomain)
	}
	if f.HostingGUID != "" {
		add("hosting_guid = $%d", f.HostingGUID)
	}
	if f.DomainID != "" {
		add("domain_id = $%d", f.DomainID)
	}
	if f.ShopperID != "" {
		add("shopper_id = $%d", f.ShopperID)
	}
	if f.TicketID != "" {
		add("ticket_id = $%d", f.TicketID)
	}
	if f.Note != "" {
		add("note = $%d", f.Note)
	}
	if f.NoteContains != "" {
		add("note ILIKE $%d", "%"+f.NoteContains+"%")
	}
	if f.NCMECReportID != "" {
		add("ncmec_report_id = $%d", f.NCMECReportID)
	}
	if len(f.InfractionTypes) > 0 {
		add("infraction_type = ANY($%d)", pq.Array(asStrings(f.InfractionTypes)))
	}
	if len(f.AbuseTypes) > 0 {
		add("abuse_type = ANY($%d)", pq.Array(asStrings(f.AbuseTypes)))
	}
	if len(f.RecordTypes) > 0 {
		add("record_type = ANY($%d)", pq.Array(asStrings(f.RecordTypes)))
	}
	if !f.StartDate.IsZero() {
		add("created_at >= $%d", f.StartDate)
	}
	if !f.EndDate.IsZero() {
		add("created_at <= $%d", f.EndDate)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func asStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
