package infraction

import (
	"slices"
	"strings"
	"time"
)

// Filter is the read path's query contract. Zero-valued fields are
// unconstrained; list fields use membership semantics. HostedStatus is
// deliberately absent: it is required on writes but is not a valid read
// filter, and carrying it into the duplicate lookup would make every
// lookup miss.
type Filter struct {
	SourceDomainOrIP string
	SourceSubDomain  string
	HostingGUID      string
	DomainID         string
	ShopperID        string
	TicketID         string
	InfractionTypes  []InfractionType
	AbuseTypes       []AbuseType
	RecordTypes      []RecordType
	StartDate        time.Time
	EndDate          time.Time
	// Note matches exactly; the duplicate lookup uses it. NoteContains is
	// the read path's substring search.
	Note          string
	NoteContains  string
	NCMECReportID string
	Limit         int
	Offset        int
}

// DuplicateFilter builds the duplicate-lookup query shape from a record
// about to be written: every submitted identifying field constrains the
// match, the singular infractionType and abuseType become one-element
// lists (the read contract takes lists), and since bounds the trailing
// dedup window.
func DuplicateFilter(r Record, since time.Time) Filter {
	f := Filter{
		SourceDomainOrIP: r.SourceDomainOrIP,
		SourceSubDomain:  r.SourceSubDomain,
		HostingGUID:      r.HostingGUID,
		DomainID:         r.DomainID,
		ShopperID:        r.ShopperID,
		TicketID:         r.TicketID,
		Note:             r.Note,
		NCMECReportID:    r.NCMECReportID,
		StartDate:        since,
	}
	if r.RecordType != "" {
		f.RecordTypes = []RecordType{r.RecordType}
	}
	if r.InfractionType != "" {
		f.InfractionTypes = []InfractionType{r.InfractionType}
	}
	if r.AbuseType != "" {
		f.AbuseTypes = []AbuseType{r.AbuseType}
	}
	return f
}

// Empty reports whether the filter constrains nothing. Count queries
// reject empty filters instead of scanning the whole collection.
func (f Filter) Empty() bool {
	return f.SourceDomainOrIP == "" && f.SourceSubDomain == "" &&
		f.HostingGUID == "" && f.DomainID == "" && f.ShopperID == "" &&
		f.TicketID == "" && len(f.InfractionTypes) == 0 &&
		len(f.AbuseTypes) == 0 && len(f.RecordTypes) == 0 &&
		f.StartDate.IsZero() && f.EndDate.IsZero() &&
		f.Note == "" && f.NoteContains == "" && f.NCMECReportID == ""
}

// Matches reports whether rec satisfies every constraint in the filter.
// Shared by the in-memory store; the Postgres store compiles the same
// semantics to SQL.
func (f Filter) Matches(rec Record) bool {
	if f.SourceDomainOrIP != "" && rec.SourceDomainOrIP != f.SourceDomainOrIP {
		return false
	}
	if f.SourceSubDomain != "" && rec.SourceSubDomain != f.SourceSubDomain {
		return false
	}
	if f.HostingGUID != "" && rec.HostingGUID != f.HostingGUID {
		return false
	}
	if f.DomainID != "" && rec.DomainID != f.DomainID {
		return false
	}
	if f.ShopperID != "" && rec.ShopperID != f.ShopperID {
		return false
	}
	if f.TicketID != "" && rec.TicketID != f.TicketID {
		return false
	}
	if f.Note != "" && rec.Note != f.Note {
		return false
	}
	if f.NoteContains != "" && !strings.Contains(rec.Note, f.NoteContains) {
		return false
	}
	if f.NCMECReportID != "" && rec.NCMECReportID != f.NCMECReportID {
		return false
	}
	if len(f.InfractionTypes) > 0 && !slices.Contains(f.InfractionTypes, rec.InfractionType) {
		return false
	}
	if len(f.AbuseTypes) > 0 && !slices.Contains(f.AbuseTypes, rec.AbuseType) {
		return false
	}
	if len(f.RecordTypes) > 0 && !slices.Contains(f.RecordTypes, rec.RecordType) {
		return false
	}
	if !f.StartDate.IsZero() && rec.CreatedAt.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && rec.CreatedAt.After(f.EndDate) {
		return false
	}
	return true
}
