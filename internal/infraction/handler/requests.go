package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"mimir/internal/infraction"
	dErrors "mimir/pkg/domain-errors"
)

// SubmitInfractionRequest is the HTTP request body for POST /v1/infractions.
type SubmitInfractionRequest struct {
	InfractionType   string `json:"infractionType"`
	AbuseType        string `json:"abuseType"`
	SourceDomainOrIP string `json:"sourceDomainOrIp"`
	SourceSubDomain  string `json:"sourceSubDomain"`
	HostedStatus     string `json:"hostedStatus"`
	DomainID         string `json:"domainId"`
	HostingGUID      string `json:"hostingGuid"`
	ShopperID        string `json:"shopperId"`
	TicketID         string `json:"ticketId"`
	Note             string `json:"note"`
}

// Validate normalizes the request. Field-level rules live with the
// domain validators so the same checks cover every entry point.
func (r *SubmitInfractionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.InfractionType = strings.TrimSpace(r.InfractionType)
	r.AbuseType = strings.TrimSpace(r.AbuseType)
	r.SourceDomainOrIP = strings.TrimSpace(r.SourceDomainOrIP)
	r.SourceSubDomain = strings.TrimSpace(r.SourceSubDomain)
	r.HostedStatus = strings.TrimSpace(r.HostedStatus)
	r.DomainID = strings.TrimSpace(r.DomainID)
	r.HostingGUID = strings.TrimSpace(r.HostingGUID)
	r.ShopperID = strings.TrimSpace(r.ShopperID)
	r.TicketID = strings.TrimSpace(r.TicketID)
	return nil
}

// Record converts the request to a domain record.
func (r *SubmitInfractionRequest) Record() infraction.Record {
	return infraction.Record{
		RecordType:       infraction.RecordTypeInfraction,
		InfractionType:   infraction.InfractionType(r.InfractionType),
		AbuseType:        infraction.AbuseType(r.AbuseType),
		SourceDomainOrIP: r.SourceDomainOrIP,
		SourceSubDomain:  r.SourceSubDomain,
		HostedStatus:     infraction.HostedStatus(r.HostedStatus),
		DomainID:         r.DomainID,
		HostingGUID:      r.HostingGUID,
		ShopperID:        r.ShopperID,
		TicketID:         r.TicketID,
		Note:             r.Note,
	}
}

// SubmitNonInfractionRequest is the HTTP request body for
// POST /v1/non-infractions.
type SubmitNonInfractionRequest struct {
	RecordType       string `json:"recordType"`
	InfractionType   string `json:"infractionType"`
	AbuseType        string `json:"abuseType"`
	SourceDomainOrIP string `json:"sourceDomainOrIp"`
	SourceSubDomain  string `json:"sourceSubDomain"`
	DomainID         string `json:"domainId"`
	HostingGUID      string `json:"hostingGuid"`
	ShopperID        string `json:"shopperId"`
	TicketID         string `json:"ticketId"`
	Note             string `json:"note"`
	NCMECReportID    string `json:"ncmecReportID"`
}

func (r *SubmitNonInfractionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.RecordType = strings.TrimSpace(r.RecordType)
	r.InfractionType = strings.TrimSpace(r.InfractionType)
	r.AbuseType = strings.TrimSpace(r.AbuseType)
	r.SourceDomainOrIP = strings.TrimSpace(r.SourceDomainOrIP)
	r.SourceSubDomain = strings.TrimSpace(r.SourceSubDomain)
	r.DomainID = strings.TrimSpace(r.DomainID)
	r.HostingGUID = strings.TrimSpace(r.HostingGUID)
	r.ShopperID = strings.TrimSpace(r.ShopperID)
	r.TicketID = strings.TrimSpace(r.TicketID)
	r.NCMECReportID = strings.TrimSpace(r.NCMECReportID)
	return nil
}

func (r *SubmitNonInfractionRequest) Record() infraction.Record {
	return infraction.Record{
		RecordType:       infraction.RecordType(r.RecordType),
		InfractionType:   infraction.InfractionType(r.InfractionType),
		AbuseType:        infraction.AbuseType(r.AbuseType),
		SourceDomainOrIP: r.SourceDomainOrIP,
		SourceSubDomain:  r.SourceSubDomain,
		DomainID:         r.DomainID,
		HostingGUID:      r.HostingGUID,
		ShopperID:        r.ShopperID,
		TicketID:         r.TicketID,
		Note:             r.Note,
		NCMECReportID:    r.NCMECReportID,
	}
}

// dateLayouts are the accepted formats for startDate and endDate query
// parameters.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// parseFilter builds a read filter from query parameters. List
// parameters accept both repetition and comma separation.
func parseFilter(r *http.Request) (infraction.Filter, error) {
	q := r.URL.Query()
	f := infraction.Filter{
		SourceDomainOrIP: strings.TrimSpace(q.Get("sourceDomainOrIp")),
		SourceSubDomain:  strings.TrimSpace(q.Get("sourceSubDomain")),
		HostingGUID:      strings.TrimSpace(q.Get("hostingGuid")),
		DomainID:         strings.TrimSpace(q.Get("domainId")),
		ShopperID:        strings.TrimSpace(q.Get("shopperId")),
		TicketID:         strings.TrimSpace(q.Get("ticketId")),
		NoteContains:     strings.TrimSpace(q.Get("note")),
		NCMECReportID:    strings.TrimSpace(q.Get("ncmecReportID")),
	}

	for _, raw := range listParam(q["infractionTypes"]) {
		it, err := infraction.ParseInfractionType(raw)
		if err != nil {
			return infraction.Filter{}, err
		}
		f.InfractionTypes = append(f.InfractionTypes, it)
	}
	for _, raw := range listParam(q["abuseTypes"]) {
		at, err := infraction.ParseAbuseType(raw)
		if err != nil {
			return infraction.Filter{}, err
		}
		f.AbuseTypes = append(f.AbuseTypes, at)
	}
	for _, raw := range listParam(q["recordTypes"]) {
		rt, err := infraction.ParseRecordType(raw)
		if err != nil {
			return infraction.Filter{}, err
		}
		f.RecordTypes = append(f.RecordTypes, rt)
	}

	var err error
	if f.StartDate, err = parseDate(q.Get("startDate")); err != nil {
		return infraction.Filter{}, err
	}
	if f.EndDate, err = parseDate(q.Get("endDate")); err != nil {
		return infraction.Filter{}, err
	}
	if f.Limit, err = parseCount(q.Get("limit")); err != nil {
		return infraction.Filter{}, err
	}
	if f.Offset, err = parseCount(q.Get("offset")); err != nil {
		return infraction.Filter{}, err
	}
	return f, nil
}

func listParam(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "date "+value+" is not in a supported format")
}

func parseCount(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit and offset must be non-negative integers")
	}
	return n, nil
}
