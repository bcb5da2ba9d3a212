package infraction

import (
	"time"

	"github.com/google/uuid"

	dErrors "mimir/pkg/domain-errors"
)

// RecordType separates deduplicated infraction events from plain
// annotations, which are always persisted as-is.
type RecordType string

const (
	RecordTypeInfraction  RecordType = "INFRACTION"
	RecordTypeNote        RecordType = "NOTE"
	RecordTypeNCMECReport RecordType = "NCMEC_REPORT"
)

// InfractionType classifies the action taken against the offending entity.
type InfractionType string

const (
	InfractionContentRemoved         InfractionType = "CONTENT_REMOVED"
	InfractionCustomerWarning        InfractionType = "CUSTOMER_WARNING"
	InfractionExtensiveCompromise    InfractionType = "EXTENSIVE_COMPROMISE"
	InfractionIntentionallyMalicious InfractionType = "INTENTIONALLY_MALICIOUS"
	InfractionMalwareScannerNotice   InfractionType = "MALWARE_SCANNER_NOTICE"
	InfractionManualNote             InfractionType = "MANUAL_NOTE"
	InfractionNCMECReportSubmitted   InfractionType = "NCMEC_REPORT_SUBMITTED"
	InfractionRepeatOffender         InfractionType = "REPEAT_OFFENDER"
	InfractionShopperCompromise      InfractionType = "SHOPPER_COMPROMISE"
	InfractionSuspended              InfractionType = "SUSPENDED"
	InfractionSuspendedCSAM          InfractionType = "SUSPENDED_CSAM"
	InfractionUsergenWarning         InfractionType = "USERGEN_WARNING"
)

// AbuseType classifies the kind of abuse that was observed.
type AbuseType string

const (
	AbuseARecord      AbuseType = "A_RECORD"
	AbuseChildAbuse   AbuseType = "CHILD_ABUSE"
	AbuseContent      AbuseType = "CONTENT"
	AbuseFraudWire    AbuseType = "FRAUD_WIRE"
	AbuseIPBlock      AbuseType = "IP_BLOCK"
	AbuseMalware      AbuseType = "MALWARE"
	AbuseNetworkAbuse AbuseType = "NETWORK_ABUSE"
	AbusePhishing     AbuseType = "PHISHING"
	AbuseSpam         AbuseType = "SPAM"
)

// HostedStatus says whether the offending domain is hosted with us or
// merely registered through us.
type HostedStatus string

const (
	HostedStatusHosted     HostedStatus = "HOSTED"
	HostedStatusRegistered HostedStatus = "REGISTERED"
)

var (
	validInfractionTypes = map[InfractionType]struct{}{
		InfractionContentRemoved: {}, InfractionCustomerWarning: {},
		InfractionExtensiveCompromise: {}, InfractionIntentionallyMalicious: {},
		InfractionMalwareScannerNotice: {}, InfractionManualNote: {},
		InfractionNCMECReportSubmitted: {}, InfractionRepeatOffender: {},
		InfractionShopperCompromise: {}, InfractionSuspended: {},
		InfractionSuspendedCSAM: {}, InfractionUsergenWarning: {},
	}
	validAbuseTypes = map[AbuseType]struct{}{
		AbuseARecord: {}, AbuseChildAbuse: {}, AbuseContent: {},
		AbuseFraudWire: {}, AbuseIPBlock: {}, AbuseMalware: {},
		AbuseNetworkAbuse: {}, AbusePhishing: {}, AbuseSpam: {},
	}
	validHostedStatuses = map[HostedStatus]struct{}{
		HostedStatusHosted: {}, HostedStatusRegistered: {},
	}
)

// ParseRecordType validates a record type supplied by a caller.
func ParseRecordType(s string) (RecordType, error) {
	switch RecordType(s) {
	case RecordTypeInfraction, RecordTypeNote, RecordTypeNCMECReport:
		return RecordType(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "recordType "+s+" is not a known type")
}

// ParseInfractionType validates an infraction type supplied by a caller.
func ParseInfractionType(s string) (InfractionType, error) {
	if _, ok := validInfractionTypes[InfractionType(s)]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "infractionType "+s+" is not a known type")
	}
	return InfractionType(s), nil
}

// ParseAbuseType validates an abuse type supplied by a caller.
func ParseAbuseType(s string) (AbuseType, error) {
	if _, ok := validAbuseTypes[AbuseType(s)]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "abuseType "+s+" is not a known type")
	}
	return AbuseType(s), nil
}

// Record is a persisted infraction or annotation. Once stored it is
// immutable: the ID is assigned exactly once at first successful insert
// and never reassigned on a duplicate hit.
type Record struct {
	ID               uuid.UUID
	RecordType       RecordType
	InfractionType   InfractionType
	AbuseType        AbuseType
	SourceDomainOrIP string
	SourceSubDomain  string
	HostedStatus     HostedStatus
	DomainID         string
	HostingGUID      string
	ShopperID        string
	TicketID         string
	Note             string
	NCMECReportID    string
	CreatedAt        time.Time
}

// ValidateInfraction checks the identifying fields a deduplicated
// infraction must carry. Validation happens before the lock is taken so a
// malformed record never costs a lock acquisition.
func ValidateInfraction(r Record) error {
	if r.RecordType != RecordTypeInfraction {
		return dErrors.New(dErrors.CodeBadRequest, "recordType must be "+string(RecordTypeInfraction))
	}
	if r.SourceDomainOrIP == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "sourceDomainOrIp is required")
	}
	if r.ShopperID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "shopperId is required")
	}
	if _, ok := validInfractionTypes[r.InfractionType]; !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "infractionType is missing or not a known type")
	}
	if _, ok := validAbuseTypes[r.AbuseType]; !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "abuseType is missing or not a known type")
	}
	if _, ok := validHostedStatuses[r.HostedStatus]; !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "hostedStatus must be HOSTED or REGISTERED")
	}
	return nil
}

// ValidateNonInfraction checks an annotation record (note or external
// report). These skip the dedup protocol entirely.
func ValidateNonInfraction(r Record) error {
	if r.RecordType != RecordTypeNote && r.RecordType != RecordTypeNCMECReport {
		return dErrors.New(dErrors.CodeBadRequest, "recordType must be NOTE or NCMEC_REPORT")
	}
	if r.SourceDomainOrIP == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "sourceDomainOrIp is required")
	}
	if r.ShopperID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "shopperId is required")
	}
	if _, ok := validAbuseTypes[r.AbuseType]; !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "abuseType is missing or not a known type")
	}
	if r.InfractionType != "" {
		if _, ok := validInfractionTypes[r.InfractionType]; !ok {
			return dErrors.New(dErrors.CodeInvalidInput, "infractionType is not a known type")
		}
	}
	return nil
}

// createdDateFormat matches the original API's stringified timestamps,
// e.g. "2019-02-17 02:29:08.929Z".
const createdDateFormat = "2006-01-02 15:04:05.000Z"

// View is the public representation of a record: the internal identifier
// renamed to infractionId and the creation timestamp stringified.
type View struct {
	InfractionID     string `json:"infractionId"`
	RecordType       string `json:"recordType"`
	InfractionType   string `json:"infractionType,omitempty"`
	AbuseType        string `json:"abuseType,omitempty"`
	SourceDomainOrIP string `json:"sourceDomainOrIp"`
	SourceSubDomain  string `json:"sourceSubDomain,omitempty"`
	HostedStatus     string `json:"hostedStatus,omitempty"`
	DomainID         string `json:"domainId,omitempty"`
	HostingGUID      string `json:"hostingGuid,omitempty"`
	ShopperID        string `json:"shopperId"`
	TicketID         string `json:"ticketId,omitempty"`
	Note             string `json:"note,omitempty"`
	NCMECReportID    string `json:"ncmecReportID,omitempty"`
	CreatedDate      string `json:"createdDate"`
}

// View converts the record to its public shape.
func (r Record) View() View {
	return View{
		InfractionID:     r.ID.String(),
		RecordType:       string(r.RecordType),
		InfractionType:   string(r.InfractionType),
		AbuseType:        string(r.AbuseType),
		SourceDomainOrIP: r.SourceDomainOrIP,
		SourceSubDomain:  r.SourceSubDomain,
		HostedStatus:     string(r.HostedStatus),
		DomainID:         r.DomainID,
		HostingGUID:      r.HostingGUID,
		ShopperID:        r.ShopperID,
		TicketID:         r.TicketID,
		Note:             r.Note,
		NCMECReportID:    r.NCMECReportID,
		CreatedDate:      r.CreatedAt.UTC().Format(createdDateFormat),
	}
}
