package infraction

import "strings"

const keySeparator = ","

// DeriveKey computes the composite key used to scope the submission lock
// and the duplicate lookup. It is a pure function of exactly five fields:
// domain (subdomain when present, else the domain or IP), shopper id, a
// disambiguator, infraction type, and abuse type, joined in that fixed
// order. Missing fields contribute empty strings; no input ever fails.
//
// The disambiguator prefers the hosting account GUID over the domain id
// when both are present. Hosting infractions are scoped to the account,
// which is the finer-grained entity.
func DeriveKey(r Record) string {
	domain := r.SourceSubDomain
	if domain == "" {
		domain = r.SourceDomainOrIP
	}

	disambiguator := r.HostingGUID
	if disambiguator == "" {
		disambiguator = r.DomainID
	}

	return strings.Join([]string{
		domain,
		r.ShopperID,
		disambiguator,
		string(r.InfractionType),
		string(r.AbuseType),
	}, keySeparator)
}
