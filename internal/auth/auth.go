package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	dErrors "mimir/pkg/domain-errors"
	"mimir/pkg/platform/secrets"
)

// PrincipalType distinguishes the two credential shapes the directory
// issues: employee tokens carrying group claims and service tokens minted
// against a client certificate.
type PrincipalType string

const (
	PrincipalTypeGroups PrincipalType = "jomax"
	PrincipalTypeCert   PrincipalType = "cert"
	PrincipalTypeAPIKey PrincipalType = "api_key"
)

// Principal is a verified caller identity. Authorization happens after
// verification, against the configured groups or CN allowlist.
type Principal struct {
	Subject    string
	Type       PrincipalType
	Groups     []string
	CommonName string
}

// Claims is the JWT claim set the directory puts on bearer tokens.
type Claims struct {
	Typ    string   `json:"typ"`
	Groups []string `json:"groups,omitempty"`
	CN     string   `json:"cn,omitempty"`
	jwt.RegisteredClaims
}

// Config carries the verifier's inputs; zero SigningKey disables it.
type Config struct {
	SigningKey   string
	AuthGroups   []string
	CNAllowlist  []string
	APIKeyHashes []string
}

// Verifier validates bearer credentials and authorizes the resulting
// principal. It is constructor-injected wherever auth is needed; there is
// no package-level instance.
type Verifier struct {
	signingKey   []byte
	authGroups   map[string]struct{}
	cnAllowlist  map[string]struct{}
	apiKeyHashes []string
}

func NewVerifier(cfg Config) *Verifier {
	v := &Verifier{
		signingKey:   []byte(cfg.SigningKey),
		authGroups:   make(map[string]struct{}, len(cfg.AuthGroups)),
		cnAllowlist:  make(map[string]struct{}, len(cfg.CNAllowlist)),
		apiKeyHashes: cfg.APIKeyHashes,
	}
	for _, g := range cfg.AuthGroups {
		v.authGroups[g] = struct{}{}
	}
	for _, cn := range cfg.CNAllowlist {
		v.cnAllowlist[cn] = struct{}{}
	}
	return v
}

// Enabled reports whether token verification is configured. Disabled
// verification passes every request through, for local development only.
func (v *Verifier) Enabled() bool {
	return len(v.signingKey) > 0
}

// Verify parses and validates a bearer token, returning the principal it
// asserts. Signature, expiry, and claim-shape failures all surface as
// CodeUnauthorized.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	switch PrincipalType(claims.Typ) {
	case PrincipalTypeGroups:
		return &Principal{
			Subject: claims.Subject,
			Type:    PrincipalTypeGroups,
			Groups:  claims.Groups,
		}, nil
	case PrincipalTypeCert:
		return &Principal{
			Subject:    claims.Subject,
			Type:       PrincipalTypeCert,
			CommonName: claims.CN,
		}, nil
	default:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unsupported token type")
	}
}

// VerifyAPIKey checks a raw service API key against the configured bcrypt
// hashes. Keys bypass the group check since issuing one is itself the
// authorization decision.
func (v *Verifier) VerifyAPIKey(key string) (*Principal, error) {
	for _, hash := range v.apiKeyHashes {
		if err := secrets.Verify(key, hash); err == nil {
			return &Principal{Type: PrincipalTypeAPIKey, Subject: "api-key"}, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown api key")
}

// Authorize checks the verified principal against the configured policy:
// group principals need at least one approved group, cert principals need
// an allowlisted common name.
func (v *Verifier) Authorize(p *Principal) error {
	switch p.Type {
	case PrincipalTypeGroups:
		for _, g := range p.Groups {
			if _, ok := v.authGroups[g]; ok {
				return nil
			}
		}
	case PrincipalTypeCert:
		if _, ok := v.cnAllowlist[p.CommonName]; ok {
			return nil
		}
	case PrincipalTypeAPIKey:
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller is not allowed access")
}
