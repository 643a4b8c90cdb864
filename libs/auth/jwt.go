package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Roles understood by the booking API.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// Claims is the token payload. StaffID is set for staff accounts and links
// the user to a staff member record.
type Claims struct {
	Role    string `json:"role"`
	StaffID string `json:"staff_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller derived from verified claims.
type Actor struct {
	UserID  string
	Role    string
	StaffID string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (c Claims) Actor() Actor {
	role := strings.ToLower(strings.TrimSpace(c.Role))
	if role == "" {
		role = RoleCustomer
	}
	return Actor{UserID: c.Subject, Role: role, StaffID: c.StaffID}
}

// Verifier checks HS256 tokens signed with a shared secret and, when a JWKS
// source is configured, RS256 tokens by key id.
type Verifier struct {
	secret []byte
	jwks   *JWKSClient
	issuer string
	leeway time.Duration
}

type VerifierOptions struct {
	Secret string
	JWKS   *JWKSClient
	Issuer string
	Leeway time.Duration
}

func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	if opts.Secret == "" && opts.JWKS == nil {
		return nil, errors.New("auth: a secret or a jwks source is required")
	}
	return &Verifier{
		secret: []byte(opts.Secret),
		jwks:   opts.JWKS,
		issuer: opts.Issuer,
		leeway: opts.Leeway,
	}, nil
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods()),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, v.keyFunc, parserOpts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}

func (v *Verifier) methods() []string {
	var m []string
	if len(v.secret) > 0 {
		m = append(m, jwt.SigningMethodHS256.Alg())
	}
	if v.jwks != nil {
		m = append(m, jwt.SigningMethodRS256.Alg())
	}
	return m
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.Alg() {
	case jwt.SigningMethodHS256.Alg():
		return v.secret, nil
	case jwt.SigningMethodRS256.Alg():
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.jwks.Get(kid)
	default:
		return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
	}
}

// SignHS256 issues a token for local development and tests.
func SignHS256(actor Actor, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:    actor.Role,
		StaffID: actor.StaffID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
