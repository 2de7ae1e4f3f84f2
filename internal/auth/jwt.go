// Package auth provides password hashing and JWT token issue/verification
// for the bookshelf API.
//
// A token is a signed assertion of {subject = account ID, expiry}. Nothing
// is persisted: the signature alone proves the server issued it, and the
// expiry bounds its lifetime. There is no refresh mechanism — an expired
// token requires a fresh login.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "bookshelf"

// ErrInvalidToken is returned by Verify for every failure: malformed token,
// wrong signature, wrong algorithm, missing or non-numeric subject, expired.
//
// WHY ONE ERROR FOR EVERYTHING?
// Distinguishing "expired" from "bad signature" in responses gives an
// attacker an oracle. All verification failures collapse to this sentinel;
// callers translate it to a single unauthenticated outcome.
var ErrInvalidToken = errors.New("auth: invalid token")

// signingMethods maps the configured algorithm identifier to a jwt method.
// Only the HMAC family is supported — the secret is symmetric.
var signingMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// TokenService issues and verifies signed identity tokens.
//
// The secret and algorithm are fixed at construction. Rotating the secret
// means constructing a new TokenService; every token signed with the old
// secret then fails verification, with no grace period.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	alg    string
	ttl    time.Duration
	now    func() time.Time // injectable clock for expiry tests
}

// NewTokenService creates a TokenService.
//
// The secret should be at least 32 bytes of random data in production
// (e.g. JWT_SECRET=$(openssl rand -hex 32)); anything under 16 characters
// is rejected outright. algorithm is one of HS256, HS384, HS512.
func NewTokenService(secret, algorithm string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	method, ok := signingMethods[algorithm]
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	return &TokenService{
		secret: []byte(secret),
		method: method,
		alg:    algorithm,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a token asserting the given account ID, expiring
// after the service's configured TTL. Expiry has second granularity — JWT
// numeric dates are Unix timestamps.
func (s *TokenService) Issue(accountID int64) (string, error) {
	return s.IssueWithTTL(accountID, s.ttl)
}

// IssueWithTTL creates a token with a custom lifetime. Used by tests to
// produce already-expired tokens; production code goes through Issue.
func (s *TokenService) IssueWithTTL(accountID int64, ttl time.Duration) (string, error) {
	now := s.now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(s.method, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and checks a token string and returns the account ID it
// asserts. Signature, algorithm, issuer and expiry are all enforced; the
// expiry check uses the service clock, so two calls on the same still-valid
// token agree until the expiry boundary passes.
//
// Pinning the algorithm with WithValidMethods blocks algorithm-confusion
// attacks (a token re-signed with "none" or a different method is rejected
// before its claims are looked at).
func (s *TokenService) Verify(tokenStr string) (int64, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.alg}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, ErrInvalidToken
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	accountID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}

	return accountID, nil
}
