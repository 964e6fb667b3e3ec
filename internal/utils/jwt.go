package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionToken is a signed HS256 JWT together with its expiry.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// SessionClaims are the verified claims of a session token.
type SessionClaims struct {
	UserID   uint64
	IssuedAt time.Time
}

// ErrInvalidSubject is returned for a correctly signed token whose subject
// is not a user id.
var ErrInvalidSubject = errors.New("token subject is not a user id")

// NewSessionToken signs a token for userID issued at now and valid for ttl.
// Claims are the registered sub, iat and exp.
func NewSessionToken(secret string, userID uint64, ttl time.Duration, now time.Time) (SessionToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies signature, algorithm and expiry of raw.
// Expired tokens fail with an error matching jwt.ErrTokenExpired.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return SessionClaims{}, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return SessionClaims{}, ErrInvalidSubject
	}
	out := SessionClaims{UserID: id}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// ResetToken is a password-reset token. Raw is sent to the user; only
// Hash is stored.
type ResetToken struct {
	Raw  string
	Hash string
	Exp  time.Time
}

// NewResetToken returns a 32-byte random token valid for ttl from now.
func NewResetToken(ttl time.Duration, now time.Time) (ResetToken, error) {
	raw, err := randomHex(32) // 32 bytes -> 64 hex chars
	if err != nil {
		return ResetToken{}, err
	}
	return ResetToken{Raw: raw, Hash: HashToken(raw), Exp: now.UTC().Add(ttl)}, nil
}

// HashToken returns the SHA-256 hash of a raw token as a hex string.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
