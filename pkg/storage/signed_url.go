package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const downloadAudience = "pkpass-download"

// downloadClaims binds a pass serial to the stored bundle it may fetch.
type downloadClaims struct {
	Path string `json:"pth"`
	jwt.RegisteredClaims
}

// SignedURLSigner issues short-lived HS256 tokens for public .pkpass downloads.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token for subject (the pass serial) and the stored
// relative path, plus its expiry.
func (s *SignedURLSigner) Generate(subject, relPath string) (string, time.Time, error) {
	if subject == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("subject and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	now := s.now()
	expires := jwt.NewNumericDate(now.Add(s.ttl))
	claims := downloadClaims{
		Path: relPath,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{downloadAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expires,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return token, expires.Time, nil
}

// Parse validates token and returns its subject, path and expiry. With
// allowExpired the expiry is reported but not enforced.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (subject, relPath string, expiresAt time.Time, err error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(downloadAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if allowExpired {
		opts = []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation()}
	}
	var claims downloadClaims
	_, err = jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", "", time.Time{}, fmt.Errorf("token expired")
	case err != nil:
		return "", "", time.Time{}, fmt.Errorf("invalid download token: %w", err)
	}
	if allowExpired && !audienceMatches(claims.Audience) {
		return "", "", time.Time{}, fmt.Errorf("invalid download token audience")
	}
	if claims.Subject == "" || claims.Path == "" || claims.ExpiresAt == nil {
		return "", "", time.Time{}, fmt.Errorf("incomplete download token")
	}
	return claims.Subject, claims.Path, claims.ExpiresAt.Time, nil
}

func audienceMatches(aud jwt.ClaimStrings) bool {
	for _, a := range aud {
		if a == downloadAudience {
			return true
		}
	}
	return false
}
