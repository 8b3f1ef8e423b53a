package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

// ErrKeyIDMissing indicates no kid is associated with the supplied key.
var ErrKeyIDMissing = errors.New("jwt: missing key identifier")

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("jwt: invalid token")

const defaultAccessTokenTTL = 24 * time.Hour

// AccessTokenClaims carries the inbox owner identity.
type AccessTokenClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// JWTManager signs and parses RS256 access tokens.
type JWTManager struct {
	keys   KeyProvider
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager constructs a JWTManager for the supplied key provider.
func NewJWTManager(provider KeyProvider, issuer string, ttl time.Duration) (*JWTManager, error) {
	if provider == nil {
		return nil, fmt.Errorf("jwt: key provider not configured")
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}

	return &JWTManager{
		keys:   provider,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the time source, mainly for tests.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	if now != nil {
		m.now = now
	}
	return m
}

// TTL returns the lifetime of issued tokens.
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs an access token for the user and returns it with its expiry.
func (m *JWTManager) Issue(userID, username string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("jwt: user id is required")
	}

	kid := strings.TrimSpace(m.keys.SigningKeyID())
	if kid == "" {
		return "", time.Time{}, ErrKeyIDMissing
	}

	signingKey, err := m.keys.GetSigningKey()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: get signing key: %w", err)
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	claims := &AccessTokenClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse verifies the token signature and standard claims.
func (m *JWTManager) Parse(raw string) (*AccessTokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, ErrKeyIDMissing
		}
		return m.keys.GetVerificationKey(kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if strings.TrimSpace(claims.UserID) == "" {
		return nil, fmt.Errorf("%w: missing uid claim", ErrInvalidToken)
	}

	return claims, nil
}
