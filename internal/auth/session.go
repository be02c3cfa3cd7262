package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNoSession   = errors.New("no session")
	ErrExpired     = errors.New("session expired")
	ErrInvalidated = errors.New("session invalidated")
)

// VersionSource reports the live credential version of a user. A session is
// only valid while the version it was issued against still matches.
type VersionSource interface {
	CredentialVersion(username string) (int64, bool)
}

// Claims binds a token to the credential version it was issued against.
type Claims struct {
	jwt.RegisteredClaims
	Version int64 `json:"ver"`
}

// SessionManager issues and validates HS256 session tokens. Logout is an
// in-memory revocation set keyed by token ID; everything else rides on the
// signed claims, so restarting the process (or rotating the secret) drops
// all outstanding sessions.
type SessionManager struct {
	secret   []byte
	ttl      time.Duration
	versions VersionSource

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry, for pruning
}

func NewSessionManager(secret []byte, ttl time.Duration, versions VersionSource) *SessionManager {
	return &SessionManager{
		secret:   secret,
		ttl:      ttl,
		versions: versions,
		revoked:  make(map[string]time.Time),
	}
}

// GenerateSecret returns a fresh random signing secret for deployments that
// do not configure one.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failing means the host is unusable
	}
	return hex.EncodeToString(b)
}

// Issue creates a token for the user bound to its current credential
// version.
func (m *SessionManager) Issue(username string, version int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Version: version,
	})
	return token.SignedString(m.secret)
}

// Validate resolves a token to an identity. Checks run in a fixed order:
// unknown/revoked tokens fail ErrNoSession, a credential version mismatch
// fails ErrInvalidated even when the token is also past its lifetime, and
// only then is expiry enforced.
func (m *SessionManager) Validate(tokenString string) (*Identity, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	_, gone := m.revoked[claims.ID]
	m.mu.Unlock()
	if gone {
		return nil, ErrNoSession
	}

	version, ok := m.versions.CredentialVersion(claims.Subject)
	if !ok || version != claims.Version {
		return nil, ErrInvalidated
	}

	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}

	return &Identity{Username: claims.Subject}, nil
}

// Revoke marks a token gone immediately, independent of version or expiry
// state. Unparseable tokens are ignored.
func (m *SessionManager) Revoke(tokenString string) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return
	}

	expiry := time.Now().Add(m.ttl)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
	m.revoked[claims.ID] = expiry
}

// parse verifies the signature only; expiry is checked separately so the
// error ordering in Validate stays deterministic.
func (m *SessionManager) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}
