package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spillit/spillit/internal/ierr"
)

const audience = "spillit"

type SessionClaims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"displayName,omitempty"`
}

// Resolution is what comes back from resolving a session token: the
// identity plus the moment the session stops being valid.
type Resolution struct {
	Identity  Identity
	ExpiresAt time.Time
}

// Resolver turns the credential presented at connection establishment into
// an Identity, or reports that the connection is unauthenticated.
type Resolver interface {
	Resolve(tokenString string) (Resolution, error)
}

// SessionManager issues and resolves signed session tokens. It is the only
// place credentials are inspected; everything downstream sees identities.
type SessionManager struct {
	secret     []byte
	sessionTTL time.Duration
	jwtParser  *jwt.Parser
}

func NewSessionManager(secret string, sessionTTL time.Duration) *SessionManager {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience(audience),
	)

	return &SessionManager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		jwtParser:  jwtParser,
	}
}

func (m *SessionManager) Issue(identity Identity) (string, error) {
	if identity.IsZero() {
		return "", ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("identity is required"))
	}

	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Id,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionTTL)),
		},
		DisplayName: identity.DisplayName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

func (m *SessionManager) Resolve(tokenString string) (Resolution, error) {
	claims := SessionClaims{}

	_, err := m.jwtParser.ParseWithClaims(tokenString, &claims, m.keyFunc)
	if err != nil {
		return Resolution{}, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Resolution{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid subject claim"))
	}

	if claims.DisplayName == "" {
		return Resolution{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("displayName claim cannot be empty"))
	}

	return Resolution{
		Identity: Identity{
			Id:          subject,
			DisplayName: claims.DisplayName,
		},
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (m *SessionManager) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return m.secret, nil
}
