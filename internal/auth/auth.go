package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// tokenIssuer and tokenAudience pin every token this service issues to a
// single service-to-service trust boundary: a token minted for the fill API
// is rejected elsewhere, and a token minted elsewhere is rejected here,
// even if both happen to be signed with the same secret.
const (
	tokenIssuer   = "ingrid-core"
	tokenAudience = "ingrid-core-fill-api"
)

// Scope is a capability granted to a client token. These tokens
// authenticate services calling the fill API rather than end users, so the
// thing worth modeling is "what this caller may do," not "who this caller
// is."
type Scope string

const (
	// ScopeRead lets a client fetch run results and subscribe to progress.
	ScopeRead Scope = "fill:read"
	// ScopeWrite lets a client submit and cancel runs. Implies ScopeRead.
	ScopeWrite Scope = "fill:write"
)

// Claims identifies the API client submitting fill jobs: a service account
// id/name and whether it is restricted to read-only endpoints (fetching run
// results and subscribing to progress, but never submitting new grids).
type Claims struct {
	ClientID   string `json:"clientId"`
	ClientName string `json:"clientName"`
	ReadOnly   bool   `json:"readOnly"`
	jwt.RegisteredClaims
}

// HasScope reports whether the client authenticated by these claims holds
// the given scope. Every token holds ScopeRead; ScopeWrite requires a
// non-read-only client.
func (c *Claims) HasScope(scope Scope) bool {
	switch scope {
	case ScopeRead:
		return true
	case ScopeWrite:
		return !c.ReadOnly
	default:
		return false
	}
}

type AuthService struct {
	jwtSecret     []byte
	tokenDuration time.Duration
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
	}
}

// HashPassword hashes a client secret using bcrypt.
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a client secret against a hash.
func (s *AuthService) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateToken creates a new JWT token for a client, scoped to this
// service's audience so it cannot be replayed against another API that
// happens to share the signing secret.
func (s *AuthService) GenerateToken(clientID, clientName string, readOnly bool) (string, error) {
	claims := &Claims{
		ClientID:   clientID,
		ClientName: clientName,
		ReadOnly:   readOnly,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			Subject:   clientID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT token's signature, issuer, and audience and
// returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// RefreshToken creates a new token with extended expiration.
func (s *AuthService) RefreshToken(claims *Claims) (string, error) {
	return s.GenerateToken(claims.ClientID, claims.ClientName, claims.ReadOnly)
}
