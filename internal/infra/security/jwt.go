package security

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
)

// ErrTokenExpired indicates a structurally valid token past its expiry.
var ErrTokenExpired = errors.New("jwt: token expired")

// ErrTokenInvalid indicates a malformed token, a bad signature, or claims
// that fail validation for a reason other than expiry.
var ErrTokenInvalid = errors.New("jwt: token invalid")

// ErrTokenTypeMismatch indicates a token of the wrong usage type, e.g. a
// refresh token presented where an access token is required.
var ErrTokenTypeMismatch = errors.New("jwt: token type mismatch")

// TokenType distinguishes the intended usage of an issued token.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the payload carried by every issued token.
type Claims struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"type"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim parsed as a user identifier.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not a user id", ErrTokenInvalid, c.Subject)
	}
	return id, nil
}

// TokenCodecConfig configures token signing, lifetimes, and clock tolerance.
type TokenCodecConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Leeway          time.Duration
}

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenCodec issues and verifies HMAC-SHA256 signed JWTs for a single
// shared secret. Issue and Decode are safe for concurrent use.
type TokenCodec struct {
	secret          []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	leeway          time.Duration
	now             func() time.Time
}

// NewTokenCodec constructs a TokenCodec from the supplied configuration.
func NewTokenCodec(cfg TokenCodecConfig) (*TokenCodec, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}

	return &TokenCodec{
		secret:          []byte(cfg.Secret),
		issuer:          strings.TrimSpace(cfg.Issuer),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		leeway:          cfg.Leeway,
		now:             func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the time source. Intended for tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// AccessTokenTTL reports the configured access token lifetime.
func (c *TokenCodec) AccessTokenTTL() time.Duration {
	return c.accessTokenTTL
}

// RefreshTokenTTL reports the configured refresh token lifetime.
func (c *TokenCodec) RefreshTokenTTL() time.Duration {
	return c.refreshTokenTTL
}

// IssueAccessToken signs a short-lived access token for the user.
func (c *TokenCodec) IssueAccessToken(user *domain.User) (string, error) {
	return c.issue(user, TokenTypeAccess, c.accessTokenTTL)
}

// IssueRefreshToken signs a long-lived refresh token for the user.
func (c *TokenCodec) IssueRefreshToken(user *domain.User) (string, error) {
	return c.issue(user, TokenTypeRefresh, c.refreshTokenTTL)
}

func (c *TokenCodec) issue(user *domain.User, tokenType TokenType, ttl time.Duration) (string, error) {
	if user == nil {
		return "", fmt.Errorf("jwt: user is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("jwt: token lifetime must be positive, got %s", ttl)
	}

	now := c.now()
	claims := &Claims{
		Email:     user.Email,
		Role:      string(user.Role),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Decode verifies the token signature and registered claims, returning the
// decoded claims. Expired tokens map to ErrTokenExpired; every other failure
// maps to ErrTokenInvalid.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(c.leeway))
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrTokenInvalid, claims.TokenType)
	}

	return claims, nil
}

// DecodeExpecting decodes the token and additionally enforces its usage type.
func (c *TokenCodec) DecodeExpecting(tokenString string, expected TokenType) (*Claims, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != expected {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrTokenTypeMismatch, expected, claims.TokenType)
	}

	return claims, nil
}
