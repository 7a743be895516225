package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xavierca1/salespilot/internal/entity"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims identifies the operator behind a request.
type Claims struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 access tokens.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *JWTIssuer) Issue(user *entity.User) (string, error) {
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

func (s *JWTIssuer) Parse(raw string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return Claims{}, errors.New("invalid token claims")
	}

	out := Claims{UserID: claims.Subject, Email: claims.Email}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}

