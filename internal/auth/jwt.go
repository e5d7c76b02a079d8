package auth

import (
	"Taglink-Backend/internal/domain"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims carries the account identity issued by the external session service. The subject
// is the account id; plan and teams are trusted as given for the lifetime of the token.
type Claims struct {
	Plan  string   `json:"plan"`
	Teams []string `json:"teams,omitempty"`
	jwt.RegisteredClaims
}

// Account converts the claims into the account the rest of the service works with.
func (c *Claims) Account() domain.Account {
	return domain.Account{
		ID:    c.Subject,
		Plan:  domain.ParsePlan(c.Plan),
		Teams: c.Teams,
	}
}

// JWTService validates bearer tokens signed with a shared HMAC secret.
type JWTService struct {
	secret []byte
	issuer string
}

func NewJWTService(secret, issuer string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// GenerateAccessToken signs a token for acc. Tokens are normally minted by the session
// service; this is used by tooling and tests.
func (s *JWTService) GenerateAccessToken(acc domain.Account, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Plan:  string(acc.Plan),
		Teams: acc.Teams,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   acc.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies a token string.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractTokenFromBearer returns the token part of an "Authorization: Bearer ..." header.
func ExtractTokenFromBearer(authHeader string) string {
	const bearerPrefix = "Bearer "
	if len(authHeader) > len(bearerPrefix) && strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(authHeader[len(bearerPrefix):])
	}
	return ""
}
