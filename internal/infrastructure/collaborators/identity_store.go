package collaborators

import (
	"context"
	"errors"
	"time"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the JWT claim set issued for an authenticated session. Tier is
// carried in the token so the matchmaking queue never has to call out to
// re-resolve it per connection.
type Claims struct {
	UserID domain.UserID `json:"user_id"`
	Tier   domain.Tier   `json:"tier"`
	jwt.RegisteredClaims
}

// JWTIdentityStore authenticates bearer tokens via HMAC-signed JWTs.
type JWTIdentityStore struct {
	secret []byte
}

// NewJWTIdentityStore creates an IdentityStore backed by the given HMAC secret.
func NewJWTIdentityStore(secret string) *JWTIdentityStore {
	return &JWTIdentityStore{secret: []byte(secret)}
}

var _ ports.IdentityStore = (*JWTIdentityStore)(nil)

func (s *JWTIdentityStore) Authenticate(ctx context.Context, token string) (domain.UserID, domain.Tier, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrExpiredToken
		}
		return "", "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", "", ErrInvalidToken
	}

	tier := claims.Tier
	if tier == "" {
		tier = domain.TierFree
	}
	return claims.UserID, tier, nil
}

// IssueToken mints an HS256-signed token for the given user and tier that
// expires after ttl.
func (s *JWTIdentityStore) IssueToken(userID domain.UserID, tier domain.Tier, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID: userID,
		Tier:   tier,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
