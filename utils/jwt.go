package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	redis "github.com/redis/go-redis/v9"
)

type contextKey string

const IdentityKey = contextKey("identity")
const RoleKey = contextKey("role")
const RoomKey = contextKey("room")
const RequestIDKey = contextKey("requestID")

// revocationClient is an optional redis client used as a jti blacklist.
// When nil, revocation checks are skipped (single-instance deployments can
// rely on short token lifetimes instead).
var revocationClient *redis.Client

// SetRevocationClient wires the shared redis client for token revocation.
func SetRevocationClient(rc *redis.Client) {
	revocationClient = rc
}

// AuthClaims is the identity extracted from a verified bearer token.
type AuthClaims struct {
	Subject string
	Role    string
	Room    string
}

// GenerateToken issues an HS256 token carrying {sub, role, room}. Room is
// empty for staff identities.
func GenerateToken(subject, role, room string, expiry time.Duration) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", errors.New("JWT_SECRET is not set")
	}
	now := time.Now()
	jti, err := generateJTI(32)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  now.Add(expiry).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  jti,
	}
	if room != "" {
		claims["room"] = room
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// parseClaims verifies signature, expiry and not-before and returns the raw
// claim set.
func parseClaims(tokenStr string) (jwt.MapClaims, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	token, err := jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Require exact HS256 to avoid algorithm confusion.
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token expired")
		}
		return nil, errors.New("invalid token")
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// ValidateToken parses and validates a bearer token and returns its claims.
// Expiry and not-before come from the token itself; the jti is checked
// against the redis blacklist when one is configured.
func ValidateToken(tokenStr string) (*AuthClaims, error) {
	claims, err := parseClaims(tokenStr)
	if err != nil {
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return nil, errors.New("invalid token payload")
	}
	room, _ := claims["room"].(string)

	if jti, ok := claims["jti"].(string); ok && jti != "" && revocationClient != nil {
		res, err := revocationClient.Get(context.Background(), "jwt:blacklist:"+jti).Result()
		if err == nil && res == "1" {
			return nil, errors.New("token revoked")
		}
		// Redis errors are ignored: an outage must not fail auth.
	}

	return &AuthClaims{Subject: sub, Role: role, Room: room}, nil
}

// RevocationInfo extracts the jti and remaining lifetime from a verified
// token, for blacklisting it on sign-out.
func RevocationInfo(tokenStr string) (string, time.Duration, error) {
	claims, err := parseClaims(tokenStr)
	if err != nil {
		return "", 0, err
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return "", 0, errors.New("token has no jti")
	}
	var ttl time.Duration
	if exp, ok := claims["exp"].(float64); ok {
		ttl = time.Until(time.Unix(int64(exp), 0))
	}
	if ttl < 0 {
		ttl = 0
	}
	return jti, ttl, nil
}

// RevokeJTI blacklists a token id until its natural expiry.
func RevokeJTI(jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	if revocationClient == nil {
		return errors.New("no revocation store configured")
	}
	return revocationClient.Set(context.Background(), "jwt:blacklist:"+jti, "1", ttl).Err()
}

// ClaimsFromRequest extracts the verified identity placed in the request
// context by the auth middleware.
func ClaimsFromRequest(r *http.Request) (*AuthClaims, bool) {
	sub, ok := r.Context().Value(IdentityKey).(string)
	if !ok || sub == "" {
		return nil, false
	}
	role, _ := r.Context().Value(RoleKey).(string)
	room, _ := r.Context().Value(RoomKey).(string)
	return &AuthClaims{Subject: sub, Role: role, Room: room}, true
}

// BearerToken pulls the raw token out of the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")), true
}

// generateJTI creates a URL-safe random identifier used as JWT ID
func generateJTI(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	const hex = "0123456789abcdef"
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = hex[int(b[i])%len(hex)]
	}
	return string(out), nil
}
