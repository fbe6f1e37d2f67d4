package tokenizer

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/layer-3/cobic/core"
)

const AudienceAccess = "cobic:access"

// DefaultAccessTTL is how long sandbox access tokens stay valid
const DefaultAccessTTL = 7 * 24 * time.Hour

// JWTTokenizer issues HS256 access tokens for the sandbox backend and reads
// token expiry on the client side
type JWTTokenizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTTokenizer creates a tokenizer. A zero ttl selects DefaultAccessTTL.
func NewJWTTokenizer(secret []byte, ttl time.Duration) *JWTTokenizer {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &JWTTokenizer{secret: secret, ttl: ttl, now: time.Now}
}

// NewInspector creates a tokenizer that can only inspect tokens
func NewInspector() *JWTTokenizer {
	return &JWTTokenizer{now: time.Now}
}

// IssueToken signs an access token for the given account
func (j *JWTTokenizer) IssueToken(userID int64, username string) (string, time.Time, error) {
	if len(j.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("tokenizer has no signing secret")
	}
	now := j.now()
	expiresAt := now.Add(j.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		UserID:   userID,
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyToken checks signature, audience and expiry
func (j *JWTTokenizer) VerifyToken(tokenStr string) (*core.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithAudience(AudienceAccess), jwt.WithTimeFunc(j.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}
	return toTokenClaims(claims), nil
}

// InspectToken parses the token without checking its signature. Tokens that
// are not JWTs return core.ErrInvalidToken; callers treat them as opaque.
func (j *JWTTokenizer) InspectToken(tokenStr string) (*core.TokenClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	out := toTokenClaims(claims)
	if !out.ExpiresAt.IsZero() && !j.now().Before(out.ExpiresAt) {
		return out, core.ErrTokenExpired
	}
	return out, nil
}

func toTokenClaims(claims *AccessClaims) *core.TokenClaims {
	out := &core.TokenClaims{
		ID:       claims.ID,
		UserID:   claims.UserID,
		Username: claims.Username,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out
}
