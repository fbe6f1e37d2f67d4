package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the account the token belongs to
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
}
