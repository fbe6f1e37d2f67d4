package ports

import (
	"time"

	"github.com/layer-3/cobic/core"
)

// Tokenizer issues and verifies bearer tokens (sandbox backend)
type Tokenizer interface {
	IssueToken(userID int64, username string) (token string, expiresAt time.Time, err error)
	VerifyToken(token string) (*core.TokenClaims, error)
}

// TokenInspector reads claims without verifying the signature. The client
// uses it to skip a round trip for tokens that have visibly expired.
type TokenInspector interface {
	InspectToken(token string) (*core.TokenClaims, error)
}
