package sandbox

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTokenRevoked         = errors.New("token has been revoked")
	ErrUserExists           = errors.New("username already taken")
	ErrEmailExists          = errors.New("email already registered")
	ErrUserNotFound         = errors.New("user not found")
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrSelfTransfer         = errors.New("cannot transfer to yourself")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskCompleted        = errors.New("task already completed")
	ErrInvalidQR            = errors.New("invalid QR code")
	ErrQRAlreadyScanned     = errors.New("this receipt has already been scanned")
	ErrKYCAlreadySubmitted  = errors.New("KYC already submitted")
	ErrInvalidReferral      = errors.New("invalid referral code")
	ErrSelfReferral         = errors.New("you cannot use your own referral code")
	ErrAlreadyReferred      = errors.New("a referral code was already applied")
	ErrReferralLimitReached = errors.New("this referral code has reached its limit")
	ErrWrongPassword        = errors.New("current password is incorrect")
	ErrInvalidInput         = errors.New("invalid input")
)

// CooldownError is returned when mining or checking in before the next
// eligible time
type CooldownError struct {
	Action string
	Next   time.Time
	Now    time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s is on cooldown until %s", e.Action, e.Next.UTC().Format(time.RFC3339))
}

// RemainingHours formats the wait like the production backend does
func (e *CooldownError) RemainingHours() string {
	return fmt.Sprintf("%.1f", e.Next.Sub(e.Now).Hours())
}
