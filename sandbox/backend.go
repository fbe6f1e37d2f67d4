package sandbox

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

// Options tune the sandbox economy
type Options struct {
	MiningCooldown  time.Duration
	CheckInCooldown time.Duration
	MiningReward    decimal.Decimal
	CheckInReward   decimal.Decimal
	ReferralBonus   decimal.Decimal
	MaxReferrals    int
	// QRPointRate converts a scanned receipt amount to points
	QRPointRate decimal.Decimal
	TotalSupply decimal.Decimal
	// PasswordCost is the bcrypt cost; zero selects bcrypt.DefaultCost
	PasswordCost int
	Now          func() time.Time
	Logger       logrus.FieldLogger
}

// DefaultOptions returns the production-like economy
func DefaultOptions() Options {
	return Options{
		MiningCooldown:  24 * time.Hour,
		CheckInCooldown: 24 * time.Hour,
		MiningReward:    decimal.RequireFromString("1.5"),
		CheckInReward:   decimal.NewFromInt(5),
		ReferralBonus:   decimal.NewFromInt(2),
		MaxReferrals:    10,
		QRPointRate:     decimal.RequireFromString("0.001"),
		TotalSupply:     decimal.NewFromInt(1_000_000_000),
	}
}

type account struct {
	user         core.User
	passwordHash []byte
	referred     []core.ReferredUser
	completed    map[int64]time.Time
}

// Backend is an in-memory implementation of the loyalty backend used for
// local development and end-to-end tests
type Backend struct {
	tokenizer ports.Tokenizer
	opts      Options
	now       func() time.Time
	logger    logrus.FieldLogger

	mu         sync.Mutex
	accounts   map[int64]*account
	byUsername map[string]int64
	byCode     map[string]int64
	revoked    map[string]time.Time
	txs        []core.Transaction
	tasks      []core.Task
	scans      []core.ScanHistoryItem
	invoices   map[string]struct{}
	supply     decimal.Decimal
	nextUserID int64
	nextTxID   int64
	nextScanID int64
}

// NewBackend creates an empty backend with the default task list
func NewBackend(tokenizer ports.Tokenizer, opts Options) *Backend {
	def := DefaultOptions()
	if opts.MiningCooldown <= 0 {
		opts.MiningCooldown = def.MiningCooldown
	}
	if opts.CheckInCooldown <= 0 {
		opts.CheckInCooldown = def.CheckInCooldown
	}
	if opts.MiningReward.IsZero() {
		opts.MiningReward = def.MiningReward
	}
	if opts.CheckInReward.IsZero() {
		opts.CheckInReward = def.CheckInReward
	}
	if opts.ReferralBonus.IsZero() {
		opts.ReferralBonus = def.ReferralBonus
	}
	if opts.MaxReferrals <= 0 {
		opts.MaxReferrals = def.MaxReferrals
	}
	if opts.QRPointRate.IsZero() {
		opts.QRPointRate = def.QRPointRate
	}
	if opts.TotalSupply.IsZero() {
		opts.TotalSupply = def.TotalSupply
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	return &Backend{
		tokenizer:  tokenizer,
		opts:       opts,
		now:        now,
		logger:     logger,
		accounts:   make(map[int64]*account),
		byUsername: make(map[string]int64),
		byCode:     make(map[string]int64),
		revoked:    make(map[string]time.Time),
		invoices:   make(map[string]struct{}),
		tasks:      defaultTasks(),
	}
}

// Register creates an account and signs the user in
func (b *Backend) Register(ctx context.Context, username, email, password string) (*core.AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.opts.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	b.mu.Lock()
	acc, err := b.createLocked(username, email, hash, false)
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{"user_id": acc.ID, "username": acc.Username}).Info("Account registered")
	return b.issue(acc)
}

// GuestRegister creates an account with a generated name and password. The
// password is returned once in the profile.
func (b *Backend) GuestRegister(ctx context.Context) (*core.AuthResult, error) {
	password, err := randomHex(6)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.opts.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	b.mu.Lock()
	var acc *core.User
	for acc == nil {
		suffix, rerr := randomHex(4)
		if rerr != nil {
			b.mu.Unlock()
			return nil, rerr
		}
		acc, err = b.createLocked("guest_"+suffix, "", hash, true)
		if err != nil && !errors.Is(err, ErrUserExists) {
			b.mu.Unlock()
			return nil, err
		}
	}
	b.mu.Unlock()

	res, err := b.issue(acc)
	if err != nil {
		return nil, err
	}
	res.User.PlainPassword = password
	b.logger.WithField("user_id", acc.ID).Info("Guest account created")
	return res, nil
}

// Login verifies the password and issues a new token
func (b *Backend) Login(ctx context.Context, username, password string) (*core.AuthResult, error) {
	b.mu.Lock()
	id, ok := b.byUsername[strings.ToLower(strings.TrimSpace(username))]
	var hash []byte
	var user core.User
	if ok {
		acc := b.accounts[id]
		hash = acc.passwordHash
		user = acc.user
	}
	b.mu.Unlock()

	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return b.issue(&user)
}

// ForgotPassword always succeeds so the endpoint does not reveal which
// addresses are registered
func (b *Backend) ForgotPassword(ctx context.Context, email string) *core.MessageResponse {
	b.logger.WithField("email", email).Info("Password reset requested")
	return &core.MessageResponse{Success: true, Message: "If the address is registered, a reset link has been sent."}
}

// Authenticate resolves a bearer token to its account
func (b *Backend) Authenticate(ctx context.Context, token string) (*core.TokenClaims, error) {
	claims, err := b.tokenizer.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, revoked := b.revoked[claims.ID]; revoked {
		return nil, ErrTokenRevoked
	}
	if _, ok := b.accounts[claims.UserID]; !ok {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway
func (b *Backend) Logout(ctx context.Context, claims *core.TokenClaims) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for id, exp := range b.revoked {
		if now.After(exp) {
			delete(b.revoked, id)
		}
	}
	b.revoked[claims.ID] = claims.ExpiresAt
	b.logger.WithField("user_id", claims.UserID).Info("Token revoked")
}

// Me returns the profile of userID
func (b *Backend) Me(ctx context.Context, userID int64) (*core.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := acc.user
	return &u, nil
}

func (b *Backend) createLocked(username, email string, hash []byte, guest bool) (*core.User, error) {
	key := strings.ToLower(username)
	if _, taken := b.byUsername[key]; taken {
		return nil, ErrUserExists
	}
	if email != "" {
		for _, acc := range b.accounts {
			if acc.user.Email != nil && strings.EqualFold(*acc.user.Email, email) {
				return nil, ErrEmailExists
			}
		}
	}

	b.nextUserID++
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	u := core.User{
		ID:             b.nextUserID,
		Username:       username,
		ReferralCode:   code,
		IsGuest:        guest,
		MiningRate:     b.opts.MiningReward,
		UserMiningRate: b.opts.MiningReward,
		BonusFactor:    decimal.NewFromInt(1),
	}
	if email != "" {
		e := email
		u.Email = &e
	}

	b.accounts[u.ID] = &account{user: u, passwordHash: hash, completed: make(map[int64]time.Time)}
	b.byUsername[key] = u.ID
	b.byCode[code] = u.ID
	return &u, nil
}

func (b *Backend) issue(user *core.User) (*core.AuthResult, error) {
	token, _, err := b.tokenizer.IssueToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	u := *user
	return &core.AuthResult{Token: token, User: &u}, nil
}

func (b *Backend) lookup(userID int64) (*account, error) {
	acc, ok := b.accounts[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return acc, nil
}

func (b *Backend) recordLocked(userID int64, amount decimal.Decimal, typ core.TransactionType, desc string) core.Transaction {
	b.nextTxID++
	tx := core.Transaction{
		ID:          b.nextTxID,
		UserID:      userID,
		Amount:      amount,
		Type:        typ,
		Description: desc,
		Timestamp:   b.now(),
	}
	b.txs = append(b.txs, tx)
	return tx
}

// creditLocked adds newly minted points to a balance
func (b *Backend) creditLocked(acc *account, amount decimal.Decimal, typ core.TransactionType, desc string) core.Transaction {
	acc.user.Balance = acc.user.Balance.Add(amount)
	b.supply = b.supply.Add(amount)
	return b.recordLocked(acc.user.ID, amount, typ, desc)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random value: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
