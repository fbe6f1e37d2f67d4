package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

// DefaultTransactionLimit is the page size used when the caller passes none
const DefaultTransactionLimit = 20

// TransactionService wraps the transaction history and transfer endpoints
type TransactionService struct {
	client  Requester
	profile ports.ProfileUpdater
}

// NewTransactionService creates a transaction service. profile may be nil.
func NewTransactionService(client Requester, profile ports.ProfileUpdater) *TransactionService {
	return &TransactionService{client: client, profile: profile}
}

// List returns one page of the ledger, newest first
func (s *TransactionService) List(ctx context.Context, filters core.TransactionFilters) ([]core.Transaction, error) {
	if err := validateStruct(&filters); err != nil {
		return nil, err
	}
	if filters.Limit == 0 {
		filters.Limit = DefaultTransactionLimit
	}
	if filters.Type == "" {
		filters.Type = core.TransactionAll
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(filters.Limit))
	q.Set("offset", strconv.Itoa(filters.Offset))
	q.Set("type", string(filters.Type))

	var txs []core.Transaction
	if err := s.client.Get(ctx, api.EndpointTransactions, &txs, api.WithQuery(q)); err != nil {
		return nil, err
	}
	return txs, nil
}

// Get returns a single transaction
func (s *TransactionService) Get(ctx context.Context, id int64) (*core.Transaction, error) {
	if id <= 0 {
		return nil, invalid("id must be positive")
	}

	var tx core.Transaction
	if err := s.client.Get(ctx, api.TransactionPath(id), &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Transfer sends points to another user. The cached balance is only changed
// once the server confirms the transfer.
func (s *TransactionService) Transfer(ctx context.Context, req core.TransferRequest) (*core.TransferResult, error) {
	req.RecipientUsername = strings.TrimSpace(req.RecipientUsername)
	req.Description = strings.TrimSpace(req.Description)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}

	var res core.TransferResult
	if err := s.client.Post(ctx, api.EndpointTransfer, req, &res); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrRecipientNotFound, req.RecipientUsername, err)
		}
		return nil, err
	}

	if s.profile != nil {
		_ = s.profile.UpdateUser(ctx, func(u *core.User) {
			u.Balance = res.NewBalance
		})
	}
	return &res, nil
}
