package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/layer-3/cobic/core"
)

var decimalOne = decimal.NewFromInt(1)

// Transactions returns one page of userID's ledger, newest first
func (b *Backend) Transactions(ctx context.Context, userID int64, filters core.TransactionFilters) []core.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}

	out := make([]core.Transaction, 0, limit)
	skipped := 0
	for i := len(b.txs) - 1; i >= 0 && len(out) < limit; i-- {
		tx := b.txs[i]
		if tx.UserID != userID {
			continue
		}
		if filters.Type != "" && filters.Type != core.TransactionAll && tx.Type != filters.Type {
			continue
		}
		if skipped < filters.Offset {
			skipped++
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Transaction returns one of userID's ledger entries
func (b *Backend) Transaction(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, tx := range b.txs {
		if tx.ID == id && tx.UserID == userID {
			return &tx, nil
		}
	}
	return nil, ErrTransactionNotFound
}

// Transfer moves points between two accounts and records both sides
func (b *Backend) Transfer(ctx context.Context, userID int64, req core.TransferRequest) (*core.TransferResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sender, err := b.lookup(userID)
	if err != nil {
		return nil, err
	}
	recipientID, ok := b.byUsername[strings.ToLower(strings.TrimSpace(req.RecipientUsername))]
	if !ok {
		return nil, ErrRecipientNotFound
	}
	if recipientID == userID {
		return nil, ErrSelfTransfer
	}
	if sender.user.Balance.LessThan(req.Amount) {
		return nil, ErrInsufficientBalance
	}
	recipient := b.accounts[recipientID]

	desc := req.Description
	if desc == "" {
		desc = fmt.Sprintf("Transfer to %s", recipient.user.Username)
	}

	sender.user.Balance = sender.user.Balance.Sub(req.Amount)
	recipient.user.Balance = recipient.user.Balance.Add(req.Amount)

	out := b.recordLocked(userID, req.Amount.Neg(), core.TransactionTransfer, desc)
	b.txs[len(b.txs)-1].RecipientID = &recipientID
	out.RecipientID = &recipientID

	b.recordLocked(recipientID, req.Amount, core.TransactionTransfer, fmt.Sprintf("Transfer from %s", sender.user.Username))
	b.txs[len(b.txs)-1].SenderID = &userID

	b.logger.WithField("from", userID).WithField("to", recipientID).WithField("amount", req.Amount.String()).Info("Transfer completed")
	return &core.TransferResult{Success: true, Transaction: out, NewBalance: sender.user.Balance}, nil
}
