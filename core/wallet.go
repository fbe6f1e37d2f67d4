package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionMining     TransactionType = "mining"
	TransactionAdmin      TransactionType = "admin"
	TransactionTransfer   TransactionType = "transfer"
	TransactionTaskReward TransactionType = "task_reward"
	TransactionAll        TransactionType = "all"
)

// Transaction is a single ledger entry
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	RecipientID *int64          `json:"recipientId,omitempty"`
	SenderID    *int64          `json:"senderId,omitempty"`
}

// TransactionFilters are the query parameters of GET /transactions
type TransactionFilters struct {
	Limit  int             `validate:"gte=0,lte=100"`
	Offset int             `validate:"gte=0"`
	Type   TransactionType `validate:"omitempty,oneof=mining admin transfer task_reward all"`
}

// TransferRequest is the body of POST /transactions/transfer
type TransferRequest struct {
	RecipientUsername string          `json:"recipientUsername" validate:"required"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description,omitempty" validate:"max=255"`
}

// TransferResult is the response of a confirmed transfer
type TransferResult struct {
	Success     bool            `json:"success"`
	Transaction Transaction     `json:"transaction"`
	NewBalance  decimal.Decimal `json:"newBalance"`
}

// MarshalJSON sends the amount as a JSON number, which is what the backend
// parses
func (r TransferRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RecipientUsername string      `json:"recipientUsername"`
		Amount            json.Number `json:"amount"`
		Description       string      `json:"description,omitempty"`
	}{
		RecipientUsername: r.RecipientUsername,
		Amount:            json.Number(r.Amount.String()),
		Description:       r.Description,
	})
}
