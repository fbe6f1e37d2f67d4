package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
)

func TestTransfer_UnknownRecipientLeavesBalance(t *testing.T) {
	client, _, rec := newBackend(t, map[string]http.HandlerFunc{
		"POST /transactions/transfer": reply(http.StatusNotFound, `{"error":"Recipient not found"}`),
	})
	p := newProfile("100")
	svc := NewTransactionService(client, p)

	res, err := svc.Transfer(context.Background(), core.TransferRequest{
		RecipientUsername: "ghost",
		Amount:            decimal.RequireFromString("10"),
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, core.ErrRecipientNotFound)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, 1, rec.count("POST /api/transactions/transfer"))
	assert.True(t, p.snapshot().Balance.Equal(decimal.RequireFromString("100")))
}

func TestTransfer_ConfirmedUpdatesBalance(t *testing.T) {
	client, _, rec := newBackend(t, map[string]http.HandlerFunc{
		"POST /transactions/transfer": reply(http.StatusOK, `{"success":true,"newBalance":"87.5","transaction":{"id":9,"amount":"-12.5","type":"transfer"}}`),
	})
	p := newProfile("100")
	svc := NewTransactionService(client, p)

	res, err := svc.Transfer(context.Background(), core.TransferRequest{
		RecipientUsername: " bob ",
		Amount:            decimal.RequireFromString("12.5"),
		Description:       "coffee",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.Transaction.ID)
	assert.True(t, p.snapshot().Balance.Equal(decimal.RequireFromString("87.5")))

	body := rec.body(t, "POST /api/transactions/transfer")
	assert.Equal(t, "bob", body["recipientUsername"])
	assert.Equal(t, 12.5, body["amount"])
	assert.Equal(t, "coffee", body["description"])
}

func TestTransfer_RejectedLocally(t *testing.T) {
	client, _, rec := newBackend(t, map[string]http.HandlerFunc{
		"POST /transactions/transfer": reply(http.StatusOK, `{}`),
	})
	svc := NewTransactionService(client, nil)

	tests := []struct {
		name string
		req  core.TransferRequest
	}{
		{"missing recipient", core.TransferRequest{Amount: decimal.NewFromInt(1)}},
		{"zero amount", core.TransferRequest{RecipientUsername: "bob"}},
		{"negative amount", core.TransferRequest{RecipientUsername: "bob", Amount: decimal.NewFromInt(-5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transfer(context.Background(), tt.req)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
	assert.Equal(t, 0, rec.count("POST /api/transactions/transfer"))
}

func TestTransactions_ListDefaults(t *testing.T) {
	client, _, rec := newBackend(t, map[string]http.HandlerFunc{
		"GET /transactions": reply(http.StatusOK, `[{"id":1,"amount":"1.5","type":"mining"},{"id":2,"amount":"5","type":"admin"}]`),
	})
	svc := NewTransactionService(client, nil)

	txs, err := svc.List(context.Background(), core.TransactionFilters{})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, core.TransactionMining, txs[0].Type)
	assert.Equal(t, "limit=20&offset=0&type=all", rec.rawQuery("GET /api/transactions"))

	_, err = svc.List(context.Background(), core.TransactionFilters{Limit: 5, Offset: 10, Type: core.TransactionTransfer})
	require.NoError(t, err)
	assert.Equal(t, "limit=5&offset=10&type=transfer", rec.rawQuery("GET /api/transactions"))

	_, err = svc.List(context.Background(), core.TransactionFilters{Type: "bogus"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTransactions_Get(t *testing.T) {
	client, _, _ := newBackend(t, map[string]http.HandlerFunc{
		"GET /transactions/{id}": func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("id") != "7" {
				reply(http.StatusNotFound, `{"error":"Transaction not found"}`)(w, r)
				return
			}
			reply(http.StatusOK, `{"id":7,"amount":"3","type":"task_reward"}`)(w, r)
		},
	})
	svc := NewTransactionService(client, nil)

	tx, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, core.TransactionTaskReward, tx.Type)

	_, err = svc.Get(context.Background(), 8)
	assert.True(t, errors.Is(err, api.ErrNotFound))
	assert.Equal(t, "Transaction not found", api.UserMessage(err))

	_, err = svc.Get(context.Background(), 0)
	assert.ErrorIs(t, err, core.ErrValidation)
}
