package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nishant-k1/flushjohn-api-sub000/internal/app"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/config"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/model"
	"github.com/nishant-k1/flushjohn-api-sub000/internal/domain/provider/mocks"
)

func memoryBuild(t *testing.T, orders ...*model.Order) buildFunc {
	t.Helper()
	return func() (*app.App, error) {
		cfg, err := config.Parse([]byte("database:\n  driver: memory\n"), nil)
		require.NoError(t, err)
		a, err := app.BuildWithGateway(cfg, &mocks.Gateway{}, zap.NewNop())
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			a.Store.PutOrder(o)
		}
		return a, nil
	}
}

func run(t *testing.T, build buildFunc, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmdWith(build)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, memoryBuild(t), "version")
	require.NoError(t, err)
	assert.Equal(t, "paymentctl dev\n", out)
}

func TestBalanceRecompute(t *testing.T) {
	order := &model.Order{
		ID:       uuid.New(),
		Currency: "usd",
		LineItems: []model.OrderLineItem{
			{Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(120)},
		},
	}

	out, err := run(t, memoryBuild(t, order), "balance", "recompute", order.ID.String())
	require.NoError(t, err)

	var balance struct {
		OrderTotal    string `json:"order_total"`
		BalanceDue    string `json:"balance_due"`
		PaymentStatus string `json:"payment_status"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &balance))
	assert.Equal(t, "360", balance.OrderTotal)
	assert.Equal(t, "360", balance.BalanceDue)
	assert.Equal(t, "Unpaid", balance.PaymentStatus)
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, memoryBuild(t), "receipt", "send", "nope")
	assert.ErrorContains(t, err, `invalid payment id "nope"`)

	_, err = run(t, memoryBuild(t), "link", "sync")
	assert.Error(t, err)

	_, err = run(t, memoryBuild(t), "balance", "recompute", uuid.NewString())
	assert.ErrorContains(t, err, "not found")
}

func TestWebhooksReplay(t *testing.T) {
	out, err := run(t, memoryBuild(t), "webhooks", "replay", "--limit", "10")
	require.NoError(t, err)
	assert.JSONEq(t, `{"processed":0,"failed":0}`, out)
}
