package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestStatementStore_ReplacesProfitAndLoss(t *testing.T) {
	store := NewStatementStore()
	require.True(t, store.Empty())

	first := &ProfitAndLoss{
		StatementType: "profit_and_loss",
		CompanyName:   ptr("Acme Ltd"),
		PeriodStart:   ptr("2025-01-01"),
		IncomeItems:   []LineItem{{DisplayName: "Sales", Value: ptr(1000.0)}},
		NetIncome:     ptr(250.0),
		GrossProfit:   ptr(600.0),
	}
	store.SetProfitAndLoss(first)

	second := &ProfitAndLoss{
		StatementType: "profit_and_loss",
		ExpenseItems:  []LineItem{{DisplayName: "Rent", Value: ptr(300.0)}},
	}
	store.SetProfitAndLoss(second)

	got := store.ProfitAndLoss()
	require.NotNil(t, got)
	assert.Same(t, second, got)
	assert.Nil(t, got.CompanyName)
	assert.Nil(t, got.PeriodStart)
	assert.Nil(t, got.NetIncome)
	assert.Nil(t, got.GrossProfit)
	assert.Empty(t, got.IncomeItems)
	assert.Len(t, got.ExpenseItems, 1)
	assert.Nil(t, store.BalanceSheet(), "P&L upload must not touch the Balance Sheet slot")
}

func TestStatementStore_SlotsAreIndependent(t *testing.T) {
	store := NewStatementStore()
	bs := &BalanceSheet{TimePeriods: []string{"Jan 2025"}}
	pl := &ProfitAndLoss{StatementType: "profit_and_loss"}

	store.SetBalanceSheet(bs)
	assert.False(t, store.Empty())
	store.SetProfitAndLoss(pl)

	assert.Same(t, bs, store.BalanceSheet())
	assert.Same(t, pl, store.ProfitAndLoss())
}

func TestStatementStore_Reset(t *testing.T) {
	store := NewStatementStore()
	store.SetBalanceSheet(&BalanceSheet{})
	store.SetProfitAndLoss(&ProfitAndLoss{})

	store.Reset()
	assert.True(t, store.Empty())

	// Idempotent.
	store.Reset()
	assert.True(t, store.Empty())
}

func TestStatementKind(t *testing.T) {
	tests := []struct {
		kind  StatementKind
		valid bool
		label string
	}{
		{KindProfitAndLoss, true, "P&L"},
		{KindBalanceSheet, true, "Balance Sheet"},
		{KindUnknown, true, "Unknown statement"},
		{StatementKind("cash_flow"), false, "Unknown statement"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.kind.Valid())
			assert.Equal(t, tt.label, tt.kind.Label())
		})
	}
}
