package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/dvloznov/statement-analyst/internal/domain"
)

// snapshot is the data context sent alongside a question.
type snapshot struct {
	HasPL bool        `json:"has_pl"`
	HasBS bool        `json:"has_bs"`
	PL    *plSnapshot `json:"pl_data,omitempty"`
	BS    *bsSnapshot `json:"bs_data,omitempty"`
}

type plSnapshot struct {
	PeriodStart   *string           `json:"period_start"`
	PeriodEnd     *string           `json:"period_end"`
	TotalIncome   *float64          `json:"total_income"`
	TotalExpenses *float64          `json:"total_expenses"`
	GrossProfit   *float64          `json:"gross_profit"`
	NetIncome     *float64          `json:"net_income"`
	IncomeItems   []domain.LineItem `json:"income_items"`
	ExpenseItems  []domain.LineItem `json:"expense_items"`
	COGSItems     []domain.LineItem `json:"cogs_items"`
}

type bsSnapshot struct {
	TimePeriods      []string             `json:"time_periods"`
	AsOfDate         *string              `json:"as_of_date"`
	TotalAssets      domain.PeriodValues  `json:"total_assets"`
	TotalLiabilities domain.PeriodValues  `json:"total_liabilities"`
	TotalEquity      domain.PeriodValues  `json:"total_equity"`
	Assets           domain.KeyedAccounts `json:"assets"`
	Liabilities      domain.KeyedAccounts `json:"liabilities"`
	Equity           domain.KeyedAccounts `json:"equity"`
}

func buildSnapshot(store *domain.StatementStore) snapshot {
	s := snapshot{}

	if pl := store.ProfitAndLoss(); pl != nil {
		s.HasPL = true
		s.PL = &plSnapshot{
			PeriodStart:   pl.PeriodStart,
			PeriodEnd:     pl.PeriodEnd,
			TotalIncome:   pl.TotalIncome,
			TotalExpenses: pl.TotalExpenses,
			GrossProfit:   pl.GrossProfit,
			NetIncome:     pl.NetIncome,
			IncomeItems:   nonNil(pl.IncomeItems),
			ExpenseItems:  nonNil(pl.ExpenseItems),
			COGSItems:     nonNil(pl.COGSItems),
		}
	}

	if bs := store.BalanceSheet(); bs != nil {
		s.HasBS = true
		s.BS = &bsSnapshot{
			TimePeriods:      nonNil(bs.TimePeriods),
			AsOfDate:         bs.AsOfDate,
			TotalAssets:      bs.TotalAssets,
			TotalLiabilities: bs.TotalLiabilities,
			TotalEquity:      bs.TotalEquity,
			Assets:           nonNilMap(bs.Assets),
			Liabilities:      nonNilMap(bs.Liabilities),
			Equity:           nonNilMap(bs.Equity),
		}
	}

	return s
}

// encode returns the snapshot as indented and as compact JSON.
func (s snapshot) encode() (indented, compact string, err error) {
	ib, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode snapshot: %w", err)
	}
	cb, err := json.Marshal(s)
	if err != nil {
		return "", "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(ib), string(cb), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilMap(m domain.KeyedAccounts) domain.KeyedAccounts {
	if m == nil {
		return domain.KeyedAccounts{}
	}
	return m
}
