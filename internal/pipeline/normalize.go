package pipeline

import (
	"github.com/dvloznov/statement-analyst/internal/domain"
)

// ToKeyed converts the flat Balance Sheet returned by the service into the
// keyed form used for lookup. It never fails and never mutates raw.
//
// Items without a period register their account but add no period entry.
// A repeated (account, period) pair keeps the later value.
//
// Totals are zipped against TimePeriods by position: surplus values are
// dropped and periods without a value map to nil. A nil totals slice stays nil.
func ToKeyed(raw domain.BalanceSheetRaw) domain.BalanceSheet {
	var periods []string
	if raw.TimePeriods != nil {
		periods = append(make([]string, 0, len(raw.TimePeriods)), raw.TimePeriods...)
	}

	return domain.BalanceSheet{
		StatementType: raw.StatementType,
		CompanyName:   copyPtr(raw.CompanyName),
		AsOfDate:      copyPtr(raw.AsOfDate),
		TimePeriods:   periods,

		Assets:      keyItems(raw.AssetItems),
		Liabilities: keyItems(raw.LiabilityItems),
		Equity:      keyItems(raw.EquityItems),

		TotalAssets:      zipTotals(raw.TotalAssets, raw.TimePeriods),
		TotalLiabilities: zipTotals(raw.TotalLiabilities, raw.TimePeriods),
		TotalEquity:      zipTotals(raw.TotalEquity, raw.TimePeriods),
	}
}

func keyItems(items []domain.LineItem) domain.KeyedAccounts {
	out := make(domain.KeyedAccounts, len(items))
	for _, item := range items {
		byPeriod, ok := out[item.DisplayName]
		if !ok {
			byPeriod = domain.PeriodValues{}
			out[item.DisplayName] = byPeriod
		}
		if item.Period == nil || *item.Period == "" {
			continue
		}
		byPeriod[*item.Period] = copyPtr(item.Value)
	}
	return out
}

func zipTotals(values []float64, periods []string) domain.PeriodValues {
	if values == nil {
		return nil
	}
	out := make(domain.PeriodValues, len(periods))
	for i, p := range periods {
		if i < len(values) {
			v := values[i]
			out[p] = &v
			continue
		}
		out[p] = nil
	}
	return out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
