package pipeline

import (
	"fmt"

	"github.com/dvloznov/statement-analyst/internal/domain"
)

// CheckBalanceSheetRaw reports inconsistencies in a raw Balance Sheet that
// ToKeyed will tolerate but that usually point at an extraction slip.
// The result is for logging only; an empty slice means nothing was found.
func CheckBalanceSheetRaw(raw *domain.BalanceSheetRaw) []string {
	var warnings []string

	known := make(map[string]bool, len(raw.TimePeriods))
	for _, p := range raw.TimePeriods {
		known[p] = true
	}

	totals := []struct {
		name   string
		values []float64
	}{
		{"total_assets", raw.TotalAssets},
		{"total_liabilities", raw.TotalLiabilities},
		{"total_equity", raw.TotalEquity},
	}
	for _, t := range totals {
		if t.values != nil && len(t.values) != len(raw.TimePeriods) {
			warnings = append(warnings, fmt.Sprintf("%s has %d values for %d time periods",
				t.name, len(t.values), len(raw.TimePeriods)))
		}
	}

	groups := []struct {
		name  string
		items []domain.LineItem
	}{
		{"asset_items", raw.AssetItems},
		{"liability_items", raw.LiabilityItems},
		{"equity_items", raw.EquityItems},
	}
	for _, g := range groups {
		missing, unknown := 0, 0
		seen := make(map[[2]string]bool, len(g.items))
		dupes := 0
		for _, item := range g.items {
			if item.Period == nil || *item.Period == "" {
				missing++
				continue
			}
			if !known[*item.Period] {
				unknown++
			}
			key := [2]string{item.DisplayName, *item.Period}
			if seen[key] {
				dupes++
			}
			seen[key] = true
		}
		if missing > 0 {
			warnings = append(warnings, fmt.Sprintf("%s: %d items have no period and are left out of the keyed form", g.name, missing))
		}
		if unknown > 0 {
			warnings = append(warnings, fmt.Sprintf("%s: %d items use a period not listed in time_periods", g.name, unknown))
		}
		if dupes > 0 {
			warnings = append(warnings, fmt.Sprintf("%s: %d repeated account/period pairs, later values win", g.name, dupes))
		}
	}

	return warnings
}
