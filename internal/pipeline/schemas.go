package pipeline

import (
	"google.golang.org/genai"
)

// Response schemas passed to the service. Each call builds a fresh tree so
// callers may not observe each other's mutations.

func nullable(t genai.Type) *genai.Schema {
	return &genai.Schema{Type: t, Nullable: genai.Ptr(true)}
}

func lineItemSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"display_name":    {Type: genai.TypeString},
			"value":           nullable(genai.TypeNumber),
			"period":          nullable(genai.TypeString),
			"parent_category": nullable(genai.TypeString),
		},
		Required:         []string{"display_name", "value", "period", "parent_category"},
		PropertyOrdering: []string{"display_name", "value", "period", "parent_category"},
	}
}

func lineItemsSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: lineItemSchema()}
}

// IdentificationSchema constrains the classifier response.
func IdentificationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"statement_type": {
				Type:   genai.TypeString,
				Format: "enum",
				Enum:   []string{"profit_and_loss", "balance_sheet", "unknown"},
			},
			"confidence": {Type: genai.TypeNumber},
			"reasoning":  {Type: genai.TypeString},
		},
		Required:         []string{"statement_type", "confidence", "reasoning"},
		PropertyOrdering: []string{"statement_type", "confidence", "reasoning"},
	}
}

// ProfitAndLossSchema constrains the P&L extraction response.
func ProfitAndLossSchema() *genai.Schema {
	order := []string{
		"statement_type", "company_name", "period_start", "period_end",
		"income_items", "expense_items", "cogs_items",
		"gross_profit", "net_income", "total_income", "total_expenses",
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"statement_type": {Type: genai.TypeString},
			"company_name":   nullable(genai.TypeString),
			"period_start":   nullable(genai.TypeString),
			"period_end":     nullable(genai.TypeString),
			"income_items":   lineItemsSchema(),
			"expense_items":  lineItemsSchema(),
			"cogs_items":     lineItemsSchema(),
			"gross_profit":   nullable(genai.TypeNumber),
			"net_income":     nullable(genai.TypeNumber),
			"total_income":   nullable(genai.TypeNumber),
			"total_expenses": nullable(genai.TypeNumber),
		},
		Required:         order,
		PropertyOrdering: order,
	}
}

// BalanceSheetRawSchema constrains the Balance Sheet extraction response.
func BalanceSheetRawSchema() *genai.Schema {
	order := []string{
		"statement_type", "company_name", "as_of_date", "time_periods",
		"asset_items", "liability_items", "equity_items",
		"total_assets", "total_liabilities", "total_equity",
	}
	totals := func() *genai.Schema {
		return &genai.Schema{
			Type:     genai.TypeArray,
			Items:    &genai.Schema{Type: genai.TypeNumber},
			Nullable: genai.Ptr(true),
		}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"statement_type":    {Type: genai.TypeString},
			"company_name":      nullable(genai.TypeString),
			"as_of_date":        nullable(genai.TypeString),
			"time_periods":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"asset_items":       lineItemsSchema(),
			"liability_items":   lineItemsSchema(),
			"equity_items":      lineItemsSchema(),
			"total_assets":      totals(),
			"total_liabilities": totals(),
			"total_equity":      totals(),
		},
		Required:         order,
		PropertyOrdering: order,
	}
}
