package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/dvloznov/statement-analyst/internal/domain"
)

// transformIdentification converts a decoded classifier object.
func transformIdentification(obj map[string]interface{}) (*domain.StatementIdentification, error) {
	kind, err := getStringField(obj, "statement_type", true)
	if err != nil {
		return nil, err
	}
	k := domain.StatementKind(kind)
	if !k.Valid() {
		return nil, fmt.Errorf("field \"statement_type\" is %q, want one of profit_and_loss, balance_sheet, unknown", kind)
	}

	confidence, err := getFloat64Field(obj, "confidence", true)
	if err != nil {
		return nil, err
	}
	if confidence < 0 || confidence > 1 || math.IsNaN(confidence) {
		return nil, fmt.Errorf("field \"confidence\" is %v, want a number in [0, 1]", confidence)
	}

	reasoning, err := getStringField(obj, "reasoning", false)
	if err != nil {
		return nil, err
	}

	return &domain.StatementIdentification{
		StatementType: k,
		Confidence:    confidence,
		Reasoning:     reasoning,
	}, nil
}

// transformProfitAndLoss converts a decoded P&L object.
func transformProfitAndLoss(obj map[string]interface{}) (*domain.ProfitAndLoss, error) {
	pl := &domain.ProfitAndLoss{}
	var err error

	if pl.StatementType, err = getStringField(obj, "statement_type", true); err != nil {
		return nil, err
	}
	if pl.CompanyName, err = getOptionalStringField(obj, "company_name"); err != nil {
		return nil, err
	}
	if pl.PeriodStart, err = getOptionalStringField(obj, "period_start"); err != nil {
		return nil, err
	}
	if pl.PeriodEnd, err = getOptionalStringField(obj, "period_end"); err != nil {
		return nil, err
	}

	if pl.IncomeItems, err = getLineItemsField(obj, "income_items"); err != nil {
		return nil, err
	}
	if pl.ExpenseItems, err = getLineItemsField(obj, "expense_items"); err != nil {
		return nil, err
	}
	if pl.COGSItems, err = getLineItemsField(obj, "cogs_items"); err != nil {
		return nil, err
	}

	if pl.GrossProfit, err = getOptionalFloat64Field(obj, "gross_profit"); err != nil {
		return nil, err
	}
	if pl.NetIncome, err = getOptionalFloat64Field(obj, "net_income"); err != nil {
		return nil, err
	}
	if pl.TotalIncome, err = getOptionalFloat64Field(obj, "total_income"); err != nil {
		return nil, err
	}
	if pl.TotalExpenses, err = getOptionalFloat64Field(obj, "total_expenses"); err != nil {
		return nil, err
	}

	return pl, nil
}

// transformBalanceSheetRaw converts a decoded Balance Sheet object.
func transformBalanceSheetRaw(obj map[string]interface{}) (*domain.BalanceSheetRaw, error) {
	bs := &domain.BalanceSheetRaw{}
	var err error

	if bs.StatementType, err = getStringField(obj, "statement_type", true); err != nil {
		return nil, err
	}
	if bs.CompanyName, err = getOptionalStringField(obj, "company_name"); err != nil {
		return nil, err
	}
	if bs.AsOfDate, err = getOptionalStringField(obj, "as_of_date"); err != nil {
		return nil, err
	}
	if bs.TimePeriods, err = getStringArrayField(obj, "time_periods"); err != nil {
		return nil, err
	}

	if bs.AssetItems, err = getLineItemsField(obj, "asset_items"); err != nil {
		return nil, err
	}
	if bs.LiabilityItems, err = getLineItemsField(obj, "liability_items"); err != nil {
		return nil, err
	}
	if bs.EquityItems, err = getLineItemsField(obj, "equity_items"); err != nil {
		return nil, err
	}

	if bs.TotalAssets, err = getOptionalFloat64ArrayField(obj, "total_assets"); err != nil {
		return nil, err
	}
	if bs.TotalLiabilities, err = getOptionalFloat64ArrayField(obj, "total_liabilities"); err != nil {
		return nil, err
	}
	if bs.TotalEquity, err = getOptionalFloat64ArrayField(obj, "total_equity"); err != nil {
		return nil, err
	}

	return bs, nil
}

func transformLineItem(obj map[string]interface{}) (domain.LineItem, error) {
	name, err := getStringField(obj, "display_name", true)
	if err != nil {
		return domain.LineItem{}, err
	}
	value, err := getOptionalFloat64Field(obj, "value")
	if err != nil {
		return domain.LineItem{}, err
	}
	period, err := getOptionalStringField(obj, "period")
	if err != nil {
		return domain.LineItem{}, err
	}
	parent, err := getOptionalStringField(obj, "parent_category")
	if err != nil {
		return domain.LineItem{}, err
	}
	return domain.LineItem{
		DisplayName:    name,
		Value:          value,
		Period:         period,
		ParentCategory: parent,
	}, nil
}

func getLineItemsField(m map[string]interface{}, key string) ([]domain.LineItem, error) {
	arr, err := getArrayField(m, key)
	if err != nil {
		return nil, err
	}
	items := make([]domain.LineItem, 0, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s[%d] has type %T, want object", key, i, el)
		}
		item, err := transformLineItem(obj)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

func getOptionalFloat64Field(m map[string]interface{}, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case float64:
		f := val
		return &f, nil
	case int:
		f := float64(val)
		return &f, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want number or null", key, v)
	}
}

// getArrayField requires key to be present and hold an array.
func getArrayField(m map[string]interface{}, key string) ([]interface{}, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("missing required field %q", key)
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q has type %T, want array", key, v)
	}
	return arr, nil
}

// getStringArrayField trims each entry the same way line-item periods are
// trimmed, so period labels from both sources match.
func getStringArrayField(m map[string]interface{}, key string) ([]string, error) {
	arr, err := getArrayField(m, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for i, el := range arr {
		s, ok := el.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] has type %T, want string", key, i, el)
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, nil
}

// getOptionalFloat64ArrayField returns nil for a missing or null key and a
// non-nil (possibly empty) slice otherwise.
func getOptionalFloat64ArrayField(m map[string]interface{}, key string) ([]float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q has type %T, want array of numbers or null", key, v)
	}
	out := make([]float64, 0, len(arr))
	for i, el := range arr {
		f, ok := el.(float64)
		if !ok {
			return nil, fmt.Errorf("%s[%d] has type %T, want number", key, i, el)
		}
		out = append(out, f)
	}
	return out, nil
}
