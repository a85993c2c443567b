package domain

// StatementKind identifies which financial statement a spreadsheet holds.
type StatementKind string

const (
	KindProfitAndLoss StatementKind = "profit_and_loss"
	KindBalanceSheet  StatementKind = "balance_sheet"
	KindUnknown       StatementKind = "unknown"
)

// Valid reports whether k is one of the known statement kinds.
func (k StatementKind) Valid() bool {
	switch k {
	case KindProfitAndLoss, KindBalanceSheet, KindUnknown:
		return true
	}
	return false
}

// Label returns a short human-readable name for the kind.
func (k StatementKind) Label() string {
	switch k {
	case KindProfitAndLoss:
		return "P&L"
	case KindBalanceSheet:
		return "Balance Sheet"
	}
	return "Unknown statement"
}

// StatementIdentification is the classifier's verdict for one upload.
// It is not kept after the upload finishes.
type StatementIdentification struct {
	StatementType StatementKind `json:"statement_type"`
	Confidence    float64       `json:"confidence"`
	Reasoning     string        `json:"reasoning"`
}

// LineItem is one labelled monetary observation.
// A nil Value means the cell was blank or unparseable; it is never coerced to zero.
type LineItem struct {
	DisplayName    string   `json:"display_name"`
	Value          *float64 `json:"value"`
	Period         *string  `json:"period"`
	ParentCategory *string  `json:"parent_category"`
}

// ProfitAndLoss is a parsed Profit & Loss statement.
//
// Line item periods are only populated when the source statement itself
// shows several period columns side by side.
type ProfitAndLoss struct {
	StatementType string  `json:"statement_type"`
	CompanyName   *string `json:"company_name"`
	PeriodStart   *string `json:"period_start"`
	PeriodEnd     *string `json:"period_end"`

	IncomeItems  []LineItem `json:"income_items"`
	ExpenseItems []LineItem `json:"expense_items"`
	COGSItems    []LineItem `json:"cogs_items"`

	GrossProfit   *float64 `json:"gross_profit"`
	NetIncome     *float64 `json:"net_income"`
	TotalIncome   *float64 `json:"total_income"`
	TotalExpenses *float64 `json:"total_expenses"`
}

// BalanceSheetRaw is the flat, one-entry-per-account-per-period shape the
// extraction service returns. It only lives until ToKeyed turns it into a
// BalanceSheet.
//
// The totals are positional: index i belongs to TimePeriods[i]. A nil totals
// slice means the statement had no such total; an empty one means it was
// present but empty.
type BalanceSheetRaw struct {
	StatementType string   `json:"statement_type"`
	CompanyName   *string  `json:"company_name"`
	AsOfDate      *string  `json:"as_of_date"`
	TimePeriods   []string `json:"time_periods"`

	AssetItems     []LineItem `json:"asset_items"`
	LiabilityItems []LineItem `json:"liability_items"`
	EquityItems    []LineItem `json:"equity_items"`

	TotalAssets      []float64 `json:"total_assets"`
	TotalLiabilities []float64 `json:"total_liabilities"`
	TotalEquity      []float64 `json:"total_equity"`
}

// PeriodValues maps a period label to its value.
type PeriodValues map[string]*float64

// KeyedAccounts maps an account name to its per-period values.
type KeyedAccounts map[string]PeriodValues

// BalanceSheet is the keyed form kept in the statement store.
// A nil totals mapping means the statement had no such total.
type BalanceSheet struct {
	StatementType string   `json:"statement_type"`
	CompanyName   *string  `json:"company_name"`
	AsOfDate      *string  `json:"as_of_date"`
	TimePeriods   []string `json:"time_periods"`

	Assets      KeyedAccounts `json:"assets"`
	Liabilities KeyedAccounts `json:"liabilities"`
	Equity      KeyedAccounts `json:"equity"`

	TotalAssets      PeriodValues `json:"total_assets"`
	TotalLiabilities PeriodValues `json:"total_liabilities"`
	TotalEquity      PeriodValues `json:"total_equity"`
}
