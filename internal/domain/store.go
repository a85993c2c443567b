package domain

// StatementStore holds at most one P&L and one Balance Sheet for a session.
//
// It is owned by exactly one session and is not safe for concurrent use;
// the session serialises access.
type StatementStore struct {
	profitAndLoss *ProfitAndLoss
	balanceSheet  *BalanceSheet
}

// NewStatementStore returns an empty store.
func NewStatementStore() *StatementStore {
	return &StatementStore{}
}

// ProfitAndLoss returns the stored P&L, or nil.
func (s *StatementStore) ProfitAndLoss() *ProfitAndLoss {
	return s.profitAndLoss
}

// BalanceSheet returns the stored Balance Sheet, or nil.
func (s *StatementStore) BalanceSheet() *BalanceSheet {
	return s.balanceSheet
}

// SetProfitAndLoss replaces the P&L slot wholesale.
func (s *StatementStore) SetProfitAndLoss(pl *ProfitAndLoss) {
	s.profitAndLoss = pl
}

// SetBalanceSheet replaces the Balance Sheet slot wholesale.
func (s *StatementStore) SetBalanceSheet(bs *BalanceSheet) {
	s.balanceSheet = bs
}

// Empty reports whether neither slot is filled.
func (s *StatementStore) Empty() bool {
	return s.profitAndLoss == nil && s.balanceSheet == nil
}

// Reset clears both slots.
func (s *StatementStore) Reset() {
	s.profitAndLoss = nil
	s.balanceSheet = nil
}
