package ledger

import (
	"github.com/google/uuid"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
)

// Split is one leg of a balanced transaction, posted to exactly one
// account and optionally grouped into a lot.
type Split struct {
	id     uuid.UUID
	memo   string
	action string
	value  valueobject.Money

	account     *Account
	transaction *Transaction
	lot         *Lot
}

// NewSplit creates a detached split with a zero value in the given currency
func NewSplit(currency valueobject.Currency) *Split {
	return &Split{
		id:    uuid.New(),
		value: valueobject.Zero(currency),
	}
}

// ID returns the split identifier
func (s *Split) ID() uuid.UUID {
	return s.id
}

// Memo returns the split memo
func (s *Split) Memo() string {
	return s.memo
}

// SetMemo sets the split memo
func (s *Split) SetMemo(memo string) {
	s.memo = memo
}

// Action returns the split action label
func (s *Split) Action() string {
	return s.action
}

// SetAction sets the split action label
func (s *Split) SetAction(action string) {
	s.action = action
}

// Value returns the split value
func (s *Split) Value() valueobject.Money {
	return s.value
}

// SetValue sets the split value
func (s *Split) SetValue(value valueobject.Money) {
	s.value = value
}

// Account returns the account this split is posted to, or nil
func (s *Split) Account() *Account {
	return s.account
}

// Transaction returns the owning transaction, or nil
func (s *Split) Transaction() *Transaction {
	return s.transaction
}

// Lot returns the lot this split belongs to, or nil
func (s *Split) Lot() *Lot {
	return s.lot
}
