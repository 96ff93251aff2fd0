package ledger

import (
	"github.com/google/uuid"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Lot is a running-balance bucket of splits, used to track whether the
// document or counterparty balance behind it has been settled. A lot is
// closed once it holds at least one split and its balance is zero.
type Lot struct {
	id      uuid.UUID
	account *Account
	splits  []*Split
	slots   map[string]string
}

// NewLot creates an empty lot attached to the given account
func NewLot(account *Account) *Lot {
	lot := &Lot{
		id:    uuid.New(),
		slots: make(map[string]string),
	}
	if account != nil {
		lot.account = account
		account.lots = append(account.lots, lot)
	}
	return lot
}

// ID returns the lot identifier
func (l *Lot) ID() uuid.UUID {
	return l.id
}

// Account returns the account this lot lives in, or nil
func (l *Lot) Account() *Account {
	return l.account
}

// Splits returns the member splits
func (l *Lot) Splits() []*Split {
	return l.splits
}

// CountSplits returns the number of member splits
func (l *Lot) CountSplits() int {
	return len(l.splits)
}

// Balance returns the signed sum of all member split values
func (l *Lot) Balance() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range l.splits {
		sum = sum.Add(s.Value().Amount())
	}
	return sum
}

// BalanceMoney returns the balance in the given currency
func (l *Lot) BalanceMoney(currency valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(l.Balance(), currency)
	return m
}

// IsClosed reports whether the lot is settled: it holds splits and they
// net to zero
func (l *Lot) IsClosed() bool {
	return len(l.splits) > 0 && l.Balance().IsZero()
}

// AddSplit adds a split to the lot, detaching it from any previous lot
func (l *Lot) AddSplit(split *Split) {
	if split == nil {
		return
	}
	if split.lot == l {
		return
	}
	if split.lot != nil {
		split.lot.RemoveSplit(split)
	}
	split.lot = l
	l.splits = append(l.splits, split)
}

// RemoveSplit removes a split from the lot
func (l *Lot) RemoveSplit(split *Split) {
	if split == nil || split.lot != l {
		return
	}
	split.lot = nil
	for i, s := range l.splits {
		if s == split {
			l.splits = append(l.splits[:i], l.splits[i+1:]...)
			break
		}
	}
}

// Slot returns a side-table value by key, or ""
func (l *Lot) Slot(key string) string {
	return l.slots[key]
}

// SetSlot stores a side-table value; an empty value removes the key
func (l *Lot) SetSlot(key, value string) {
	if value == "" {
		delete(l.slots, key)
		return
	}
	l.slots[key] = value
}

// Destroy detaches the lot from its account and releases its splits.
// The splits themselves are not destroyed, only unlinked.
func (l *Lot) Destroy() {
	for _, s := range l.splits {
		s.lot = nil
	}
	l.splits = nil
	if l.account != nil {
		l.account.removeLot(l)
		l.account = nil
	}
}
