package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/openbooks/ledger/internal/domain/shared"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AccountType enumerates the account kinds the engine cares about
type AccountType string

const (
	AccountTypeReceivable AccountType = "RECEIVABLE"
	AccountTypePayable    AccountType = "PAYABLE"
	AccountTypeIncome     AccountType = "INCOME"
	AccountTypeExpense    AccountType = "EXPENSE"
	AccountTypeAsset      AccountType = "ASSET"
	AccountTypeBank       AccountType = "BANK"
	AccountTypeLiability  AccountType = "LIABILITY"
)

// Account holds splits and lots for one ledger account
type Account struct {
	id        uuid.UUID
	name      string
	acctType  AccountType
	commodity valueobject.Currency
	splits    []*Split
	lots      []*Lot
	edit      shared.EditState
}

// NewAccount creates an account of the given type and commodity
func NewAccount(name string, acctType AccountType, commodity valueobject.Currency) *Account {
	return &Account{
		id:        uuid.New(),
		name:      name,
		acctType:  acctType,
		commodity: commodity,
	}
}

// ID returns the account identifier
func (a *Account) ID() uuid.UUID {
	return a.id
}

// Name returns the account name
func (a *Account) Name() string {
	return a.name
}

// Type returns the account type
func (a *Account) Type() AccountType {
	return a.acctType
}

// Commodity returns the account commodity
func (a *Account) Commodity() valueobject.Currency {
	return a.commodity
}

// Splits returns all splits posted to the account
func (a *Account) Splits() []*Split {
	return a.splits
}

// Lots returns all lots in the account
func (a *Account) Lots() []*Lot {
	return a.lots
}

// Balance returns the signed sum of all split values in the account
func (a *Account) Balance() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range a.splits {
		sum = sum.Add(s.Value().Amount())
	}
	return sum
}

// BeginEdit opens a (re-entrant) edit session on the account
func (a *Account) BeginEdit() {
	a.edit.BeginEdit()
}

// CommitEdit closes the current edit session
func (a *Account) CommitEdit() {
	a.edit.EndEdit()
}

// InsertSplit posts a split to this account, detaching it from any
// previous account
func (a *Account) InsertSplit(split *Split) {
	if split == nil {
		return
	}
	if split.account == a {
		return
	}
	if split.account != nil {
		split.account.removeSplit(split)
	}
	split.account = a
	a.splits = append(a.splits, split)
}

func (a *Account) removeSplit(split *Split) {
	for i, s := range a.splits {
		if s == split {
			a.splits = append(a.splits[:i], a.splits[i+1:]...)
			break
		}
	}
	split.account = nil
}

func (a *Account) removeLot(lot *Lot) {
	for i, l := range a.lots {
		if l == lot {
			a.lots = append(a.lots[:i], a.lots[i+1:]...)
			break
		}
	}
}

// FindOpenLots returns the account's open lots, optionally filtered by
// pred and ordered by less. A nil pred matches every open lot; a nil
// less keeps the account's insertion order.
func (a *Account) FindOpenLots(pred func(*Lot) bool, less func(a, b *Lot) bool) []*Lot {
	var open []*Lot
	for _, lot := range a.lots {
		if lot.IsClosed() {
			continue
		}
		if pred != nil && !pred(lot) {
			continue
		}
		open = append(open, lot)
	}
	if less != nil {
		sort.SliceStable(open, func(i, j int) bool { return less(open[i], open[j]) })
	}
	return open
}
