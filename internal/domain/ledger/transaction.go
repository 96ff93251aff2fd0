package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/ledger/internal/domain/shared"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TxnType marks what kind of document generated a transaction
type TxnType string

const (
	TxnTypeNone    TxnType = ""
	TxnTypeInvoice TxnType = "INVOICE"
	TxnTypePayment TxnType = "PAYMENT"
)

// Transaction is a group of splits that must sum to zero. All mutation
// happens between BeginEdit and CommitEdit; the zero-sum invariant is
// enforced at the outermost commit and the edit is rolled back when it
// does not hold.
type Transaction struct {
	id          uuid.UUID
	description string
	num         string
	currency    valueobject.Currency
	dateEntered time.Time
	datePosted  time.Time
	dateDue     time.Time
	txnType     TxnType
	readOnly    string
	splits      []*Split
	slots       map[string]string

	edit     shared.EditState
	doomed   bool
	snapshot []*Split
}

// NewTransaction creates an empty transaction in the given currency
func NewTransaction(currency valueobject.Currency) *Transaction {
	return &Transaction{
		id:       uuid.New(),
		currency: currency,
		slots:    make(map[string]string),
	}
}

// ID returns the transaction identifier
func (t *Transaction) ID() uuid.UUID {
	return t.id
}

// Description returns the transaction description
func (t *Transaction) Description() string {
	return t.description
}

// SetDescription sets the transaction description
func (t *Transaction) SetDescription(desc string) error {
	if t.readOnly != "" {
		return ErrReadOnly
	}
	t.description = desc
	return nil
}

// Num returns the transaction reference number
func (t *Transaction) Num() string {
	return t.num
}

// SetNum sets the transaction reference number
func (t *Transaction) SetNum(num string) error {
	if t.readOnly != "" {
		return ErrReadOnly
	}
	t.num = num
	return nil
}

// Currency returns the transaction currency
func (t *Transaction) Currency() valueobject.Currency {
	return t.currency
}

// SetCurrency sets the transaction currency
func (t *Transaction) SetCurrency(currency valueobject.Currency) error {
	if t.readOnly != "" {
		return ErrReadOnly
	}
	t.currency = currency
	return nil
}

// DateEntered returns when the transaction was entered
func (t *Transaction) DateEntered() time.Time {
	return t.dateEntered
}

// SetDateEntered sets when the transaction was entered
func (t *Transaction) SetDateEntered(date time.Time) {
	t.dateEntered = date
}

// DatePosted returns the posting date
func (t *Transaction) DatePosted() time.Time {
	return t.datePosted
}

// SetDatePosted sets the posting date
func (t *Transaction) SetDatePosted(date time.Time) {
	t.datePosted = date
}

// DateDue returns the due date
func (t *Transaction) DateDue() time.Time {
	return t.dateDue
}

// SetDateDue sets the due date
func (t *Transaction) SetDateDue(date time.Time) {
	t.dateDue = date
}

// Type returns the document type marker
func (t *Transaction) Type() TxnType {
	return t.txnType
}

// SetType sets the document type marker
func (t *Transaction) SetType(txnType TxnType) {
	t.txnType = txnType
}

// ReadOnlyReason returns why the transaction is read-only, or ""
func (t *Transaction) ReadOnlyReason() string {
	return t.readOnly
}

// SetReadOnly freezes the transaction with an explanatory reason
func (t *Transaction) SetReadOnly(reason string) {
	t.readOnly = reason
}

// ClearReadOnly lifts the read-only flag
func (t *Transaction) ClearReadOnly() {
	t.readOnly = ""
}

// Splits returns the member splits
func (t *Transaction) Splits() []*Split {
	return t.splits
}

// CountSplits returns the number of member splits
func (t *Transaction) CountSplits() int {
	return len(t.splits)
}

// Slot returns a side-table value by key, or ""
func (t *Transaction) Slot(key string) string {
	return t.slots[key]
}

// SetSlot stores a side-table value; an empty value removes the key
func (t *Transaction) SetSlot(key, value string) {
	if value == "" {
		delete(t.slots, key)
		return
	}
	t.slots[key] = value
}

// BeginEdit opens a (re-entrant) edit session. The outermost open
// snapshots the split list for rollback.
func (t *Transaction) BeginEdit() {
	if t.edit.BeginEdit() {
		t.snapshot = make([]*Split, len(t.splits))
		copy(t.snapshot, t.splits)
	}
}

// AppendSplit adds a split to the transaction. The transaction must be
// in an open edit session.
func (t *Transaction) AppendSplit(split *Split) error {
	if split == nil {
		return shared.ErrInvalidInput
	}
	if !t.edit.InEdit() {
		return ErrNotInEdit
	}
	if t.readOnly != "" {
		return ErrReadOnly
	}
	split.transaction = t
	t.splits = append(t.splits, split)
	return nil
}

// Destroy marks the transaction for removal at commit. Its splits are
// unlinked from their accounts and lots when the outer edit commits.
func (t *Transaction) Destroy() error {
	if !t.edit.InEdit() {
		return ErrNotInEdit
	}
	if t.readOnly != "" {
		return ErrReadOnly
	}
	t.doomed = true
	return nil
}

// Balance returns the signed sum of all split values
func (t *Transaction) Balance() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range t.splits {
		sum = sum.Add(s.Value().Amount())
	}
	return sum
}

// CommitEdit closes the current edit session. At the outermost close
// the zero-sum invariant is checked; an unbalanced edit is rolled back
// to the snapshot taken at BeginEdit. A destroyed transaction unlinks
// its splits instead.
func (t *Transaction) CommitEdit() error {
	if !t.edit.EndEdit() {
		return nil
	}

	if t.doomed {
		for _, s := range t.splits {
			if s.lot != nil {
				s.lot.RemoveSplit(s)
			}
			if s.account != nil {
				s.account.removeSplit(s)
			}
			s.transaction = nil
		}
		t.splits = nil
		t.snapshot = nil
		return nil
	}

	if !t.Balance().IsZero() {
		added := make(map[uuid.UUID]bool, len(t.snapshot))
		for _, s := range t.snapshot {
			added[s.id] = true
		}
		for _, s := range t.splits {
			if added[s.id] {
				continue
			}
			if s.lot != nil {
				s.lot.RemoveSplit(s)
			}
			if s.account != nil {
				s.account.removeSplit(s)
			}
			s.transaction = nil
		}
		t.splits = t.snapshot
		t.snapshot = nil
		return ErrUnbalanced
	}

	t.snapshot = nil
	return nil
}
