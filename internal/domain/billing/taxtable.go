package billing

import (
	"github.com/google/uuid"
	"github.com/openbooks/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// TaxAmountType says how a tax table entry amount is interpreted
type TaxAmountType string

const (
	TaxAmountPercent TaxAmountType = "PERCENT" // percentage of the entry value
	TaxAmountValue   TaxAmountType = "VALUE"   // flat amount per document line
)

// TaxTableEntry is one tax component: an amount posted to a tax account
type TaxTableEntry struct {
	Account *ledger.Account
	Amount  decimal.Decimal
	Type    TaxAmountType
}

// TaxTable is a shared, reference-counted list of tax components. Like
// BillTerm it is frozen into a child copy at posting time.
type TaxTable struct {
	id       uuid.UUID
	name     string
	entries  []TaxTableEntry
	parent   *TaxTable
	refcount int
}

// NewTaxTable creates a new tax table template
func NewTaxTable(name string, entries ...TaxTableEntry) *TaxTable {
	return &TaxTable{
		id:      uuid.New(),
		name:    name,
		entries: entries,
	}
}

// ID returns the table identifier
func (t *TaxTable) ID() uuid.UUID {
	return t.id
}

// Name returns the table name
func (t *TaxTable) Name() string {
	return t.name
}

// Entries returns the tax components
func (t *TaxTable) Entries() []TaxTableEntry {
	return t.entries
}

// Parent returns the template this table was forked from, or nil
func (t *TaxTable) Parent() *TaxTable {
	return t.parent
}

// IsChild reports whether this table is a frozen fork of a template
func (t *TaxTable) IsChild() bool {
	return t.parent != nil
}

// IncRef takes a reference on the table
func (t *TaxTable) IncRef() {
	t.refcount++
}

// DecRef drops a reference on the table
func (t *TaxTable) DecRef() {
	if t.refcount > 0 {
		t.refcount--
	}
}

// RefCount returns the current reference count
func (t *TaxTable) RefCount() int {
	return t.refcount
}

// Child returns a frozen copy of the template suitable for attaching to
// a posted document. A table that already is a child is returned as-is.
func (t *TaxTable) Child() *TaxTable {
	if t == nil {
		return nil
	}
	if t.parent != nil {
		return t
	}
	entries := make([]TaxTableEntry, len(t.entries))
	copy(entries, t.entries)
	return &TaxTable{
		id:      uuid.New(),
		name:    t.name,
		entries: entries,
		parent:  t,
	}
}
