package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillTerm is a shared, reference-counted payment-terms template
// (e.g. "net 30"). Posting a document freezes a child copy so later
// edits to the template never retroactively change posted documents.
type BillTerm struct {
	id           uuid.UUID
	name         string
	description  string
	dueDays      int
	discountDays int
	discount     decimal.Decimal
	parent       *BillTerm
	refcount     int
}

// NewBillTerm creates a new terms template
func NewBillTerm(name string, dueDays, discountDays int, discount decimal.Decimal) *BillTerm {
	return &BillTerm{
		id:           uuid.New(),
		name:         name,
		dueDays:      dueDays,
		discountDays: discountDays,
		discount:     discount,
	}
}

// ID returns the term identifier
func (t *BillTerm) ID() uuid.UUID {
	return t.id
}

// Name returns the term name
func (t *BillTerm) Name() string {
	return t.name
}

// Description returns the term description
func (t *BillTerm) Description() string {
	return t.description
}

// SetDescription sets the term description
func (t *BillTerm) SetDescription(desc string) {
	t.description = desc
}

// DueDays returns the number of days until payment is due
func (t *BillTerm) DueDays() int {
	return t.dueDays
}

// DiscountDays returns the early-payment discount window in days
func (t *BillTerm) DiscountDays() int {
	return t.discountDays
}

// Discount returns the early-payment discount percentage
func (t *BillTerm) Discount() decimal.Decimal {
	return t.discount
}

// Parent returns the template this term was forked from, or nil
func (t *BillTerm) Parent() *BillTerm {
	return t.parent
}

// IsChild reports whether this term is a frozen fork of a template
func (t *BillTerm) IsChild() bool {
	return t.parent != nil
}

// IncRef takes a reference on the term
func (t *BillTerm) IncRef() {
	t.refcount++
}

// DecRef drops a reference on the term
func (t *BillTerm) DecRef() {
	if t.refcount > 0 {
		t.refcount--
	}
}

// RefCount returns the current reference count
func (t *BillTerm) RefCount() int {
	return t.refcount
}

// Child returns a frozen copy of the template suitable for attaching to
// a posted document. A term that already is a child is returned as-is.
func (t *BillTerm) Child() *BillTerm {
	if t == nil {
		return nil
	}
	if t.parent != nil {
		return t
	}
	return &BillTerm{
		id:           uuid.New(),
		name:         t.name,
		description:  t.description,
		dueDays:      t.dueDays,
		discountDays: t.discountDays,
		discount:     t.discount,
		parent:       t,
	}
}

// DueDate computes the due date for a document posted on the given date
func (t *BillTerm) DueDate(postDate time.Time) time.Time {
	return postDate.AddDate(0, 0, t.dueDays)
}
