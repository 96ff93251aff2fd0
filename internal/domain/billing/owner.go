package billing

import (
	"github.com/google/uuid"
	"github.com/openbooks/ledger/internal/domain/ledger"
	"github.com/openbooks/ledger/internal/domain/shared"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
)

// OwnerType tags the counterparty kind behind a document
type OwnerType string

const (
	OwnerTypeNone     OwnerType = "NONE"
	OwnerTypeCustomer OwnerType = "CUSTOMER"
	OwnerTypeVendor   OwnerType = "VENDOR"
	OwnerTypeEmployee OwnerType = "EMPLOYEE"
	OwnerTypeJob      OwnerType = "JOB"
)

// IsValid checks if the owner type is valid
func (t OwnerType) IsValid() bool {
	switch t {
	case OwnerTypeNone, OwnerTypeCustomer, OwnerTypeVendor, OwnerTypeEmployee, OwnerTypeJob:
		return true
	}
	return false
}

// String returns the string representation of OwnerType
func (t OwnerType) String() string {
	return string(t)
}

// Owner is a tagged reference to the counterparty of a document. It is
// a value; the record it points to lives in the book registries. A Job
// owner collapses to its billable Customer or Vendor via Book.EndOwner.
type Owner struct {
	Type OwnerType
	ID   uuid.UUID
}

// NoOwner is the zero counterparty reference
var NoOwner = Owner{Type: OwnerTypeNone}

// Equal reports whether two owner references name the same counterparty
func (o Owner) Equal(other Owner) bool {
	return o.Type == other.Type && o.ID == other.ID
}

// IsZero reports whether the reference names no concrete counterparty
func (o Owner) IsZero() bool {
	return o.Type == OwnerTypeNone || o.Type == "" || o.ID == uuid.Nil
}

// Customer is a counterparty that is billed through sales invoices
type Customer struct {
	shared.BaseEntity
	Name     string
	Currency valueobject.Currency
}

// Owner returns the reference for this customer
func (c *Customer) Owner() Owner {
	return Owner{Type: OwnerTypeCustomer, ID: c.ID}
}

// Vendor is a counterparty that bills us through purchase bills
type Vendor struct {
	shared.BaseEntity
	Name     string
	Currency valueobject.Currency
}

// Owner returns the reference for this vendor
func (v *Vendor) Owner() Owner {
	return Owner{Type: OwnerTypeVendor, ID: v.ID}
}

// Employee is a counterparty for expense vouchers
type Employee struct {
	shared.BaseEntity
	Name     string
	Currency valueobject.Currency
}

// Owner returns the reference for this employee
func (e *Employee) Owner() Owner {
	return Owner{Type: OwnerTypeEmployee, ID: e.ID}
}

// Job groups documents under a customer or vendor; it is never the end
// counterparty itself
type Job struct {
	shared.BaseEntity
	Name   string
	Parent Owner
}

// Owner returns the reference for this job
func (j *Job) Owner() Owner {
	return Owner{Type: OwnerTypeJob, ID: j.ID}
}

// Side-table keys used to cross-link lots and transactions back to the
// billing domain without ownership pointers.
const (
	slotInvoiceID = "billing/invoice-id"
	slotOwnerType = "billing/owner-type"
	slotOwnerID   = "billing/owner-id"
)

// AttachOwnerToLot records the owner reference in the lot side-table
func AttachOwnerToLot(lot *ledger.Lot, owner Owner) {
	if lot == nil || owner.IsZero() {
		return
	}
	lot.SetSlot(slotOwnerType, string(owner.Type))
	lot.SetSlot(slotOwnerID, owner.ID.String())
}

// OwnerFromLot resolves the owner reference recorded in the lot
// side-table. The second return is false when none is recorded.
func OwnerFromLot(lot *ledger.Lot) (Owner, bool) {
	if lot == nil {
		return NoOwner, false
	}
	t := OwnerType(lot.Slot(slotOwnerType))
	if !t.IsValid() || t == OwnerTypeNone {
		return NoOwner, false
	}
	id, err := uuid.Parse(lot.Slot(slotOwnerID))
	if err != nil {
		return NoOwner, false
	}
	return Owner{Type: t, ID: id}, true
}
