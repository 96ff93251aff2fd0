package billing

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/ledger/internal/domain/ledger"
	"github.com/openbooks/ledger/internal/domain/shared"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Invoice is the billing document aggregate. One type covers all three
// document flavors: a customer invoice, a vendor bill and an employee
// expense voucher; the owner type decides which. All mutation runs
// inside a BeginEdit/CommitEdit session; the outermost commit drives
// the backend save, the domain events and the deferred free.
type Invoice struct {
	shared.BaseAggregateRoot

	book     *Book
	owner    Owner
	billTo   Owner
	currency valueobject.Currency

	displayID string
	notes     string
	billingID string
	terms     *BillTerm
	active    bool

	dateOpened time.Time
	datePosted time.Time

	entries []*Entry

	postedTxn *ledger.Transaction
	postedLot *ledger.Lot
	postedAcc *ledger.Account

	edit shared.EditState
}

// NewInvoice creates a document for the given counterparty and
// registers it in the book. The display id is drawn from the book
// counter when id is empty.
func NewInvoice(book *Book, owner Owner, currency valueobject.Currency, dateOpened time.Time, id string) (*Invoice, error) {
	if book == nil {
		return nil, shared.ErrInvalidInput
	}
	if owner.IsZero() {
		return nil, ErrNoOwner
	}
	if currency == "" {
		currency = book.OwnerCurrency(owner)
	}
	if id == "" {
		id = fmt.Sprintf("%06d", book.NextID(aggregateTypeInvoice))
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		book:              book,
		owner:             owner,
		currency:          currency,
		displayID:         book.strings.Intern(id),
		notes:             book.strings.Intern(""),
		billingID:         book.strings.Intern(""),
		active:            true,
		dateOpened:        dateOpened,
	}
	book.registerInvoice(inv)
	book.MarkDirty(aggregateTypeInvoice)
	book.publish(NewInvoiceCreatedEvent(inv.ID, inv.displayID, owner))
	return inv, nil
}

// Book returns the session this document lives in
func (inv *Invoice) Book() *Book {
	return inv.book
}

// Owner returns the counterparty reference
func (inv *Invoice) Owner() Owner {
	return inv.owner
}

// EndOwner returns the billable counterparty behind the owner reference
func (inv *Invoice) EndOwner() Owner {
	return inv.book.EndOwner(inv.owner)
}

// BillTo returns the override charge-to counterparty, or the zero owner
func (inv *Invoice) BillTo() Owner {
	return inv.billTo
}

// SetBillTo sets the override charge-to counterparty
func (inv *Invoice) SetBillTo(owner Owner) error {
	if inv.billTo.Equal(owner) {
		return nil
	}
	inv.BeginEdit()
	inv.billTo = owner
	inv.markModified()
	return inv.CommitEdit()
}

// Currency returns the document currency
func (inv *Invoice) Currency() valueobject.Currency {
	return inv.currency
}

// SetCurrency sets the document currency
func (inv *Invoice) SetCurrency(currency valueobject.Currency) error {
	if inv.currency == currency {
		return nil
	}
	inv.BeginEdit()
	inv.currency = currency
	inv.markModified()
	return inv.CommitEdit()
}

// DisplayID returns the human-facing document id
func (inv *Invoice) DisplayID() string {
	return inv.displayID
}

// SetDisplayID sets the human-facing document id
func (inv *Invoice) SetDisplayID(id string) error {
	if inv.displayID == id {
		return nil
	}
	inv.BeginEdit()
	inv.book.strings.Release(inv.displayID)
	inv.displayID = inv.book.strings.Intern(id)
	inv.markModified()
	return inv.CommitEdit()
}

// Notes returns the free-form document notes
func (inv *Invoice) Notes() string {
	return inv.notes
}

// SetNotes sets the free-form document notes
func (inv *Invoice) SetNotes(notes string) error {
	if inv.notes == notes {
		return nil
	}
	inv.BeginEdit()
	inv.book.strings.Release(inv.notes)
	inv.notes = inv.book.strings.Intern(notes)
	inv.markModified()
	return inv.CommitEdit()
}

// BillingID returns the counterparty's own reference for this document
func (inv *Invoice) BillingID() string {
	return inv.billingID
}

// SetBillingID sets the counterparty's own reference for this document
func (inv *Invoice) SetBillingID(id string) error {
	if inv.billingID == id {
		return nil
	}
	inv.BeginEdit()
	inv.book.strings.Release(inv.billingID)
	inv.billingID = inv.book.strings.Intern(id)
	inv.markModified()
	return inv.CommitEdit()
}

// Terms returns the payment terms attached to the document, or nil
func (inv *Invoice) Terms() *BillTerm {
	return inv.terms
}

// SetTerms replaces the payment terms, adjusting reference counts
func (inv *Invoice) SetTerms(terms *BillTerm) error {
	if inv.terms == terms {
		return nil
	}
	inv.BeginEdit()
	if inv.terms != nil {
		inv.terms.DecRef()
	}
	if terms != nil {
		terms.IncRef()
	}
	inv.terms = terms
	inv.markModified()
	return inv.CommitEdit()
}

// Active reports whether the document is active
func (inv *Invoice) Active() bool {
	return inv.active
}

// SetActive sets the active flag
func (inv *Invoice) SetActive(active bool) error {
	if inv.active == active {
		return nil
	}
	inv.BeginEdit()
	inv.active = active
	inv.markModified()
	return inv.CommitEdit()
}

// DateOpened returns the date the document was opened
func (inv *Invoice) DateOpened() time.Time {
	return inv.dateOpened
}

// SetDateOpened sets the date the document was opened
func (inv *Invoice) SetDateOpened(date time.Time) error {
	if inv.dateOpened.Equal(date) {
		return nil
	}
	inv.BeginEdit()
	inv.dateOpened = date
	inv.markModified()
	return inv.CommitEdit()
}

// DatePosted returns the posting date, or the zero time when unposted
func (inv *Invoice) DatePosted() time.Time {
	return inv.datePosted
}

// DateDue returns the due date of the posting transaction. An unposted
// document has no due date.
func (inv *Invoice) DateDue() time.Time {
	if inv.postedTxn == nil {
		return time.Time{}
	}
	return inv.postedTxn.DateDue()
}

// IsPosted reports whether the document has been posted to the ledger
func (inv *Invoice) IsPosted() bool {
	return !inv.datePosted.IsZero()
}

// PostedTxn returns the transaction created at posting time, or nil
func (inv *Invoice) PostedTxn() *ledger.Transaction {
	return inv.postedTxn
}

// PostedLot returns the settlement lot created at posting time, or nil
func (inv *Invoice) PostedLot() *ledger.Lot {
	return inv.postedLot
}

// PostedAcc returns the receivable or payable account posted to, or nil
func (inv *Invoice) PostedAcc() *ledger.Account {
	return inv.postedAcc
}

// SetPostedTxn records the posting transaction. The field is write
// once; clearing it again is the job of Unpost.
func (inv *Invoice) SetPostedTxn(txn *ledger.Transaction) error {
	if inv.postedTxn != nil {
		inv.book.logger.Error("posted transaction already set",
			zap.String("invoice", inv.displayID))
		return shared.ErrInvalidState
	}
	inv.BeginEdit()
	inv.postedTxn = txn
	inv.markModified()
	return inv.CommitEdit()
}

// SetPostedLot records the settlement lot. The field is write once.
func (inv *Invoice) SetPostedLot(lot *ledger.Lot) error {
	if inv.postedLot != nil {
		inv.book.logger.Error("posted lot already set",
			zap.String("invoice", inv.displayID))
		return shared.ErrInvalidState
	}
	inv.BeginEdit()
	inv.postedLot = lot
	inv.markModified()
	return inv.CommitEdit()
}

// SetPostedAcc records the target account. The field is write once.
func (inv *Invoice) SetPostedAcc(acc *ledger.Account) error {
	if inv.postedAcc != nil {
		inv.book.logger.Error("posted account already set",
			zap.String("invoice", inv.displayID))
		return shared.ErrInvalidState
	}
	inv.BeginEdit()
	inv.postedAcc = acc
	inv.markModified()
	return inv.CommitEdit()
}

func (inv *Invoice) clearPosted() {
	inv.postedTxn = nil
	inv.postedLot = nil
	inv.postedAcc = nil
	inv.datePosted = time.Time{}
}

// Entries returns the document line items in their stable order
func (inv *Invoice) Entries() []*Entry {
	return inv.entries
}

func (inv *Invoice) insertEntrySorted(entry *Entry) {
	idx := len(inv.entries)
	for i, e := range inv.entries {
		if CompareEntries(entry, e) < 0 {
			idx = i
			break
		}
	}
	inv.entries = append(inv.entries, nil)
	copy(inv.entries[idx+1:], inv.entries[idx:])
	inv.entries[idx] = entry
}

func (inv *Invoice) removeEntry(entry *Entry) {
	for i, e := range inv.entries {
		if e == entry {
			inv.entries = append(inv.entries[:i], inv.entries[i+1:]...)
			return
		}
	}
}

// AddEntry attaches a line item to the invoice side of this document.
// An entry already attached to another invoice is detached from it
// first; the entry lands in its sorted position.
func (inv *Invoice) AddEntry(entry *Entry) error {
	if entry == nil {
		return shared.ErrInvalidInput
	}
	if entry.invoice == inv {
		return nil
	}
	inv.BeginEdit()
	if entry.invoice != nil {
		if err := entry.invoice.RemoveEntry(entry); err != nil {
			inv.edit.EndEdit()
			return err
		}
	}
	entry.setInvoice(inv)
	inv.insertEntrySorted(entry)
	inv.markModified()
	return inv.CommitEdit()
}

// RemoveEntry detaches a line item from the invoice side
func (inv *Invoice) RemoveEntry(entry *Entry) error {
	if entry == nil || entry.invoice != inv {
		return nil
	}
	inv.BeginEdit()
	entry.setInvoice(nil)
	inv.removeEntry(entry)
	inv.markModified()
	return inv.CommitEdit()
}

// BillAddEntry attaches a line item to the bill side of this document
func (inv *Invoice) BillAddEntry(entry *Entry) error {
	if entry == nil {
		return shared.ErrInvalidInput
	}
	if entry.bill == inv {
		return nil
	}
	inv.BeginEdit()
	if entry.bill != nil {
		if err := entry.bill.BillRemoveEntry(entry); err != nil {
			inv.edit.EndEdit()
			return err
		}
	}
	entry.setBill(inv)
	inv.insertEntrySorted(entry)
	inv.markModified()
	return inv.CommitEdit()
}

// BillRemoveEntry detaches a line item from the bill side
func (inv *Invoice) BillRemoveEntry(entry *Entry) error {
	if entry == nil || entry.bill != inv {
		return nil
	}
	inv.BeginEdit()
	entry.setBill(nil)
	inv.removeEntry(entry)
	inv.markModified()
	return inv.CommitEdit()
}

// isReversed reports whether posting amounts are negated: sales-side
// documents (customer invoices) carry their values reversed relative
// to bills and vouchers.
func (inv *Invoice) isReversed() bool {
	return inv.EndOwner().Type == OwnerTypeCustomer
}

func (inv *Invoice) totalInternal(withValue, withTax bool) decimal.Decimal {
	total := decimal.Zero
	reverse := inv.isReversed()
	for _, e := range inv.entries {
		value, tax, _, err := e.Value(reverse)
		if err != nil {
			inv.book.logger.Warn("skipping entry with bad tax table",
				zap.String("invoice", inv.displayID),
				zap.String("entry", e.Description()),
				zap.Error(err))
			continue
		}
		if withValue {
			total = total.Add(value)
		}
		if withTax {
			total = total.Add(tax)
		}
	}
	return total
}

// Total returns the document total including tax
func (inv *Invoice) Total() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.totalInternal(true, true), inv.currency)
	return m
}

// TotalSubtotal returns the document total before tax
func (inv *Invoice) TotalSubtotal() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.totalInternal(true, false), inv.currency)
	return m
}

// TotalTax returns the tax portion of the document total
func (inv *Invoice) TotalTax() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.totalInternal(false, true), inv.currency)
	return m
}

// TypeLabel returns the user-facing name of the document flavor
func (inv *Invoice) TypeLabel() string {
	switch inv.EndOwner().Type {
	case OwnerTypeCustomer:
		return "Invoice"
	case OwnerTypeVendor:
		return "Bill"
	case OwnerTypeEmployee:
		return "Expense"
	}
	return "Invoice"
}

// DisplayName renders the document for logs and listings
func (inv *Invoice) DisplayName() string {
	if inv.IsPosted() {
		return fmt.Sprintf("%s (posted)", inv.displayID)
	}
	return inv.displayID
}

// CompareInvoices is the stable document ordering: by display id, then
// date opened, then date posted, then identity
func CompareInvoices(a, b *Invoice) int {
	if a == b {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if a.displayID != b.displayID {
		if a.displayID < b.displayID {
			return -1
		}
		return 1
	}
	if !a.dateOpened.Equal(b.dateOpened) {
		if a.dateOpened.Before(b.dateOpened) {
			return -1
		}
		return 1
	}
	if !a.datePosted.Equal(b.datePosted) {
		if a.datePosted.Before(b.datePosted) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// BeginEdit opens a (re-entrant) edit session on the document
func (inv *Invoice) BeginEdit() {
	inv.edit.BeginEdit()
}

func (inv *Invoice) markModified() {
	inv.edit.MarkDirty()
	inv.Touch()
	inv.book.MarkDirty(aggregateTypeInvoice)
}

// CommitEdit closes the current edit session. The outermost close runs
// the backend save; on failure the document stays dirty and the error
// hook fires, on success the pending events are published and a
// document marked for deletion is freed.
func (inv *Invoice) CommitEdit() error {
	if !inv.edit.EndEdit() {
		return nil
	}
	return inv.commit()
}

func (inv *Invoice) commit() error {
	book := inv.book

	if err := book.handler.Save(inv); err != nil {
		book.logger.Error("backend commit failed",
			zap.String("invoice", inv.displayID),
			zap.Error(err))
		book.handler.OnCommitFailure(inv, err)
		return fmt.Errorf("%w: %v", shared.ErrBackendFailure, err)
	}

	if inv.edit.IsMarkedForDeletion() {
		inv.free()
		return nil
	}

	if inv.edit.IsDirty() {
		inv.AddDomainEvent(NewInvoiceModifiedEvent(inv.ID, inv.displayID))
	}
	book.publish(inv.GetDomainEvents()...)
	inv.ClearDomainEvents()
	inv.edit.ClearDirty()
	book.handler.OnCommitSuccess(inv)
	return nil
}

func (inv *Invoice) free() {
	book := inv.book
	id := inv.ID

	book.publish(NewInvoiceDestroyedEvent(id, inv.displayID))
	inv.ClearDomainEvents()

	for _, e := range inv.entries {
		if e.invoice == inv {
			e.setInvoice(nil)
		}
		if e.bill == inv {
			e.setBill(nil)
		}
	}
	inv.entries = nil

	if inv.terms != nil {
		inv.terms.DecRef()
		inv.terms = nil
	}

	book.strings.Release(inv.displayID)
	book.strings.Release(inv.notes)
	book.strings.Release(inv.billingID)

	book.unregisterInvoice(inv)
	book.handler.OnDestroyed(id)
}

// Destroy marks the document for deletion and commits. The free runs
// at the outermost commit, so a Destroy inside a wider edit session is
// deferred until that session ends.
func (inv *Invoice) Destroy() error {
	inv.BeginEdit()
	inv.edit.MarkForDeletion()
	return inv.CommitEdit()
}

// Edit opens an edit session and returns a one-shot scope whose Commit
// closes it. Convenient for batching several setters into one commit:
//
//	scope := inv.Edit()
//	inv.SetNotes("...")
//	inv.SetBillingID("...")
//	err := scope.Commit()
func (inv *Invoice) Edit() *shared.EditScope {
	inv.BeginEdit()
	return shared.NewEditScope(inv.CommitEdit)
}

// InvoiceFromLot resolves the document a settlement lot belongs to via
// the lot side-table, or nil
func InvoiceFromLot(book *Book, lot *ledger.Lot) *Invoice {
	if book == nil || lot == nil {
		return nil
	}
	id, err := uuid.Parse(lot.Slot(slotInvoiceID))
	if err != nil {
		return nil
	}
	return book.LookupInvoice(id)
}

// InvoiceFromTxn resolves the document a posting transaction belongs
// to via the transaction side-table, or nil
func InvoiceFromTxn(book *Book, txn *ledger.Transaction) *Invoice {
	if book == nil || txn == nil {
		return nil
	}
	id, err := uuid.Parse(txn.Slot(slotInvoiceID))
	if err != nil {
		return nil
	}
	return book.LookupInvoice(id)
}
