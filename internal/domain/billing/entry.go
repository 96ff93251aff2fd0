package billing

import (
	"bytes"
	"time"

	"github.com/openbooks/ledger/internal/domain/ledger"
	"github.com/openbooks/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AccountValue is an accumulated signed amount destined for one account
type AccountValue struct {
	Account *ledger.Account
	Value   decimal.Decimal
}

// AccountValueAdd merges value into the accumulator entry for the given
// account, appending a new entry for a previously unseen account
func AccountValueAdd(list []AccountValue, account *ledger.Account, value decimal.Decimal) []AccountValue {
	if account == nil {
		return list
	}
	for i := range list {
		if list[i].Account == account {
			list[i].Value = list[i].Value.Add(value)
			return list
		}
	}
	return append(list, AccountValue{Account: account, Value: value})
}

// AccountValueAddAll merges a list of accumulated values into another
func AccountValueAddAll(list []AccountValue, other []AccountValue) []AccountValue {
	for _, av := range other {
		list = AccountValueAdd(list, av.Account, av.Value)
	}
	return list
}

// Entry is a single line item. It carries two independent sides: the
// invoice side (customer-facing) and the bill side (vendor-facing), so
// one entry can simultaneously sit on a vendor bill and be passed
// through to a customer invoice.
type Entry struct {
	shared.BaseEntity
	date        time.Time
	description string
	action      string
	quantity    decimal.Decimal

	invAccount  *ledger.Account
	invPrice    decimal.Decimal
	invTaxTable *TaxTable

	billAccount  *ledger.Account
	billPrice    decimal.Decimal
	billTaxTable *TaxTable
	billable     bool

	discount          decimal.Decimal
	discountIsPercent bool

	invoice *Invoice
	bill    *Invoice
}

// NewEntry creates a line item dated at the given time
func NewEntry(date time.Time) *Entry {
	return &Entry{
		BaseEntity: shared.NewBaseEntity(),
		date:       date,
	}
}

// Date returns the entry date
func (e *Entry) Date() time.Time {
	return e.date
}

// SetDate sets the entry date
func (e *Entry) SetDate(date time.Time) {
	e.date = date
}

// Description returns the entry description
func (e *Entry) Description() string {
	return e.description
}

// SetDescription sets the entry description
func (e *Entry) SetDescription(desc string) {
	e.description = desc
}

// Action returns the entry action label
func (e *Entry) Action() string {
	return e.action
}

// SetAction sets the entry action label
func (e *Entry) SetAction(action string) {
	e.action = action
}

// Quantity returns the entry quantity
func (e *Entry) Quantity() decimal.Decimal {
	return e.quantity
}

// SetQuantity sets the entry quantity
func (e *Entry) SetQuantity(qty decimal.Decimal) {
	e.quantity = qty
}

// InvAccount returns the invoice-side income account
func (e *Entry) InvAccount() *ledger.Account {
	return e.invAccount
}

// SetInvAccount sets the invoice-side income account
func (e *Entry) SetInvAccount(acc *ledger.Account) {
	e.invAccount = acc
}

// InvPrice returns the invoice-side unit price
func (e *Entry) InvPrice() decimal.Decimal {
	return e.invPrice
}

// SetInvPrice sets the invoice-side unit price
func (e *Entry) SetInvPrice(price decimal.Decimal) {
	e.invPrice = price
}

// InvTaxTable returns the invoice-side tax table, or nil
func (e *Entry) InvTaxTable() *TaxTable {
	return e.invTaxTable
}

// SetInvTaxTable sets the invoice-side tax table
func (e *Entry) SetInvTaxTable(table *TaxTable) {
	e.invTaxTable = table
}

// BillAccount returns the bill-side expense account
func (e *Entry) BillAccount() *ledger.Account {
	return e.billAccount
}

// SetBillAccount sets the bill-side expense account
func (e *Entry) SetBillAccount(acc *ledger.Account) {
	e.billAccount = acc
}

// BillPrice returns the bill-side unit price
func (e *Entry) BillPrice() decimal.Decimal {
	return e.billPrice
}

// SetBillPrice sets the bill-side unit price
func (e *Entry) SetBillPrice(price decimal.Decimal) {
	e.billPrice = price
}

// BillTaxTable returns the bill-side tax table, or nil
func (e *Entry) BillTaxTable() *TaxTable {
	return e.billTaxTable
}

// SetBillTaxTable sets the bill-side tax table
func (e *Entry) SetBillTaxTable(table *TaxTable) {
	e.billTaxTable = table
}

// Billable reports whether a bill-side entry should be passed through
// to the customer invoice at posting time
func (e *Entry) Billable() bool {
	return e.billable
}

// SetBillable sets the billable pass-through flag
func (e *Entry) SetBillable(billable bool) {
	e.billable = billable
}

// Discount returns the invoice-side discount amount or percentage
func (e *Entry) Discount() decimal.Decimal {
	return e.discount
}

// SetDiscount sets a flat invoice-side discount
func (e *Entry) SetDiscount(discount decimal.Decimal) {
	e.discount = discount
	e.discountIsPercent = false
}

// SetDiscountPercent sets a percentage invoice-side discount
func (e *Entry) SetDiscountPercent(percent decimal.Decimal) {
	e.discount = percent
	e.discountIsPercent = true
}

// Invoice returns the invoice this entry belongs to, or nil
func (e *Entry) Invoice() *Invoice {
	return e.invoice
}

// Bill returns the bill this entry belongs to, or nil
func (e *Entry) Bill() *Invoice {
	return e.bill
}

func (e *Entry) setInvoice(inv *Invoice) {
	e.invoice = inv
}

func (e *Entry) setBill(bill *Invoice) {
	e.bill = bill
}

// PostAccount returns the side of the account pair selected by reverse:
// the invoice account on the sales side, the bill account otherwise
func (e *Entry) PostAccount(reverse bool) *ledger.Account {
	if reverse {
		return e.invAccount
	}
	return e.billAccount
}

// Value computes the entry value and tax for the side selected by
// reverse (true = invoice/sales side, false = bill/purchase side).
// The returned tax splits are keyed by their tax accounts. The
// invoice-side discount is applied before tax.
func (e *Entry) Value(reverse bool) (value, tax decimal.Decimal, taxSplits []AccountValue, err error) {
	price := e.billPrice
	table := e.billTaxTable
	if reverse {
		price = e.invPrice
		table = e.invTaxTable
	}

	value = e.quantity.Mul(price)
	if reverse && !e.discount.IsZero() {
		disc := e.discount
		if e.discountIsPercent {
			disc = value.Mul(e.discount).Div(decimal.NewFromInt(100))
		}
		value = value.Sub(disc)
	}

	tax = decimal.Zero
	if table == nil {
		return value, tax, nil, nil
	}
	for _, te := range table.Entries() {
		if te.Account == nil {
			return decimal.Zero, decimal.Zero, nil,
				shared.NewDomainError("BAD_TAX_ENTRY", "Tax table entry has no account")
		}
		var amt decimal.Decimal
		switch te.Type {
		case TaxAmountPercent:
			amt = value.Mul(te.Amount).Div(decimal.NewFromInt(100))
		case TaxAmountValue:
			amt = te.Amount.Mul(e.quantity)
		default:
			return decimal.Zero, decimal.Zero, nil,
				shared.NewDomainError("BAD_TAX_ENTRY", "Tax table entry has an unknown amount type")
		}
		tax = tax.Add(amt)
		taxSplits = AccountValueAdd(taxSplits, te.Account, amt)
	}
	return value, tax, taxSplits, nil
}

// CompareEntries is the stable ordering used for document entry lists:
// by entry date, then creation time, then identity
func CompareEntries(a, b *Entry) int {
	if a == b {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if !a.date.Equal(b.date) {
		if a.date.Before(b.date) {
			return -1
		}
		return 1
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}
