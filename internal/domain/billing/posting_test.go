package billing

import (
	"testing"
	"time"

	"github.com/openbooks/ledger/internal/domain/ledger"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

type postingFixture struct {
	book       *Book
	pub        *capturingPublisher
	receivable *ledger.Account
	payable    *ledger.Account
	income     *ledger.Account
	expense    *ledger.Account
	bank       *ledger.Account
}

func newPostingFixture(t *testing.T) *postingFixture {
	t.Helper()
	book, pub, _ := newTestBook(t)
	return &postingFixture{
		book:       book,
		pub:        pub,
		receivable: ledger.NewAccount("Accounts Receivable", ledger.AccountTypeReceivable, valueobject.USD),
		payable:    ledger.NewAccount("Accounts Payable", ledger.AccountTypePayable, valueobject.USD),
		income:     ledger.NewAccount("Sales", ledger.AccountTypeIncome, valueobject.USD),
		expense:    ledger.NewAccount("Expenses", ledger.AccountTypeExpense, valueobject.USD),
		bank:       ledger.NewAccount("Checking", ledger.AccountTypeBank, valueobject.USD),
	}
}

func (f *postingFixture) customerInvoice(t *testing.T, qty, price int64) *Invoice {
	t.Helper()
	inv := newTestInvoice(t, f.book)
	e := NewEntry(time.Now())
	e.SetQuantity(decimal.NewFromInt(qty))
	e.SetInvPrice(decimal.NewFromInt(price))
	e.SetInvAccount(f.income)
	require.NoError(t, inv.AddEntry(e))
	return inv
}

func (f *postingFixture) vendorBill(t *testing.T, qty, price int64) *Invoice {
	t.Helper()
	vendor := f.book.NewVendor("Supplies Inc", valueobject.USD)
	bill, err := NewInvoice(f.book, vendor.Owner(), valueobject.USD, time.Now(), "")
	require.NoError(t, err)
	e := NewEntry(time.Now())
	e.SetQuantity(decimal.NewFromInt(qty))
	e.SetBillPrice(decimal.NewFromInt(price))
	e.SetBillAccount(f.expense)
	require.NoError(t, bill.BillAddEntry(e))
	return bill
}

func postInput(acc *ledger.Account) PostingInput {
	return PostingInput{
		Account:  acc,
		PostDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:  time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Memo:     "test post",
	}
}

// ============================================
// PostToAccount Tests
// ============================================

func TestPostToAccount_CustomerInvoice(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 10, 150)

	txn, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	assert.True(t, txn.Balance().IsZero(), "double-entry law holds")
	assert.True(t, inv.IsPosted())
	assert.Equal(t, txn, inv.PostedTxn())
	assert.Equal(t, f.receivable, inv.PostedAcc())
	assert.Equal(t, inv.DisplayID(), txn.Num())
	assert.Equal(t, ledger.TxnTypeInvoice, txn.Type())
	assert.NotEmpty(t, txn.ReadOnlyReason())
	assert.Equal(t, postInput(nil).DueDate, inv.DateDue())

	lot := inv.PostedLot()
	require.NotNil(t, lot)
	assert.True(t, lot.Balance().Equal(decimal.NewFromInt(1500)), "the receivable sits in the lot")
	assert.True(t, f.income.Balance().Equal(decimal.NewFromInt(-1500)), "income is credited")
	assert.Equal(t, 1, f.pub.countByType(EventTypeInvoicePosted))
}

func TestPostToAccount_EmptyInvoice(t *testing.T) {
	f := newPostingFixture(t)
	inv := newTestInvoice(t, f.book)

	txn, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	assert.Equal(t, 1, txn.CountSplits(), "a single zero posting split")
	assert.True(t, txn.Balance().IsZero())
	assert.True(t, inv.PostedLot().IsClosed(), "a zero lot with splits counts as settled")
}

func TestPostToAccount_VendorBill(t *testing.T) {
	f := newPostingFixture(t)
	bill := f.vendorBill(t, 4, 25)

	txn, err := bill.PostToAccount(postInput(f.payable))
	require.NoError(t, err)

	assert.True(t, txn.Balance().IsZero())
	assert.True(t, bill.PostedLot().Balance().Equal(decimal.NewFromInt(-100)),
		"payable lots carry a negative raw balance")
	assert.True(t, f.expense.Balance().Equal(decimal.NewFromInt(100)), "expense is debited")
	assert.Equal(t, "Bill", bill.TypeLabel())
}

func TestPostToAccount_ConsolidatesSplitsByAccount(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 100)
	extra := NewEntry(time.Now())
	extra.SetQuantity(decimal.NewFromInt(1))
	extra.SetInvPrice(decimal.NewFromInt(50))
	extra.SetInvAccount(f.income)
	require.NoError(t, inv.AddEntry(extra))

	txn, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	assert.Equal(t, 2, txn.CountSplits(), "two same-account entries share one split")
	assert.True(t, f.income.Balance().Equal(decimal.NewFromInt(-150)))
}

func TestPostToAccount_AlreadyPosted(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 100)
	_, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	_, err = inv.PostToAccount(postInput(f.receivable))
	assert.ErrorIs(t, err, ErrAlreadyPosted)
}

func TestPostToAccount_WrongAccountType(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 100)

	_, err := inv.PostToAccount(postInput(f.bank))
	assert.ErrorIs(t, err, ErrWrongAccount)
}

func TestPostToAccount_MissingAccount(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 100)

	_, err := inv.PostToAccount(PostingInput{PostDate: time.Now()})
	assert.Error(t, err)
	assert.False(t, inv.IsPosted())
}

func TestPostToAccount_FreezesTerms(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 100)
	template := NewBillTerm("net 30", 30, 0, decimal.Zero)
	require.NoError(t, inv.SetTerms(template))

	_, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	require.True(t, inv.Terms().IsChild(), "the posted document holds a frozen fork")
	assert.Equal(t, template, inv.Terms().Parent())
	assert.Equal(t, 1, inv.Terms().RefCount())
	assert.Equal(t, 0, template.RefCount())
}

func TestPostToAccount_DueDateFromTerms(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 100)
	require.NoError(t, inv.SetTerms(NewBillTerm("net 30", 30, 0, decimal.Zero)))

	input := postInput(f.receivable)
	input.DueDate = time.Time{}
	_, err := inv.PostToAccount(input)
	require.NoError(t, err)

	assert.Equal(t, input.PostDate.AddDate(0, 0, 30), inv.DateDue())
}

func TestPostToAccount_FreezesTaxTable(t *testing.T) {
	f := newPostingFixture(t)
	taxAcc := ledger.NewAccount("VAT Payable", ledger.AccountTypeLiability, valueobject.USD)
	template := NewTaxTable("VAT", TaxTableEntry{
		Account: taxAcc,
		Amount:  decimal.NewFromInt(20),
		Type:    TaxAmountPercent,
	})
	inv := f.customerInvoice(t, 10, 150)
	inv.Entries()[0].SetInvTaxTable(template)

	txn, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	assert.True(t, inv.Entries()[0].InvTaxTable().IsChild())
	assert.True(t, txn.Balance().IsZero())
	assert.True(t, taxAcc.Balance().Equal(decimal.NewFromInt(-300)), "tax is credited to its own account")
	assert.True(t, inv.PostedLot().Balance().Equal(decimal.NewFromInt(1800)))
}

func TestPostToAccount_BillablePassThrough(t *testing.T) {
	f := newPostingFixture(t)
	bill := f.vendorBill(t, 4, 25)
	bill.Entries()[0].SetBillable(true)

	_, err := bill.PostToAccount(postInput(f.payable))
	require.NoError(t, err)

	assert.True(t, bill.Entries()[0].InvPrice().Equal(decimal.NewFromInt(25)),
		"the vendor cost is frozen as the customer price")
}

func TestPostToAccount_CrossLinks(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 100)

	txn, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	assert.Equal(t, inv, InvoiceFromTxn(f.book, txn))
	assert.Equal(t, inv, InvoiceFromLot(f.book, inv.PostedLot()))
	owner, ok := OwnerFromLot(inv.PostedLot())
	require.True(t, ok)
	assert.Equal(t, inv.EndOwner(), owner)
}

func TestPostToAccount_BadEntrySkippedByDefault(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 100)
	bad := NewEntry(time.Now())
	bad.SetQuantity(decimal.NewFromInt(1))
	bad.SetInvPrice(decimal.NewFromInt(999))
	bad.SetInvAccount(f.income)
	bad.SetInvTaxTable(NewTaxTable("broken", TaxTableEntry{Type: TaxAmountPercent}))
	require.NoError(t, inv.AddEntry(bad))

	txn, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	assert.True(t, txn.Balance().IsZero())
	assert.True(t, inv.PostedLot().Balance().Equal(decimal.NewFromInt(100)),
		"the bad entry is excluded from the total")
}

func TestPostToAccount_BadEntryFailsWhenConfigured(t *testing.T) {
	f := newPostingFixture(t)
	policy := DefaultPolicy()
	policy.NumericFailure = NumericFailureFail
	f.book.policy = policy

	inv := f.customerInvoice(t, 1, 100)
	inv.Entries()[0].SetInvTaxTable(NewTaxTable("broken", TaxTableEntry{Type: TaxAmountPercent}))

	_, err := inv.PostToAccount(postInput(f.receivable))
	assert.Error(t, err)
	assert.False(t, inv.IsPosted())
}

// ============================================
// Pre-Payment Carry-Forward Tests
// ============================================

func TestPostToAccount_NetsAgainstExistingCredit(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 150)

	// Park a 500 credit for the customer before any invoice exists.
	_, err := f.book.ApplyPayment(PaymentInput{
		Owner:           inv.Owner(),
		PostedAccount:   f.receivable,
		TransferAccount: f.bank,
		Amount:          decimal.NewFromInt(500),
		Date:            time.Now(),
	})
	require.NoError(t, err)

	_, err = inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	assert.True(t, inv.PostedLot().IsClosed(),
		"the invoice lot nets to zero against the credit")
	assert.True(t, f.receivable.Balance().Equal(decimal.NewFromInt(-350)),
		"the remaining credit is carried forward")

	open := f.receivable.FindOpenLots(nil, nil)
	require.Len(t, open, 1)
	assert.Equal(t, "", open[0].Slot("billing/invoice-id"), "the carried lot belongs to the owner, not a document")
	assert.True(t, open[0].Balance().Equal(decimal.NewFromInt(-350)))
}

// ============================================
// Unpost Tests
// ============================================

func TestUnpost_RoundTrip(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 10, 150)
	_, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	require.NoError(t, inv.Unpost())

	assert.False(t, inv.IsPosted())
	assert.Nil(t, inv.PostedTxn())
	assert.Nil(t, inv.PostedLot())
	assert.Nil(t, inv.PostedAcc())
	assert.True(t, inv.DatePosted().IsZero())
	assert.Empty(t, f.receivable.Lots(), "an emptied lot is destroyed")
	assert.Empty(t, f.receivable.Splits())
	assert.True(t, f.income.Balance().IsZero())
	assert.Equal(t, 1, f.pub.countByType(EventTypeInvoiceUnposted))

	_, err = inv.PostToAccount(postInput(f.receivable))
	assert.NoError(t, err, "an unposted document can be posted again")
}

func TestUnpost_NotPosted(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 100)

	assert.ErrorIs(t, inv.Unpost(), ErrNotPosted)
}

func TestUnpost_KeepsLotWithPayments(t *testing.T) {
	f := newPostingFixture(t)
	inv := f.customerInvoice(t, 1, 150)
	_, err := inv.PostToAccount(postInput(f.receivable))
	require.NoError(t, err)

	_, err = f.book.ApplyPayment(PaymentInput{
		Owner:           inv.Owner(),
		PostedAccount:   f.receivable,
		TransferAccount: f.bank,
		Amount:          decimal.NewFromInt(50),
		Date:            time.Now(),
	})
	require.NoError(t, err)

	lot := inv.PostedLot()
	require.NoError(t, inv.Unpost())

	assert.Contains(t, f.receivable.Lots(), lot, "a lot holding payments survives the unpost")
	assert.True(t, lot.Balance().Equal(decimal.NewFromInt(-50)),
		"the applied payment stays as counterparty credit")
	owner, ok := OwnerFromLot(lot)
	require.True(t, ok)
	assert.Equal(t, inv.EndOwner(), owner)
	assert.Equal(t, "", lot.Slot("billing/invoice-id"))
}
