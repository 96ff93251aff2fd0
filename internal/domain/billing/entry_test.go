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

func newIncomeAccount(name string) *ledger.Account {
	return ledger.NewAccount(name, ledger.AccountTypeIncome, valueobject.USD)
}

func newSalesEntry(qty, price int64) *Entry {
	e := NewEntry(time.Now())
	e.SetQuantity(decimal.NewFromInt(qty))
	e.SetInvPrice(decimal.NewFromInt(price))
	e.SetInvAccount(newIncomeAccount("Sales"))
	return e
}

// ============================================
// Value Computation Tests
// ============================================

func TestEntry_Value(t *testing.T) {
	e := newSalesEntry(10, 15)

	value, tax, taxSplits, err := e.Value(true)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(150)))
	assert.True(t, tax.IsZero())
	assert.Empty(t, taxSplits)
}

func TestEntry_Value_FlatDiscount(t *testing.T) {
	e := newSalesEntry(10, 15)
	e.SetDiscount(decimal.NewFromInt(30))

	value, _, _, err := e.Value(true)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(120)))
}

func TestEntry_Value_PercentDiscount(t *testing.T) {
	e := newSalesEntry(10, 15)
	e.SetDiscountPercent(decimal.NewFromInt(10))

	value, _, _, err := e.Value(true)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(135)))
}

func TestEntry_Value_DiscountIgnoredOnBillSide(t *testing.T) {
	e := NewEntry(time.Now())
	e.SetQuantity(decimal.NewFromInt(4))
	e.SetBillPrice(decimal.NewFromInt(25))
	e.SetBillAccount(ledger.NewAccount("Expenses", ledger.AccountTypeExpense, valueobject.USD))
	e.SetDiscount(decimal.NewFromInt(50))

	value, _, _, err := e.Value(false)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(100)), "discount applies to the sales side only")
}

func TestEntry_Value_PercentTax(t *testing.T) {
	taxAcc := ledger.NewAccount("VAT Payable", ledger.AccountTypeLiability, valueobject.USD)
	e := newSalesEntry(10, 15)
	e.SetInvTaxTable(NewTaxTable("VAT", TaxTableEntry{
		Account: taxAcc,
		Amount:  decimal.NewFromInt(20),
		Type:    TaxAmountPercent,
	}))

	value, tax, taxSplits, err := e.Value(true)
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(150)))
	assert.True(t, tax.Equal(decimal.NewFromInt(30)))
	require.Len(t, taxSplits, 1)
	assert.Equal(t, taxAcc, taxSplits[0].Account)
	assert.True(t, taxSplits[0].Value.Equal(decimal.NewFromInt(30)))
}

func TestEntry_Value_FlatTaxPerUnit(t *testing.T) {
	taxAcc := ledger.NewAccount("Duty", ledger.AccountTypeLiability, valueobject.USD)
	e := newSalesEntry(10, 15)
	e.SetInvTaxTable(NewTaxTable("Duty", TaxTableEntry{
		Account: taxAcc,
		Amount:  decimal.NewFromInt(2),
		Type:    TaxAmountValue,
	}))

	_, tax, _, err := e.Value(true)
	require.NoError(t, err)
	assert.True(t, tax.Equal(decimal.NewFromInt(20)), "flat tax scales with quantity")
}

func TestEntry_Value_BadTaxEntry(t *testing.T) {
	e := newSalesEntry(1, 100)
	e.SetInvTaxTable(NewTaxTable("broken", TaxTableEntry{
		Account: nil,
		Amount:  decimal.NewFromInt(5),
		Type:    TaxAmountPercent,
	}))

	_, _, _, err := e.Value(true)
	assert.Error(t, err)
}

// ============================================
// Accumulator Tests
// ============================================

func TestAccountValueAdd(t *testing.T) {
	a := newIncomeAccount("A")
	b := newIncomeAccount("B")

	var list []AccountValue
	list = AccountValueAdd(list, a, decimal.NewFromInt(10))
	list = AccountValueAdd(list, b, decimal.NewFromInt(5))
	list = AccountValueAdd(list, a, decimal.NewFromInt(7))

	require.Len(t, list, 2, "amounts merge by account")
	assert.True(t, list[0].Value.Equal(decimal.NewFromInt(17)))
	assert.True(t, list[1].Value.Equal(decimal.NewFromInt(5)))
}

func TestAccountValueAdd_NilAccount(t *testing.T) {
	list := AccountValueAdd(nil, nil, decimal.NewFromInt(10))
	assert.Empty(t, list)
}

// ============================================
// Ordering Tests
// ============================================

func TestCompareEntries(t *testing.T) {
	earlier := NewEntry(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	later := NewEntry(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 0, CompareEntries(earlier, earlier))
	assert.Negative(t, CompareEntries(earlier, later))
	assert.Positive(t, CompareEntries(later, earlier))
	assert.Negative(t, CompareEntries(nil, earlier))

	sameDate := NewEntry(earlier.Date())
	got := CompareEntries(earlier, sameDate)
	assert.Equal(t, -got, CompareEntries(sameDate, earlier), "ties break deterministically")
}

// ============================================
// Template Fork Tests
// ============================================

func TestBillTerm_Child(t *testing.T) {
	parent := NewBillTerm("net 30", 30, 10, decimal.NewFromInt(2))

	child := parent.Child()
	assert.True(t, child.IsChild())
	assert.Equal(t, parent, child.Parent())
	assert.Equal(t, 30, child.DueDays())
	assert.Equal(t, child, child.Child(), "a child forks to itself")
}

func TestBillTerm_DueDate(t *testing.T) {
	term := NewBillTerm("net 30", 30, 0, decimal.Zero)
	post := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), term.DueDate(post))
}

func TestTaxTable_Child_CopiesEntries(t *testing.T) {
	acc := newIncomeAccount("Tax")
	parent := NewTaxTable("VAT", TaxTableEntry{Account: acc, Amount: decimal.NewFromInt(20), Type: TaxAmountPercent})

	child := parent.Child()
	require.True(t, child.IsChild())

	parent.Entries()[0].Amount = decimal.NewFromInt(25)
	assert.True(t, child.Entries()[0].Amount.Equal(decimal.NewFromInt(20)),
		"template edits do not reach the frozen child")
}
