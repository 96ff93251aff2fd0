package ledger

import (
	"testing"

	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func newValuedSplit(t *testing.T, acc *Account, amount int64) *Split {
	t.Helper()
	s := NewSplit(valueobject.USD)
	m, err := valueobject.NewMoney(decimal.NewFromInt(amount), valueobject.USD)
	require.NoError(t, err)
	s.SetValue(m)
	if acc != nil {
		acc.InsertSplit(s)
	}
	return s
}

// ============================================
// Transaction Tests
// ============================================

func TestTransaction_CommitEdit_Balanced(t *testing.T) {
	acc := NewAccount("AR", AccountTypeReceivable, valueobject.USD)
	txn := NewTransaction(valueobject.USD)

	txn.BeginEdit()
	require.NoError(t, txn.AppendSplit(newValuedSplit(t, acc, 100)))
	require.NoError(t, txn.AppendSplit(newValuedSplit(t, acc, -100)))
	require.NoError(t, txn.CommitEdit())

	assert.Equal(t, 2, txn.CountSplits())
	assert.True(t, txn.Balance().IsZero())
}

func TestTransaction_CommitEdit_UnbalancedRollsBack(t *testing.T) {
	acc := NewAccount("AR", AccountTypeReceivable, valueobject.USD)
	txn := NewTransaction(valueobject.USD)

	txn.BeginEdit()
	s := newValuedSplit(t, acc, 42)
	require.NoError(t, txn.AppendSplit(s))
	err := txn.CommitEdit()

	assert.ErrorIs(t, err, ErrUnbalanced)
	assert.Equal(t, 0, txn.CountSplits(), "split list restored to the snapshot")
	assert.Nil(t, s.Account(), "rolled-back split is unlinked from its account")
	assert.Empty(t, acc.Splits())
}

func TestTransaction_AppendSplit_RequiresEdit(t *testing.T) {
	txn := NewTransaction(valueobject.USD)

	err := txn.AppendSplit(NewSplit(valueobject.USD))
	assert.ErrorIs(t, err, ErrNotInEdit)
}

func TestTransaction_ReadOnly(t *testing.T) {
	txn := NewTransaction(valueobject.USD)
	txn.SetReadOnly("frozen")

	assert.Error(t, txn.SetDescription("x"))
	assert.Error(t, txn.SetNum("x"))

	txn.BeginEdit()
	assert.Error(t, txn.AppendSplit(NewSplit(valueobject.USD)))
	assert.Error(t, txn.Destroy())
	require.NoError(t, txn.CommitEdit())

	txn.ClearReadOnly()
	assert.NoError(t, txn.SetDescription("x"))
}

func TestTransaction_NestedEdit(t *testing.T) {
	acc := NewAccount("AR", AccountTypeReceivable, valueobject.USD)
	txn := NewTransaction(valueobject.USD)

	txn.BeginEdit()
	txn.BeginEdit()
	require.NoError(t, txn.AppendSplit(newValuedSplit(t, acc, 10)))
	require.NoError(t, txn.CommitEdit(), "inner commit does not check balance")
	require.NoError(t, txn.AppendSplit(newValuedSplit(t, acc, -10)))
	require.NoError(t, txn.CommitEdit())

	assert.Equal(t, 2, txn.CountSplits())
}

func TestTransaction_Destroy_UnlinksSplits(t *testing.T) {
	acc := NewAccount("AR", AccountTypeReceivable, valueobject.USD)
	lot := NewLot(acc)
	txn := NewTransaction(valueobject.USD)

	txn.BeginEdit()
	s1 := newValuedSplit(t, acc, 100)
	s2 := newValuedSplit(t, acc, -100)
	require.NoError(t, txn.AppendSplit(s1))
	require.NoError(t, txn.AppendSplit(s2))
	lot.AddSplit(s1)
	require.NoError(t, txn.CommitEdit())

	txn.BeginEdit()
	require.NoError(t, txn.Destroy())
	require.NoError(t, txn.CommitEdit())

	assert.Equal(t, 0, txn.CountSplits())
	assert.Empty(t, acc.Splits())
	assert.Equal(t, 0, lot.CountSplits())
	assert.Nil(t, s1.Transaction())
}
