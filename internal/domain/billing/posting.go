package billing

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/openbooks/ledger/internal/domain/ledger"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var validate = validator.New()

// Messages written onto the synthesized ledger objects.
const (
	readOnlyReason   = "Generated from an invoice. Try unposting the invoice."
	forwardTxnDesc   = "Automatic Payment Forward"
	forwardSplitMemo = "Internal link between invoice and payment lots"
	actionPayment    = "Payment"
)

// PostingInput carries the arguments of PostToAccount
type PostingInput struct {
	Account  *ledger.Account `validate:"required"`
	PostDate time.Time       `validate:"required"`
	DueDate  time.Time
	Memo     string
}

// adjustedBalance flips a raw lot balance into the "how much does the
// counterparty still owe" convention: positive means an open
// receivable, negative means unapplied counterparty credit.
func adjustedBalance(raw decimal.Decimal, reverse bool) decimal.Decimal {
	if reverse {
		return raw
	}
	return raw.Neg()
}

func newMoney(amount decimal.Decimal, currency valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(amount, currency)
	return m
}

// PostToAccount turns the document's entries into one balanced ledger
// transaction against the given receivable or payable account, opens
// or reuses a settlement lot, and records the posting linkage on the
// document. Any counterparty credit already sitting in the reused lot
// is netted against the new document; an excess credit is carried
// forward into a fresh counterparty lot so the document's own lot nets
// to exactly zero overpayment.
func (inv *Invoice) PostToAccount(input PostingInput) (*ledger.Transaction, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if inv.IsPosted() {
		return nil, ErrAlreadyPosted
	}
	if t := input.Account.Type(); t != ledger.AccountTypeReceivable && t != ledger.AccountTypePayable {
		return nil, ErrWrongAccount
	}

	book := inv.book
	owner := inv.EndOwner()
	if owner.IsZero() {
		return nil, ErrNoOwner
	}
	reverse := inv.isReversed()
	currency := inv.currency
	acc := input.Account

	dueDate := input.DueDate
	if dueDate.IsZero() {
		if inv.terms != nil {
			dueDate = inv.terms.DueDate(input.PostDate)
		} else {
			dueDate = input.PostDate
		}
	}

	inv.BeginEdit()

	// Freeze the shared terms template so later edits to it cannot
	// retroactively change this posted document.
	if inv.terms != nil && !inv.terms.IsChild() {
		child := inv.terms.Child()
		inv.terms.DecRef()
		child.IncRef()
		inv.terms = child
	}

	// Reuse an existing counterparty credit lot when one is open in
	// the target account, otherwise open a fresh lot for this document.
	lots := acc.FindOpenLots(func(lot *ledger.Lot) bool {
		if lot.Slot(slotInvoiceID) != "" {
			return false
		}
		lotOwner, ok := OwnerFromLot(lot)
		if !ok || !book.EndOwner(lotOwner).Equal(owner) {
			return false
		}
		return !adjustedBalance(lot.Balance(), reverse).IsPositive()
	}, nil)
	var lot *ledger.Lot
	if len(lots) > 0 {
		lot = lots[0]
	} else {
		lot = ledger.NewLot(acc)
	}

	txn := ledger.NewTransaction(currency)
	txn.BeginEdit()
	_ = txn.SetDescription(book.OwnerName(inv.owner))
	_ = txn.SetNum(inv.displayID)
	txn.SetType(ledger.TxnTypeInvoice)
	txn.SetDateEntered(time.Now())
	txn.SetDatePosted(input.PostDate)
	txn.SetDateDue(dueDate)

	var accValues []AccountValue
	total := decimal.Zero
	for _, e := range inv.entries {
		if reverse {
			if tt := e.invTaxTable; tt != nil && !tt.IsChild() {
				child := tt.Child()
				tt.DecRef()
				child.IncRef()
				e.invTaxTable = child
			}
		} else {
			if tt := e.billTaxTable; tt != nil && !tt.IsChild() {
				child := tt.Child()
				tt.DecRef()
				child.IncRef()
				e.billTaxTable = child
			}
			// Pass-through billing: freeze the vendor cost as the
			// price the customer invoice will later charge.
			if e.billable {
				e.invPrice = e.billPrice
			}
		}

		value, tax, taxSplits, err := e.Value(reverse)
		if err != nil {
			if book.policy.NumericFailure == NumericFailureFail {
				txn.Destroy()
				_ = txn.CommitEdit()
				inv.edit.EndEdit()
				return nil, err
			}
			book.logger.Warn("excluding entry with bad value from post",
				zap.String("invoice", inv.displayID),
				zap.String("entry", e.Description()),
				zap.Error(err))
			continue
		}
		accValues = AccountValueAdd(accValues, e.PostAccount(reverse), value)
		accValues = AccountValueAddAll(accValues, taxSplits)
		total = total.Add(value).Add(tax)
	}

	// One consolidated split per distinct income/expense/tax account.
	for _, av := range accValues {
		split := ledger.NewSplit(currency)
		split.SetMemo(input.Memo)
		v := av.Value
		if reverse {
			v = v.Neg()
		}
		split.SetValue(newMoney(v, currency))
		av.Account.BeginEdit()
		av.Account.InsertSplit(split)
		av.Account.CommitEdit()
		if err := txn.AppendSplit(split); err != nil {
			inv.edit.EndEdit()
			return nil, err
		}
	}

	// The posting split balances the transaction and seeds the lot.
	posting := ledger.NewSplit(currency)
	posting.SetMemo(input.Memo)
	posting.SetAction(inv.TypeLabel())
	postValue := total
	if !reverse {
		postValue = postValue.Neg()
	}
	posting.SetValue(newMoney(postValue, currency))
	acc.BeginEdit()
	acc.InsertSplit(posting)
	if err := txn.AppendSplit(posting); err != nil {
		acc.CommitEdit()
		inv.edit.EndEdit()
		return nil, err
	}
	lot.AddSplit(posting)
	acc.CommitEdit()

	lot.SetSlot(slotInvoiceID, inv.ID.String())
	AttachOwnerToLot(lot, owner)
	txn.SetSlot(slotInvoiceID, inv.ID.String())
	txn.SetReadOnly(readOnlyReason)

	if err := txn.CommitEdit(); err != nil {
		inv.edit.EndEdit()
		return nil, err
	}

	inv.datePosted = input.PostDate
	inv.postedTxn = txn
	inv.postedLot = lot
	inv.postedAcc = acc
	inv.markModified()
	inv.AddDomainEvent(NewInvoicePostedEvent(inv.ID, inv.displayID, txn.ID(),
		acc.Name(), input.PostDate, dueDate, total))
	if err := inv.CommitEdit(); err != nil {
		return nil, err
	}

	// A net-negative lot means the reused counterparty credit exceeds
	// this document: move the excess into a plain counterparty lot so
	// the document's lot closes at zero and the credit carries forward.
	raw := lot.Balance()
	if adjustedBalance(raw, reverse).IsNegative() {
		if err := inv.forwardExcess(lot, raw, input.PostDate); err != nil {
			return nil, err
		}
	}

	return txn, nil
}

// forwardExcess zeroes the document lot and parks the counterparty
// credit held in it into a fresh lot attached to the owner alone.
func (inv *Invoice) forwardExcess(lot *ledger.Lot, raw decimal.Decimal, postDate time.Time) error {
	acc := lot.Account()
	currency := inv.currency
	owner := inv.EndOwner()

	txn := ledger.NewTransaction(currency)
	txn.BeginEdit()
	_ = txn.SetDescription(forwardTxnDesc)
	txn.SetType(ledger.TxnTypePayment)
	txn.SetDateEntered(time.Now())
	txn.SetDatePosted(postDate)

	closing := ledger.NewSplit(currency)
	closing.SetMemo(forwardSplitMemo)
	closing.SetValue(newMoney(raw.Neg(), currency))

	carried := ledger.NewSplit(currency)
	carried.SetMemo(forwardSplitMemo)
	carried.SetValue(newMoney(raw, currency))

	acc.BeginEdit()
	acc.InsertSplit(closing)
	acc.InsertSplit(carried)
	if err := txn.AppendSplit(closing); err != nil {
		acc.CommitEdit()
		return err
	}
	if err := txn.AppendSplit(carried); err != nil {
		acc.CommitEdit()
		return err
	}
	lot.AddSplit(closing)

	forward := ledger.NewLot(acc)
	AttachOwnerToLot(forward, owner)
	forward.AddSplit(carried)
	acc.CommitEdit()

	return txn.CommitEdit()
}

// Unpost reverses PostToAccount: the posting transaction is destroyed,
// the lot is detached from the document (any remaining balance stays
// with the counterparty), and the posting linkage on the document is
// cleared. The document's entries are untouched and it can be posted
// again.
func (inv *Invoice) Unpost() error {
	if !inv.IsPosted() {
		return ErrNotPosted
	}

	txn := inv.postedTxn
	lot := inv.postedLot
	acc := inv.postedAcc

	inv.BeginEdit()

	if txn != nil {
		txn.ClearReadOnly()
		if acc != nil {
			acc.BeginEdit()
		}
		txn.BeginEdit()
		if err := txn.Destroy(); err != nil {
			_ = txn.CommitEdit()
			if acc != nil {
				acc.CommitEdit()
			}
			inv.edit.EndEdit()
			return err
		}
		if err := txn.CommitEdit(); err != nil {
			if acc != nil {
				acc.CommitEdit()
			}
			inv.edit.EndEdit()
			return err
		}
		if acc != nil {
			acc.CommitEdit()
		}
	}

	if lot != nil {
		lot.SetSlot(slotInvoiceID, "")
		AttachOwnerToLot(lot, inv.EndOwner())
		if lot.CountSplits() == 0 {
			lot.Destroy()
		}
	}

	inv.clearPosted()
	inv.markModified()
	inv.AddDomainEvent(NewInvoiceUnpostedEvent(inv.ID, inv.displayID))
	return inv.CommitEdit()
}
