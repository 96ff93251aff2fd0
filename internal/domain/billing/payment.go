package billing

import (
	"time"

	"github.com/openbooks/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentInput carries the arguments of ApplyPayment
type PaymentInput struct {
	Owner           Owner           `validate:"required"`
	PostedAccount   *ledger.Account `validate:"required"`
	TransferAccount *ledger.Account `validate:"required"`
	Amount          decimal.Decimal
	Date            time.Time `validate:"required"`
	Memo            string
	Num             string
}

// lotDueDate resolves the due date of the document a lot settles, or
// the zero time for a lot with no attached document
func (b *Book) lotDueDate(lot *ledger.Lot) time.Time {
	inv := InvoiceFromLot(b, lot)
	if inv == nil {
		return time.Time{}
	}
	return inv.DateDue()
}

// ApplyPayment allocates a counterparty payment across the open lots
// of the posted account, oldest due date first. A lot already holding
// counterparty credit is skipped during the walk and reused as the
// deposit target for whatever amount is left after every open
// receivable has been settled; without one, the remainder opens a
// fresh credit lot for the counterparty. The balanced payment
// transaction is returned.
func (b *Book) ApplyPayment(input PaymentInput) (*ledger.Transaction, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	owner := b.EndOwner(input.Owner)
	if owner.IsZero() {
		return nil, ErrNoOwner
	}
	if !input.Amount.IsPositive() {
		return nil, ErrNothingToApply
	}

	reverse := owner.Type == OwnerTypeCustomer
	currency := b.OwnerCurrency(input.Owner)
	acc := input.PostedAccount

	txn := ledger.NewTransaction(currency)
	txn.BeginEdit()
	_ = txn.SetDescription(b.OwnerName(input.Owner))
	_ = txn.SetNum(input.Num)
	txn.SetType(ledger.TxnTypePayment)
	txn.SetDateEntered(time.Now())
	txn.SetDatePosted(input.Date)

	// The transfer leg carries the full payment in one split.
	xfer := ledger.NewSplit(currency)
	xfer.SetMemo(input.Memo)
	xfer.SetAction(actionPayment)
	xferValue := input.Amount
	if !reverse {
		xferValue = xferValue.Neg()
	}
	xfer.SetValue(newMoney(xferValue, currency))
	input.TransferAccount.BeginEdit()
	input.TransferAccount.InsertSplit(xfer)
	input.TransferAccount.CommitEdit()
	if err := txn.AppendSplit(xfer); err != nil {
		return nil, err
	}

	lots := acc.FindOpenLots(func(lot *ledger.Lot) bool {
		if inv := InvoiceFromLot(b, lot); inv != nil {
			return inv.EndOwner().Equal(owner)
		}
		lotOwner, ok := OwnerFromLot(lot)
		return ok && b.EndOwner(lotOwner).Equal(owner)
	}, func(x, y *ledger.Lot) bool {
		dx, dy := b.lotDueDate(x), b.lotDueDate(y)
		if dx.IsZero() != dy.IsZero() {
			if b.policy.UndatedLots == UndatedLotsLast {
				return dy.IsZero()
			}
			return dx.IsZero()
		}
		return dx.Before(dy)
	})

	acc.BeginEdit()
	remaining := input.Amount
	settled := 0
	var prepayLot *ledger.Lot
	for _, lot := range lots {
		balance := adjustedBalance(lot.Balance(), reverse)
		if balance.IsNegative() {
			// Counterparty credit, not a receivable. One such lot is
			// remembered as the deposit target for any remainder.
			if prepayLot == nil {
				prepayLot = lot
			} else {
				b.logger.Warn("multiple pre-payment lots found, skipping",
					zap.String("owner", b.OwnerName(input.Owner)),
					zap.String("lot", lot.ID().String()))
			}
			continue
		}
		if balance.IsZero() || !remaining.IsPositive() {
			continue
		}

		apply := decimal.Min(remaining, balance)
		split := ledger.NewSplit(currency)
		split.SetMemo(input.Memo)
		split.SetAction(actionPayment)
		value := apply
		if reverse {
			value = value.Neg()
		}
		split.SetValue(newMoney(value, currency))
		acc.InsertSplit(split)
		if err := txn.AppendSplit(split); err != nil {
			acc.CommitEdit()
			return nil, err
		}
		lot.AddSplit(split)
		remaining = remaining.Sub(apply)
		settled++
	}

	// Whatever is left becomes counterparty credit.
	prePaid := decimal.Zero
	if remaining.IsPositive() {
		prePaid = remaining
		if prepayLot == nil {
			prepayLot = ledger.NewLot(acc)
			AttachOwnerToLot(prepayLot, owner)
		}
		split := ledger.NewSplit(currency)
		split.SetMemo(input.Memo)
		split.SetAction(actionPayment)
		value := remaining
		if reverse {
			value = value.Neg()
		}
		split.SetValue(newMoney(value, currency))
		acc.InsertSplit(split)
		if err := txn.AppendSplit(split); err != nil {
			acc.CommitEdit()
			return nil, err
		}
		prepayLot.AddSplit(split)
	}
	acc.CommitEdit()

	if err := txn.CommitEdit(); err != nil {
		return nil, err
	}

	b.publish(NewPaymentAppliedEvent(owner, input.Amount, settled, prePaid))
	return txn, nil
}
