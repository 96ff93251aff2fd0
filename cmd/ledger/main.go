package main

import (
	"time"

	"github.com/openbooks/ledger/internal/domain/billing"
	"github.com/openbooks/ledger/internal/domain/ledger"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
	"github.com/openbooks/ledger/internal/infrastructure/config"
	"github.com/openbooks/ledger/internal/infrastructure/event"
	"github.com/openbooks/ledger/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// A small end-to-end walkthrough: open a book, raise an invoice for a
// customer, post it to receivables and settle it with a payment that
// overshoots the invoice total, leaving a carried-forward credit.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting ledger demo",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	bus := event.NewInMemoryEventBus(log)
	policy := billing.DefaultPolicy()
	policy.DefaultCurrency = valueobject.Currency(cfg.Engine.DefaultCurrency)
	policy.UndatedLots = billing.UndatedLotOrder(cfg.Engine.UndatedLots)
	policy.NumericFailure = billing.NumericFailureMode(cfg.Engine.NumericFailure)

	book := billing.NewBook(
		billing.WithLogger(log),
		billing.WithPublisher(bus),
		billing.WithPolicy(policy),
	)

	currency := policy.DefaultCurrency
	receivable := ledger.NewAccount("Accounts Receivable", ledger.AccountTypeReceivable, currency)
	income := ledger.NewAccount("Sales", ledger.AccountTypeIncome, currency)
	bank := ledger.NewAccount("Checking", ledger.AccountTypeBank, currency)

	acme := book.NewCustomer("Acme Corp", currency)

	inv, err := billing.NewInvoice(book, acme.Owner(), currency, time.Now(), "")
	if err != nil {
		log.Fatal("failed to create invoice", zap.Error(err))
	}

	entry := billing.NewEntry(time.Now())
	entry.SetDescription("Consulting services")
	entry.SetQuantity(decimal.NewFromInt(10))
	entry.SetInvPrice(decimal.NewFromInt(150))
	entry.SetInvAccount(income)
	if err := inv.AddEntry(entry); err != nil {
		log.Fatal("failed to add entry", zap.Error(err))
	}

	txn, err := inv.PostToAccount(billing.PostingInput{
		Account:  receivable,
		PostDate: time.Now(),
		DueDate:  time.Now().AddDate(0, 0, 30),
		Memo:     "consulting, March",
	})
	if err != nil {
		log.Fatal("failed to post invoice", zap.Error(err))
	}
	log.Info("invoice posted",
		zap.String("invoice", inv.DisplayName()),
		zap.String("txn", txn.ID().String()),
		zap.String("total", inv.Total().String()),
	)

	// Pay 2000 against a 1500 invoice: 500 becomes customer credit.
	payTxn, err := book.ApplyPayment(billing.PaymentInput{
		Owner:           acme.Owner(),
		PostedAccount:   receivable,
		TransferAccount: bank,
		Amount:          decimal.NewFromInt(2000),
		Date:            time.Now(),
		Memo:            "payment on account",
		Num:             "CHK-1042",
	})
	if err != nil {
		log.Fatal("failed to apply payment", zap.Error(err))
	}

	log.Info("payment applied",
		zap.String("txn", payTxn.ID().String()),
		zap.Bool("invoice_lot_closed", inv.PostedLot().IsClosed()),
		zap.String("receivable_balance", receivable.Balance().String()),
	)
}
