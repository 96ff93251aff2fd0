package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/openbooks/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants for the billing domain
const (
	EventTypeInvoiceCreated   = "invoice.created"
	EventTypeInvoiceModified  = "invoice.modified"
	EventTypeInvoicePosted    = "invoice.posted"
	EventTypeInvoiceUnposted  = "invoice.unposted"
	EventTypeInvoiceDestroyed = "invoice.destroyed"
	EventTypePaymentApplied   = "payment.applied"
)

const aggregateTypeInvoice = "Invoice"

// InvoiceCreatedEvent is published when a new document is registered
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	DisplayID string    `json:"display_id"`
	OwnerType OwnerType `json:"owner_type"`
	OwnerID   uuid.UUID `json:"owner_id"`
}

// NewInvoiceCreatedEvent creates a new invoice created event
func NewInvoiceCreatedEvent(invoiceID uuid.UUID, displayID string, owner Owner) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, aggregateTypeInvoice, invoiceID),
		DisplayID:       displayID,
		OwnerType:       owner.Type,
		OwnerID:         owner.ID,
	}
}

// InvoiceModifiedEvent is published once per outer commit of a dirty document
type InvoiceModifiedEvent struct {
	shared.BaseDomainEvent
	DisplayID string `json:"display_id"`
}

// NewInvoiceModifiedEvent creates a new invoice modified event
func NewInvoiceModifiedEvent(invoiceID uuid.UUID, displayID string) *InvoiceModifiedEvent {
	return &InvoiceModifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceModified, aggregateTypeInvoice, invoiceID),
		DisplayID:       displayID,
	}
}

// InvoicePostedEvent is published when a document is posted to the ledger
type InvoicePostedEvent struct {
	shared.BaseDomainEvent
	DisplayID     string          `json:"display_id"`
	PostedTxnID   uuid.UUID       `json:"posted_txn_id"`
	PostedAccount string          `json:"posted_account"`
	PostDate      time.Time       `json:"post_date"`
	DueDate       time.Time       `json:"due_date"`
	Total         decimal.Decimal `json:"total"`
}

// NewInvoicePostedEvent creates a new invoice posted event
func NewInvoicePostedEvent(invoiceID uuid.UUID, displayID string, txnID uuid.UUID,
	account string, postDate, dueDate time.Time, total decimal.Decimal) *InvoicePostedEvent {
	return &InvoicePostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePosted, aggregateTypeInvoice, invoiceID),
		DisplayID:       displayID,
		PostedTxnID:     txnID,
		PostedAccount:   account,
		PostDate:        postDate,
		DueDate:         dueDate,
		Total:           total,
	}
}

// InvoiceUnpostedEvent is published when posting is reversed
type InvoiceUnpostedEvent struct {
	shared.BaseDomainEvent
	DisplayID string `json:"display_id"`
}

// NewInvoiceUnpostedEvent creates a new invoice unposted event
func NewInvoiceUnpostedEvent(invoiceID uuid.UUID, displayID string) *InvoiceUnpostedEvent {
	return &InvoiceUnpostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceUnposted, aggregateTypeInvoice, invoiceID),
		DisplayID:       displayID,
	}
}

// InvoiceDestroyedEvent is published when a document is freed
type InvoiceDestroyedEvent struct {
	shared.BaseDomainEvent
	DisplayID string `json:"display_id"`
}

// NewInvoiceDestroyedEvent creates a new invoice destroyed event
func NewInvoiceDestroyedEvent(invoiceID uuid.UUID, displayID string) *InvoiceDestroyedEvent {
	return &InvoiceDestroyedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceDestroyed, aggregateTypeInvoice, invoiceID),
		DisplayID:       displayID,
	}
}

// PaymentAppliedEvent is published when a counterparty payment has been
// allocated across open lots
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	OwnerType    OwnerType       `json:"owner_type"`
	Amount       decimal.Decimal `json:"amount"`
	LotsSettled  int             `json:"lots_settled"`
	PrePaidValue decimal.Decimal `json:"pre_paid_value"`
}

// NewPaymentAppliedEvent creates a new payment applied event
func NewPaymentAppliedEvent(owner Owner, amount decimal.Decimal, lotsSettled int, prePaid decimal.Decimal) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentApplied, "Payment", owner.ID),
		OwnerType:       owner.Type,
		Amount:          amount,
		LotsSettled:     lotsSettled,
		PrePaidValue:    prePaid,
	}
}
