package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/openbooks/ledger/internal/domain/shared"
	"github.com/openbooks/ledger/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// UndatedLotOrder picks where lots without an attached document sort
// during FIFO payment allocation
type UndatedLotOrder string

const (
	UndatedLotsFirst UndatedLotOrder = "first" // undated lots are settled before dated ones
	UndatedLotsLast  UndatedLotOrder = "last"  // undated lots are settled after all dated ones
)

// NumericFailureMode picks how the posting engine treats a line item
// whose value cannot be computed
type NumericFailureMode string

const (
	NumericFailureSkip NumericFailureMode = "skip" // warn and drop the bad term
	NumericFailureFail NumericFailureMode = "fail" // abort the whole post
)

// Policy holds the book-level behavior knobs of the engine
type Policy struct {
	DefaultCurrency valueobject.Currency
	UndatedLots     UndatedLotOrder
	NumericFailure  NumericFailureMode
}

// DefaultPolicy returns the stock engine policy
func DefaultPolicy() Policy {
	return Policy{
		DefaultCurrency: valueobject.DefaultCurrency,
		UndatedLots:     UndatedLotsFirst,
		NumericFailure:  NumericFailureSkip,
	}
}

// CommitHandler receives the backend side of an aggregate commit. Save
// is the backend write itself; the On* hooks observe its outcome. The
// engine stays free of persistence concerns through this interface.
type CommitHandler interface {
	Save(invoice *Invoice) error
	OnCommitFailure(invoice *Invoice, err error)
	OnCommitSuccess(invoice *Invoice)
	OnDestroyed(id uuid.UUID)
}

// NopCommitHandler accepts every commit and ignores every hook
type NopCommitHandler struct{}

// Save accepts the commit
func (NopCommitHandler) Save(*Invoice) error { return nil }

// OnCommitFailure ignores the failure
func (NopCommitHandler) OnCommitFailure(*Invoice, error) {}

// OnCommitSuccess ignores the success
func (NopCommitHandler) OnCommitSuccess(*Invoice) {}

// OnDestroyed ignores the removal
func (NopCommitHandler) OnDestroyed(uuid.UUID) {}

// StringCache interns the short strings shared by many documents (ids,
// billing references, the empty string) and tracks per-string
// reference counts so the table can shrink when documents are freed.
type StringCache struct {
	refs map[string]int
}

// NewStringCache creates an empty interning table
func NewStringCache() *StringCache {
	return &StringCache{refs: make(map[string]int)}
}

// Intern records one more reference to s and returns the shared value
func (c *StringCache) Intern(s string) string {
	c.refs[s]++
	return s
}

// Release drops one reference to s, removing the table entry when the
// last reference is gone
func (c *StringCache) Release(s string) {
	n, ok := c.refs[s]
	if !ok {
		return
	}
	if n <= 1 {
		delete(c.refs, s)
		return
	}
	c.refs[s] = n - 1
}

// Len returns the number of distinct interned strings
func (c *StringCache) Len() int {
	return len(c.refs)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

// Book is the session scope of the engine: it owns the entity index,
// the counterparty registries, the interned-string table, per-type
// counters and dirty flags, and the injected backend/event collaborators.
// It is not safe for concurrent use; callers own the locking.
type Book struct {
	id        uuid.UUID
	logger    *zap.Logger
	policy    Policy
	publisher shared.EventPublisher
	handler   CommitHandler

	invoices  map[uuid.UUID]*Invoice
	customers map[uuid.UUID]*Customer
	vendors   map[uuid.UUID]*Vendor
	employees map[uuid.UUID]*Employee
	jobs      map[uuid.UUID]*Job

	counters map[string]int64
	strings  *StringCache
	dirty    map[string]bool
}

// BookOption customizes a Book at construction time
type BookOption func(*Book)

// WithLogger injects the book logger
func WithLogger(logger *zap.Logger) BookOption {
	return func(b *Book) { b.logger = logger }
}

// WithPublisher injects the domain event publisher
func WithPublisher(publisher shared.EventPublisher) BookOption {
	return func(b *Book) { b.publisher = publisher }
}

// WithCommitHandler injects the backend commit handler
func WithCommitHandler(handler CommitHandler) BookOption {
	return func(b *Book) { b.handler = handler }
}

// WithPolicy overrides the engine policy
func WithPolicy(policy Policy) BookOption {
	return func(b *Book) { b.policy = policy }
}

// NewBook creates an empty session
func NewBook(opts ...BookOption) *Book {
	b := &Book{
		id:        uuid.New(),
		logger:    zap.NewNop(),
		policy:    DefaultPolicy(),
		publisher: nopPublisher{},
		handler:   NopCommitHandler{},
		invoices:  make(map[uuid.UUID]*Invoice),
		customers: make(map[uuid.UUID]*Customer),
		vendors:   make(map[uuid.UUID]*Vendor),
		employees: make(map[uuid.UUID]*Employee),
		jobs:      make(map[uuid.UUID]*Job),
		counters:  make(map[string]int64),
		strings:   NewStringCache(),
		dirty:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID returns the book identifier
func (b *Book) ID() uuid.UUID {
	return b.id
}

// Policy returns the engine policy of this book
func (b *Book) Policy() Policy {
	return b.policy
}

// Logger returns the book logger
func (b *Book) Logger() *zap.Logger {
	return b.logger
}

// Strings returns the interned-string table
func (b *Book) Strings() *StringCache {
	return b.strings
}

// NextID advances and returns the per-type display-id counter
func (b *Book) NextID(entityType string) int64 {
	b.counters[entityType]++
	return b.counters[entityType]
}

// MarkDirty flags an entity type as having uncommitted changes
func (b *Book) MarkDirty(entityType string) {
	b.dirty[entityType] = true
}

// MarkClean clears the dirty flag for an entity type
func (b *Book) MarkClean(entityType string) {
	delete(b.dirty, entityType)
}

// IsDirty reports whether an entity type has uncommitted changes
func (b *Book) IsDirty(entityType string) bool {
	return b.dirty[entityType]
}

// NewCustomer registers a customer in the book
func (b *Book) NewCustomer(name string, currency valueobject.Currency) *Customer {
	c := &Customer{BaseEntity: shared.NewBaseEntity(), Name: name, Currency: currency}
	b.customers[c.ID] = c
	return c
}

// NewVendor registers a vendor in the book
func (b *Book) NewVendor(name string, currency valueobject.Currency) *Vendor {
	v := &Vendor{BaseEntity: shared.NewBaseEntity(), Name: name, Currency: currency}
	b.vendors[v.ID] = v
	return v
}

// NewEmployee registers an employee in the book
func (b *Book) NewEmployee(name string, currency valueobject.Currency) *Employee {
	e := &Employee{BaseEntity: shared.NewBaseEntity(), Name: name, Currency: currency}
	b.employees[e.ID] = e
	return e
}

// NewJob registers a job under the given customer or vendor
func (b *Book) NewJob(name string, parent Owner) *Job {
	j := &Job{BaseEntity: shared.NewBaseEntity(), Name: name, Parent: parent}
	b.jobs[j.ID] = j
	return j
}

// EndOwner collapses a Job reference to its underlying billable
// customer or vendor; other owner kinds resolve to themselves. An
// unknown job resolves to NoOwner.
func (b *Book) EndOwner(owner Owner) Owner {
	if owner.Type != OwnerTypeJob {
		return owner
	}
	job, ok := b.jobs[owner.ID]
	if !ok {
		return NoOwner
	}
	return job.Parent
}

// OwnerName resolves the display name of an owner reference
func (b *Book) OwnerName(owner Owner) string {
	switch owner.Type {
	case OwnerTypeCustomer:
		if c, ok := b.customers[owner.ID]; ok {
			return c.Name
		}
	case OwnerTypeVendor:
		if v, ok := b.vendors[owner.ID]; ok {
			return v.Name
		}
	case OwnerTypeEmployee:
		if e, ok := b.employees[owner.ID]; ok {
			return e.Name
		}
	case OwnerTypeJob:
		if j, ok := b.jobs[owner.ID]; ok {
			return j.Name
		}
	}
	return ""
}

// OwnerCurrency resolves the currency of an owner reference, falling
// back to the book default
func (b *Book) OwnerCurrency(owner Owner) valueobject.Currency {
	end := b.EndOwner(owner)
	switch end.Type {
	case OwnerTypeCustomer:
		if c, ok := b.customers[end.ID]; ok && c.Currency != "" {
			return c.Currency
		}
	case OwnerTypeVendor:
		if v, ok := b.vendors[end.ID]; ok && v.Currency != "" {
			return v.Currency
		}
	case OwnerTypeEmployee:
		if e, ok := b.employees[end.ID]; ok && e.Currency != "" {
			return e.Currency
		}
	}
	return b.policy.DefaultCurrency
}

// LookupInvoice resolves an invoice by identity, or nil
func (b *Book) LookupInvoice(id uuid.UUID) *Invoice {
	return b.invoices[id]
}

// Invoices returns every registered invoice in no particular order
func (b *Book) Invoices() []*Invoice {
	out := make([]*Invoice, 0, len(b.invoices))
	for _, inv := range b.invoices {
		out = append(out, inv)
	}
	return out
}

func (b *Book) registerInvoice(inv *Invoice) {
	b.invoices[inv.ID] = inv
}

func (b *Book) unregisterInvoice(inv *Invoice) {
	delete(b.invoices, inv.ID)
}

func (b *Book) publish(events ...shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := b.publisher.Publish(context.Background(), events...); err != nil {
		b.logger.Error("failed to publish domain events", zap.Error(err))
	}
}
