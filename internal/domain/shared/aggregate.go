package shared

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	domainEvents []DomainEvent
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		domainEvents: make([]DomainEvent, 0),
	}
}

// EditState tracks the re-entrant edit session of an editable aggregate.
// BeginEdit/EndEdit pairs may nest; the aggregate is observed atomically
// between the outermost pair. Pending domain events and the commit side
// effects (backend save, deferred free) run only when the depth returns
// to zero.
type EditState struct {
	editLevel int
	dirty     bool
	doomed    bool
}

// BeginEdit enters an edit session. It reports whether this call opened
// the outermost session.
func (s *EditState) BeginEdit() bool {
	s.editLevel++
	return s.editLevel == 1
}

// EndEdit leaves the current edit session. It reports whether the
// outermost session just ended. Unbalanced calls are clamped at zero.
func (s *EditState) EndEdit() bool {
	if s.editLevel == 0 {
		return false
	}
	s.editLevel--
	return s.editLevel == 0
}

// EditLevel returns the current edit nesting depth
func (s *EditState) EditLevel() int {
	return s.editLevel
}

// InEdit reports whether an edit session is open
func (s *EditState) InEdit() bool {
	return s.editLevel > 0
}

// IsDirty reports whether the aggregate has uncommitted changes
func (s *EditState) IsDirty() bool {
	return s.dirty
}

// MarkDirty flags the aggregate as having uncommitted changes
func (s *EditState) MarkDirty() {
	s.dirty = true
}

// ClearDirty resets the dirty flag after a successful commit
func (s *EditState) ClearDirty() {
	s.dirty = false
}

// MarkForDeletion requests deallocation at the next outer commit
func (s *EditState) MarkForDeletion() {
	s.doomed = true
}

// IsMarkedForDeletion reports whether deallocation has been requested
func (s *EditState) IsMarkedForDeletion() bool {
	return s.doomed
}

// EditScope is a one-shot guard around an edit session. Commit runs the
// wrapped commit logic exactly once; later calls are no-ops.
type EditScope struct {
	commit func() error
	done   bool
}

// NewEditScope wraps a commit function in a one-shot guard
func NewEditScope(commit func() error) *EditScope {
	return &EditScope{commit: commit}
}

// Commit ends the scope, running the commit logic on the first call only
func (s *EditScope) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.commit()
}
