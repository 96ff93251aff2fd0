package billing

import "github.com/openbooks/ledger/internal/domain/shared"

// Billing domain errors
var (
	ErrAlreadyPosted  = shared.NewDomainError("ALREADY_POSTED", "Document is already posted")
	ErrNotPosted      = shared.NewDomainError("NOT_POSTED", "Document is not posted")
	ErrEntryAttached  = shared.NewDomainError("ENTRY_ATTACHED", "Entry already belongs to another document")
	ErrBadTaxEntry    = shared.NewDomainError("BAD_TAX_ENTRY", "Tax table entry cannot be evaluated")
	ErrNoOwner        = shared.NewDomainError("NO_OWNER", "Document has no counterparty")
	ErrWrongAccount   = shared.NewDomainError("WRONG_ACCOUNT", "Account type does not match the operation")
	ErrNothingToApply = shared.NewDomainError("NOTHING_TO_APPLY", "Payment amount is zero")
)
