package ledger

import "github.com/openbooks/ledger/internal/domain/shared"

// Ledger-specific domain errors
var (
	ErrUnbalanced = shared.NewDomainError("UNBALANCED_TRANSACTION", "Transaction splits do not sum to zero")
	ErrReadOnly   = shared.NewDomainError("READ_ONLY_TRANSACTION", "Transaction is read-only")
	ErrNotInEdit  = shared.NewDomainError("NOT_IN_EDIT", "Operation requires an open edit session")
)
