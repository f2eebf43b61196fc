package sheets

import (
	"context"

	"conti/internal/core"
)

// Ports for outbound adapters.
type (
	// EntryWriter appends one ledger entry to the export sheet and returns a
	// reference to the written row.
	EntryWriter interface {
		AppendEntry(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// EntryLister reads exported entries back for a given month.
	EntryLister interface {
		ListEntries(ctx context.Context, year int, month int) ([]core.Transaction, error)
	}
)
