package sheets

import (
	"context"

	"custos/internal/core"
)

// Ports for inbound spreadsheet adapters.
type (
	// TableReader yields the raw header and rows of a cost spreadsheet.
	// A missing source is reported with core.ErrSourceNotFound in the chain;
	// any other failure as *core.LoadError.
	TableReader interface {
		ReadTable(ctx context.Context) (core.RawTable, error)
		// Source names the spreadsheet in user-facing messages.
		Source() string
	}
)
