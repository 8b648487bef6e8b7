package ledger

import (
	"context"
	"fmt"

	"pagemotion/internal/config"
)

// Open returns the Store selected by cfg.
func Open(ctx context.Context, cfg config.Ledger) (Store, error) {
	switch cfg.Driver {
	case config.LedgerMemory, "":
		return NewMemory(), nil
	case config.LedgerPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case config.LedgerSQLite:
		return OpenSQLite(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}
