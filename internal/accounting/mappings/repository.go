package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/accounting/shared"
)

// Repository resolves (module, key) pairs to ledger accounts. The posting
// hooks refuse to guess accounts: an unconfigured pair surfaces as
// shared.ErrMappingNotFound and the business transaction aborts.
type Repository interface {
	Get(ctx context.Context, module, key string) (AccountMapping, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const getMappingSQL = `SELECT module, key, account_id, created_at, updated_at
FROM account_mappings WHERE module=$1 AND key=$2`

// Get fetches one mapping row. Modules are stored uppercase ("SALES",
// "INVENTORY"); the lookup normalizes so callers can pass either case.
// Keys are dotted and case-sensitive, see the Key* constants.
func (r *repository) Get(ctx context.Context, module, key string) (AccountMapping, error) {
	if module == "" || key == "" {
		return AccountMapping{}, errors.New("accounting: module and key required")
	}
	var m AccountMapping
	err := r.db.QueryRow(ctx, getMappingSQL, strings.ToUpper(module), key).
		Scan(&m.Module, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountMapping{}, shared.ErrMappingNotFound
	}
	if err != nil {
		return AccountMapping{}, err
	}
	return m, nil
}
