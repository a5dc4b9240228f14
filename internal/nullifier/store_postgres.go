package nullifier

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

// PostgresStore persists nullifiers. The table's primary key on value is
// the uniqueness guarantee; the store never checks before inserting.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, n *domain.Nullifier) (*domain.Nullifier, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nullifiers (value, fi_id, transaction_id, serial_number, amount, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		n.Value, n.FIID, n.TransactionID, n.SerialNumber, n.Amount, n.RegisteredAt)
	if err == nil {
		return nil, nil
	}

	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code.Name() != "unique_violation" {
		return nil, fmt.Errorf("insert nullifier: %w", err)
	}

	existing, ferr := s.Find(ctx, n.Value)
	if ferr != nil {
		// The winning row is committed; failing to read it back still
		// means this registration lost.
		return nil, errors.Wrap(ferr, errors.CodeDoubleSpend, "nullifier already registered")
	}
	return existing, errors.Newf(errors.CodeDoubleSpend,
		"nullifier already registered by transaction %s", existing.TransactionID)
}

func (s *PostgresStore) Find(ctx context.Context, value string) (*domain.Nullifier, error) {
	var n domain.Nullifier
	err := s.db.QueryRowContext(ctx, `
		SELECT value, fi_id, transaction_id, serial_number, amount, registered_at
		FROM nullifiers WHERE value = $1`, value).
		Scan(&n.Value, &n.FIID, &n.TransactionID, &n.SerialNumber, &n.Amount, &n.RegisteredAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find nullifier: %w", err)
	}
	return &n, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nullifiers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count nullifiers: %w", err)
	}
	return count, nil
}
