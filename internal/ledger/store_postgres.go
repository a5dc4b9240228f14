package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, transaction_id, fi_id, from_wallet, to_wallet, amount, entry_type, device_id, monotonic_counter, nullifier, ts`

// querier is satisfied by *sql.DB and *sql.Tx so the insert helpers
// work standalone and inside the allocation transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) Append(ctx context.Context, e *domain.LedgerEntry) error {
	return appendEntry(ctx, s.db, e)
}

func appendEntry(ctx context.Context, q querier, e *domain.LedgerEntry) error {
	// monotonic_counter is a BIGSERIAL assigned by the database so the
	// ordering survives restarts and concurrent writers.
	err := q.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (id, transaction_id, fi_id, from_wallet, to_wallet, amount, entry_type, device_id, nullifier, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING monotonic_counter`,
		e.ID, e.TransactionID, e.FIID, e.FromWallet, e.ToWallet, e.Amount,
		string(e.Type), e.DeviceID, e.Nullifier, e.Timestamp).
		Scan(&e.MonotonicCounter)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ledger entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY monotonic_counter DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	return s.listEntries(ctx, query, args...)
}

func (s *PostgresStore) ListByFI(ctx context.Context, fiID string, limit int) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE fi_id = $1 ORDER BY monotonic_counter DESC`
	args := []any{fiID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.listEntries(ctx, query, args...)
}

func (s *PostgresStore) listEntries(ctx context.Context, query string, args ...any) ([]*domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	out := []*domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var entryType string
	err := row.Scan(&e.ID, &e.TransactionID, &e.FIID, &e.FromWallet, &e.ToWallet,
		&e.Amount, &entryType, &e.DeviceID, &e.MonotonicCounter, &e.Nullifier, &e.Timestamp)
	if err != nil {
		return nil, err
	}
	e.Type = domain.EntryType(entryType)
	return &e, nil
}

// Allocate runs the balance credit, the entry append, and the
// allocation insert in one transaction. A failure in any write rolls
// back all three, so allocated funds can never outrun the ledger.
func (s *PostgresStore) Allocate(ctx context.Context, fi *domain.FinancialInstitution, e *domain.LedgerEntry, a *domain.FundAllocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allocation: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE financial_institutions
		SET allocated_funds = allocated_funds + $2,
		    available_balance = available_balance + $2,
		    updated_at = $3
		WHERE id = $1
		RETURNING allocated_funds, available_balance, updated_at`,
		fi.ID, a.Amount, time.Now()).
		Scan(&fi.AllocatedFunds, &fi.AvailableBalance, &fi.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.New(errors.CodeNotFound, "financial institution not found")
	}
	if err != nil {
		return fmt.Errorf("credit allocation: %w", err)
	}

	if err := appendEntry(ctx, tx, e); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fund_allocations (id, fi_id, transaction_id, ledger_entry_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.FIID, a.TransactionID, a.LedgerEntryID, a.Amount, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create fund allocation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit allocation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAllocations(ctx context.Context, fiID string) ([]*domain.FundAllocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fi_id, transaction_id, ledger_entry_id, amount, created_at
		FROM fund_allocations WHERE fi_id = $1 ORDER BY created_at`, fiID)
	if err != nil {
		return nil, fmt.Errorf("list fund allocations: %w", err)
	}
	defer rows.Close()

	out := []*domain.FundAllocation{}
	for rows.Next() {
		var a domain.FundAllocation
		if err := rows.Scan(&a.ID, &a.FIID, &a.TransactionID, &a.LedgerEntryID, &a.Amount, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fund allocation: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Route appends the transfer entry and inserts the route in one
// transaction so every ledgered intent stays servable.
func (s *PostgresStore) Route(ctx context.Context, e *domain.LedgerEntry, r *domain.CrossFIRoute) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin route: %w", err)
	}
	defer tx.Rollback()

	if err := appendEntry(ctx, tx, e); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cross_fi_routes (transaction_id, source_fi, target_fi, from_wallet, to_wallet, amount, proof, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.TransactionID, r.SourceFI, r.TargetFI, r.FromWallet, r.ToWallet, r.Amount, r.Proof, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create cross-fi route: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit route: %w", err)
	}
	return nil
}

func (s *PostgresStore) PendingForTarget(ctx context.Context, targetFI string) ([]*domain.CrossFIRoute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, source_fi, target_fi, from_wallet, to_wallet, amount, proof, created_at
		FROM cross_fi_routes WHERE target_fi = $1 ORDER BY created_at`, targetFI)
	if err != nil {
		return nil, fmt.Errorf("list pending cross-fi routes: %w", err)
	}
	defer rows.Close()

	out := []*domain.CrossFIRoute{}
	for rows.Next() {
		var r domain.CrossFIRoute
		if err := rows.Scan(&r.TransactionID, &r.SourceFI, &r.TargetFI, &r.FromWallet,
			&r.ToWallet, &r.Amount, &r.Proof, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cross-fi route: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
