package institution

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

// PostgresStore persists the FI registry in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const fiColumns = `id, name, status, endpoint, public_key, allocated_funds, available_balance, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, fi *domain.FinancialInstitution, apiKeyHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financial_institutions
			(id, name, status, endpoint, public_key, api_key_hash, allocated_funds, available_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		fi.ID, fi.Name, string(fi.Status), fi.Endpoint, fi.PublicKey, apiKeyHash,
		fi.AllocatedFunds, fi.AvailableBalance, fi.CreatedAt, fi.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return errors.New(errors.CodeConflict, "endpoint already registered")
		}
		return fmt.Errorf("create fi: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*domain.FinancialInstitution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fiColumns+` FROM financial_institutions WHERE id = $1`, id)
	return scanFI(row)
}

func (s *PostgresStore) FindByEndpoint(ctx context.Context, endpoint string) (*domain.FinancialInstitution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fiColumns+` FROM financial_institutions WHERE endpoint = $1`, endpoint)
	return scanFI(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*domain.FinancialInstitution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fiColumns+` FROM financial_institutions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list fis: %w", err)
	}
	defer rows.Close()

	var out []*domain.FinancialInstitution
	for rows.Next() {
		fi, err := scanFI(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fi)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateName(ctx context.Context, id, name string) (*domain.FinancialInstitution, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE financial_institutions SET name = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+fiColumns, id, name, time.Now())
	return scanFI(row)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status domain.FIStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE financial_institutions SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), time.Now())
	if err != nil {
		return fmt.Errorf("update fi status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ApplyAllocation(ctx context.Context, id string, amount float64) (*domain.FinancialInstitution, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE financial_institutions
		SET allocated_funds = allocated_funds + $2,
		    available_balance = available_balance + $2,
		    updated_at = $3
		WHERE id = $1
		RETURNING `+fiColumns, id, amount, time.Now())
	return scanFI(row)
}

func (s *PostgresStore) APIKeyHash(ctx context.Context, id string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT api_key_hash FROM financial_institutions WHERE id = $1`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fi api key hash: %w", err)
	}
	return hash, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanFI hydrates one FI from the fixed fiColumns projection.
func scanFI(row rowScanner) (*domain.FinancialInstitution, error) {
	var fi domain.FinancialInstitution
	var status string
	err := row.Scan(&fi.ID, &fi.Name, &status, &fi.Endpoint, &fi.PublicKey,
		&fi.AllocatedFunds, &fi.AvailableBalance, &fi.CreatedAt, &fi.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan fi: %w", err)
	}
	fi.Status = domain.FIStatus(status)
	return &fi, nil
}
