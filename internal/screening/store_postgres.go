package screening

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"centralledger/internal/domain"
	"centralledger/pkg/errors"
)

// PostgresStore persists screening state. The unique index on active
// freezes and the watchlist unique key live in the schema, so concurrent
// writers cannot create duplicates.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) UpsertWatchlist(ctx context.Context, e *domain.WatchlistEntry) (*domain.WatchlistEntry, error) {
	now := time.Now()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO watchlist_entries
			(id, entity_type, entity_id, fi_id, status, risk_level, reason, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (entity_type, entity_id, fi_id) DO UPDATE SET
			status = EXCLUDED.status,
			risk_level = EXCLUDED.risk_level,
			reason = EXCLUDED.reason,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, entity_type, entity_id, fi_id, status, risk_level, reason, expires_at, created_at, updated_at`,
		uuid.NewString(), string(e.EntityType), e.EntityID, e.FIID, string(e.Status),
		e.RiskLevel, e.Reason, e.ExpiresAt, now)
	return scanWatchlistEntry(row)
}

func (s *PostgresStore) WatchlistFor(ctx context.Context, entityType domain.EntityType, entityID, fiID string) ([]*domain.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, fi_id, status, risk_level, reason, expires_at, created_at, updated_at
		FROM watchlist_entries
		WHERE entity_type = $1 AND entity_id = $2 AND (fi_id = '' OR fi_id = $3)`,
		string(entityType), entityID, fiID)
	if err != nil {
		return nil, fmt.Errorf("watchlist lookup: %w", err)
	}
	defer rows.Close()

	var out []*domain.WatchlistEntry
	for rows.Next() {
		e, err := scanWatchlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountWatchlist(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watchlist_entries`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count watchlist: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CreateFreeze(ctx context.Context, fa *domain.FrozenAccount) error {
	id := fa.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO frozen_accounts (id, entity_type, entity_id, fi_id, is_frozen, reason, frozen_by, frozen_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7)`,
		id, string(fa.EntityType), fa.EntityID, fa.FIID, fa.Reason, fa.FrozenBy, fa.FrozenAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return errors.New(errors.CodeConflict, "entity already frozen")
		}
		return fmt.Errorf("create freeze: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateFreeze(ctx context.Context, fa *domain.FrozenAccount) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE frozen_accounts SET reason = $4, frozen_by = $5
		WHERE entity_type = $1 AND entity_id = $2 AND fi_id = $3 AND is_frozen`,
		string(fa.EntityType), fa.EntityID, fa.FIID, fa.Reason, fa.FrozenBy)
	if err != nil {
		return fmt.Errorf("update freeze: %w", err)
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

func (s *PostgresStore) ReleaseFreeze(ctx context.Context, entityType domain.EntityType, entityID, fiID string, at time.Time) (*domain.FrozenAccount, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE frozen_accounts SET is_frozen = FALSE, unfrozen_at = $4
		WHERE entity_type = $1 AND entity_id = $2 AND fi_id = $3 AND is_frozen
		RETURNING id, entity_type, entity_id, fi_id, is_frozen, reason, frozen_by, frozen_at, unfrozen_at`,
		string(entityType), entityID, fiID, at)
	return scanFrozenAccount(row)
}

func (s *PostgresStore) ActiveFreezes(ctx context.Context, entityType domain.EntityType, entityID string) ([]*domain.FrozenAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, fi_id, is_frozen, reason, frozen_by, frozen_at, unfrozen_at
		FROM frozen_accounts
		WHERE entity_type = $1 AND entity_id = $2 AND is_frozen`,
		string(entityType), entityID)
	if err != nil {
		return nil, fmt.Errorf("active freezes: %w", err)
	}
	defer rows.Close()

	var out []*domain.FrozenAccount
	for rows.Next() {
		f, err := scanFrozenAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountFrozen(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM frozen_accounts WHERE is_frozen`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count frozen: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWatchlistEntry(row rowScanner) (*domain.WatchlistEntry, error) {
	var e domain.WatchlistEntry
	var entityType, status string
	var expiresAt sql.NullTime
	err := row.Scan(&e.ID, &entityType, &e.EntityID, &e.FIID, &status,
		&e.RiskLevel, &e.Reason, &expiresAt, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan watchlist entry: %w", err)
	}
	e.EntityType = domain.EntityType(entityType)
	e.Status = domain.WatchlistStatus(status)
	if expiresAt.Valid {
		e.ExpiresAt = &expiresAt.Time
	}
	return &e, nil
}

func scanFrozenAccount(row rowScanner) (*domain.FrozenAccount, error) {
	var f domain.FrozenAccount
	var entityType string
	var unfrozenAt sql.NullTime
	err := row.Scan(&f.ID, &entityType, &f.EntityID, &f.FIID, &f.IsFrozen,
		&f.Reason, &f.FrozenBy, &f.FrozenAt, &unfrozenAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan frozen account: %w", err)
	}
	f.EntityType = domain.EntityType(entityType)
	if unfrozenAt.Valid {
		f.UnfrozenAt = &unfrozenAt.Time
	}
	return &f, nil
}
