package alert

import (
	"context"
	"database/sql"
	"fmt"

	"centralledger/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, a *domain.Alert) error {
	details, err := domain.MarshalDetails(a.Details)
	if err != nil {
		return fmt.Errorf("marshal alert details: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts
			(id, alert_type, severity, fi_id, wallet_id, device_id, transaction_id, amount, message, details, is_read, is_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, FALSE, $11)`,
		a.ID, a.Type, string(a.Severity), a.FIID, a.WalletID, a.DeviceID,
		a.TransactionID, a.Amount, a.Message, details, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("append alert: %w", err)
	}
	return nil
}

const alertColumns = `id, alert_type, severity, fi_id, wallet_id, device_id, transaction_id, amount, message, details, is_read, is_resolved, created_at`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*domain.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	return scanAlert(row)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	var args []any
	if f.UnresolvedOnly {
		query += ` AND NOT is_resolved`
	}
	if f.FIID != "" {
		args = append(args, f.FIID)
		query += fmt.Sprintf(` AND fi_id = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetRead(ctx context.Context, id string) error {
	return s.flip(ctx, id, `UPDATE alerts SET is_read = TRUE WHERE id = $1`)
}

func (s *PostgresStore) SetResolved(ctx context.Context, id string) error {
	return s.flip(ctx, id, `UPDATE alerts SET is_resolved = TRUE WHERE id = $1`)
}

func (s *PostgresStore) flip(ctx context.Context, id, query string) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
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

func (s *PostgresStore) CountUnresolved(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE NOT is_resolved`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unresolved alerts: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var a domain.Alert
	var severity string
	var details []byte
	err := row.Scan(&a.ID, &a.Type, &severity, &a.FIID, &a.WalletID, &a.DeviceID,
		&a.TransactionID, &a.Amount, &a.Message, &details, &a.IsRead, &a.IsResolved, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.Severity = domain.Severity(severity)
	if a.Details, err = domain.UnmarshalDetails(details); err != nil {
		return nil, fmt.Errorf("decode alert details: %w", err)
	}
	return &a, nil
}

// PostgresRuleStore holds the monitor catalog in PostgreSQL.
type PostgresRuleStore struct {
	db *sql.DB
}

func NewPostgresRules(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

func (s *PostgresRuleStore) ListActiveRules(ctx context.Context) ([]*domain.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, condition_type, threshold_value, threshold_count, time_window_minutes, severity, is_active
		FROM alert_rules WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	defer rows.Close()

	var out []*domain.AlertRule
	for rows.Next() {
		var r domain.AlertRule
		var severity string
		if err := rows.Scan(&r.ID, &r.ConditionType, &r.ThresholdValue, &r.ThresholdCount,
			&r.TimeWindowMinutes, &severity, &r.IsActive); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		r.Severity = domain.Severity(severity)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresRuleStore) PutRule(ctx context.Context, r *domain.AlertRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_rules (id, condition_type, threshold_value, threshold_count, time_window_minutes, severity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			condition_type = EXCLUDED.condition_type,
			threshold_value = EXCLUDED.threshold_value,
			threshold_count = EXCLUDED.threshold_count,
			time_window_minutes = EXCLUDED.time_window_minutes,
			severity = EXCLUDED.severity,
			is_active = EXCLUDED.is_active`,
		r.ID, r.ConditionType, r.ThresholdValue, r.ThresholdCount,
		r.TimeWindowMinutes, string(r.Severity), r.IsActive)
	if err != nil {
		return fmt.Errorf("put alert rule: %w", err)
	}
	return nil
}
