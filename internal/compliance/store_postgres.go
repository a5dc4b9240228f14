package compliance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"centralledger/internal/domain"
)

type PostgresRuleStore struct {
	db *sql.DB
}

func NewPostgresRules(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

const ruleColumns = `id, rule_type, target_type, target_id, limit_value, daily_limit, monthly_limit, max_offline_amount, max_offline_count, is_active, priority, created_at`

func (s *PostgresRuleStore) CreateRule(ctx context.Context, r *domain.ComplianceRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compliance_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, string(r.RuleType), string(r.TargetType), r.TargetID, r.LimitValue,
		r.DailyLimit, r.MonthlyLimit, r.MaxOfflineAmount, r.MaxOfflineCount,
		r.IsActive, r.Priority, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create compliance rule: %w", err)
	}
	return nil
}

func (s *PostgresRuleStore) ListActive(ctx context.Context) ([]*domain.ComplianceRule, error) {
	return s.list(ctx, `SELECT `+ruleColumns+` FROM compliance_rules WHERE is_active ORDER BY priority DESC, id`)
}

func (s *PostgresRuleStore) ListAll(ctx context.Context) ([]*domain.ComplianceRule, error) {
	return s.list(ctx, `SELECT `+ruleColumns+` FROM compliance_rules ORDER BY priority DESC, id`)
}

func (s *PostgresRuleStore) list(ctx context.Context, query string) ([]*domain.ComplianceRule, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list compliance rules: %w", err)
	}
	defer rows.Close()

	var out []*domain.ComplianceRule
	for rows.Next() {
		var r domain.ComplianceRule
		var ruleType, targetType string
		if err := rows.Scan(&r.ID, &ruleType, &targetType, &r.TargetID, &r.LimitValue,
			&r.DailyLimit, &r.MonthlyLimit, &r.MaxOfflineAmount, &r.MaxOfflineCount,
			&r.IsActive, &r.Priority, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan compliance rule: %w", err)
		}
		r.RuleType = domain.RuleType(ruleType)
		r.TargetType = domain.TargetType(targetType)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresRuleStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE compliance_rules SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate compliance rule: %w", err)
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

type PostgresStatusStore struct {
	db *sql.DB
}

func NewPostgresStatus(db *sql.DB) *PostgresStatusStore {
	return &PostgresStatusStore{db: db}
}

func (s *PostgresStatusStore) Get(ctx context.Context, fiID string) (*domain.ComplianceStatus, error) {
	var st domain.ComplianceStatus
	err := s.db.QueryRowContext(ctx, `
		SELECT fi_id, daily_volume, monthly_volume, offline_tx_count, flagged_count, score, updated_at
		FROM compliance_status WHERE fi_id = $1`, fiID).
		Scan(&st.FIID, &st.DailyVolume, &st.MonthlyVolume, &st.OfflineTxCount,
			&st.FlaggedCount, &st.Score, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return &domain.ComplianceStatus{FIID: fiID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get compliance status: %w", err)
	}
	return &st, nil
}

func (s *PostgresStatusStore) AddVolume(ctx context.Context, fiID string, amount float64, offline bool) (*domain.ComplianceStatus, error) {
	offlineInc := 0
	if offline {
		offlineInc = 1
	}
	var st domain.ComplianceStatus
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO compliance_status (fi_id, daily_volume, monthly_volume, offline_tx_count, flagged_count, score, updated_at)
		VALUES ($1, $2, $2, $3, 0, 0, $4)
		ON CONFLICT (fi_id) DO UPDATE SET
			daily_volume = compliance_status.daily_volume + EXCLUDED.daily_volume,
			monthly_volume = compliance_status.monthly_volume + EXCLUDED.monthly_volume,
			offline_tx_count = compliance_status.offline_tx_count + EXCLUDED.offline_tx_count,
			updated_at = EXCLUDED.updated_at
		RETURNING fi_id, daily_volume, monthly_volume, offline_tx_count, flagged_count, score, updated_at`,
		fiID, amount, offlineInc, time.Now()).
		Scan(&st.FIID, &st.DailyVolume, &st.MonthlyVolume, &st.OfflineTxCount,
			&st.FlaggedCount, &st.Score, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("add compliance volume: %w", err)
	}
	return &st, nil
}

func (s *PostgresStatusStore) IncrementFlagged(ctx context.Context, fiID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compliance_status (fi_id, daily_volume, monthly_volume, offline_tx_count, flagged_count, score, updated_at)
		VALUES ($1, 0, 0, 0, 1, 0, $2)
		ON CONFLICT (fi_id) DO UPDATE SET
			flagged_count = compliance_status.flagged_count + 1,
			updated_at = EXCLUDED.updated_at`,
		fiID, time.Now())
	if err != nil {
		return fmt.Errorf("increment flagged count: %w", err)
	}
	return nil
}

func (s *PostgresStatusStore) ListAll(ctx context.Context) ([]*domain.ComplianceStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fi_id, daily_volume, monthly_volume, offline_tx_count, flagged_count, score, updated_at
		FROM compliance_status ORDER BY fi_id`)
	if err != nil {
		return nil, fmt.Errorf("list compliance status: %w", err)
	}
	defer rows.Close()

	var out []*domain.ComplianceStatus
	for rows.Next() {
		var st domain.ComplianceStatus
		if err := rows.Scan(&st.FIID, &st.DailyVolume, &st.MonthlyVolume, &st.OfflineTxCount,
			&st.FlaggedCount, &st.Score, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan compliance status: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *PostgresStatusStore) ResetDaily(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE compliance_status SET daily_volume = 0, updated_at = $1`, time.Now())
	if err != nil {
		return fmt.Errorf("reset daily volumes: %w", err)
	}
	return nil
}

func (s *PostgresStatusStore) ResetMonthly(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE compliance_status SET monthly_volume = 0, offline_tx_count = 0, updated_at = $1`, time.Now())
	if err != nil {
		return fmt.Errorf("reset monthly volumes: %w", err)
	}
	return nil
}
