package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/meethub/libs/db"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) ListRules(ctx context.Context, hostID string) ([]model.WeeklyRule, error) {
	return listRules(ctx, r.pool, `
		SELECT id, host_id, day_of_week, start_minute, end_minute
		FROM availability_rules
		WHERE host_id = $1
		ORDER BY day_of_week, start_minute
	`, hostID)
}

func (r *Repository) RulesForDay(ctx context.Context, hostID string, day time.Weekday) ([]model.WeeklyRule, error) {
	return rulesForDay(ctx, r.pool, hostID, day)
}

func rulesForDay(ctx context.Context, q querier, hostID string, day time.Weekday) ([]model.WeeklyRule, error) {
	return listRules(ctx, q, `
		SELECT id, host_id, day_of_week, start_minute, end_minute
		FROM availability_rules
		WHERE host_id = $1 AND day_of_week = $2
		ORDER BY start_minute
	`, hostID, int(day))
}

func listRules(ctx context.Context, q querier, sql string, args ...any) ([]model.WeeklyRule, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []model.WeeklyRule
	for rows.Next() {
		var rule model.WeeklyRule
		var day, start, end int
		if err := rows.Scan(&rule.ID, &rule.HostID, &day, &start, &end); err != nil {
			return nil, err
		}
		rule.DayOfWeek = time.Weekday(day)
		rule.Start = model.LocalTime(start)
		rule.End = model.LocalTime(end)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ReplaceRules swaps the host's whole weekly schedule in one transaction.
func (r *Repository) ReplaceRules(ctx context.Context, hostID string, rules []model.WeeklyRule) ([]model.WeeklyRule, error) {
	out := make([]model.WeeklyRule, 0, len(rules))
	err := db.RunInTx(ctx, r.pool, db.TxPolicy{}, func(tx pgx.Tx) error {
		out = out[:0]
		if _, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE host_id = $1`, hostID); err != nil {
			return err
		}
		for _, rule := range rules {
			rule.ID = uuid.NewString()
			rule.HostID = hostID
			if _, err := tx.Exec(ctx, `
				INSERT INTO availability_rules (id, host_id, day_of_week, start_minute, end_minute)
				VALUES ($1, $2, $3, $4, $5)
			`, rule.ID, rule.HostID, int(rule.DayOfWeek), int(rule.Start), int(rule.End)); err != nil {
				return err
			}
			out = append(out, rule)
		}
		return nil
	})
	if db.IsForeignKeyViolation(err) {
		return nil, fmt.Errorf("%w: create a host profile first", model.ErrValidation)
	}
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}
