package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tondar-bot/internal/stories/plans"
)

const plansTable = "plans"

var planRowFields = fields(planRow{})

type planRow struct {
	ID           int64     `db:"id"`
	ServerID     int64     `db:"server_id"`
	Name         string    `db:"name"`
	Country      string    `db:"country"`
	InboundID    int       `db:"inbound_id"`
	VolumeGB     int       `db:"volume_gb"`
	DurationDays int       `db:"duration_days"`
	MultiUser    int       `db:"multi_user"`
	Price        float64   `db:"price"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r planRow) ToModel() *plans.Plan {
	return &plans.Plan{
		ID:           r.ID,
		ServerID:     r.ServerID,
		Name:         r.Name,
		Country:      r.Country,
		InboundID:    r.InboundID,
		VolumeGB:     r.VolumeGB,
		DurationDays: r.DurationDays,
		MultiUser:    r.MultiUser,
		Price:        r.Price,
		CreatedAt:    r.CreatedAt,
	}
}

func (r *planRow) scan(row interface{ Scan(...any) error }) error {
	return row.Scan(&r.ID, &r.ServerID, &r.Name, &r.Country, &r.InboundID,
		&r.VolumeGB, &r.DurationDays, &r.MultiUser, &r.Price, &r.CreatedAt)
}

func (s *storageImpl) CreatePlan(ctx context.Context, plan plans.Plan) (*plans.Plan, error) {
	params := map[string]interface{}{
		"server_id":     plan.ServerID,
		"name":          plan.Name,
		"country":       plan.Country,
		"inbound_id":    plan.InboundID,
		"volume_gb":     plan.VolumeGB,
		"duration_days": plan.DurationDays,
		"multi_user":    plan.MultiUser,
		"price":         plan.Price,
		"created_at":    s.now(),
	}

	q, args, err := s.stmpBuilder().
		Insert(plansTable).
		SetMap(params).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("result.LastInsertId: %w", err)
	}

	return s.GetPlan(ctx, plans.GetCriteria{ID: &id})
}

func (s *storageImpl) GetPlan(ctx context.Context, criteria plans.GetCriteria) (*plans.Plan, error) {
	query := s.stmpBuilder().
		Select(planRowFields).
		From(plansTable).
		Limit(1)

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var r planRow
	if err := r.scan(s.db.QueryRowContext(ctx, q, args...)); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return r.ToModel(), nil
}

func (s *storageImpl) ListPlans(ctx context.Context, criteria plans.ListCriteria) ([]*plans.Plan, error) {
	query := s.stmpBuilder().
		Select(planRowFields).
		From(plansTable).
		OrderBy("id ASC")

	if criteria.ServerID != nil {
		query = query.Where(sq.Eq{"server_id": *criteria.ServerID})
	}
	if criteria.Limit > 0 {
		query = query.Limit(uint64(criteria.Limit))
	}
	if criteria.Offset > 0 {
		query = query.Offset(uint64(criteria.Offset))
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var list []*plans.Plan
	for rows.Next() {
		var r planRow
		if err := r.scan(rows); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		list = append(list, r.ToModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return list, nil
}

func (s *storageImpl) DeletePlan(ctx context.Context, planID int64) error {
	q, args, err := s.stmpBuilder().
		Delete(plansTable).
		Where(sq.Eq{"id": planID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}
