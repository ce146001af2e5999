package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tondar-bot/internal/stories/orders"
)

const ordersTable = "orders"

var orderRowFields = fields(orderRow{})

type orderRow struct {
	ID            int64      `db:"id"`
	UserID        int64      `db:"user_id"`
	PlanID        int64      `db:"plan_id"`
	ServerID      int64      `db:"server_id"`
	Status        string     `db:"status"`
	ReceiptFileID *string    `db:"receipt_file_id"`
	ConfigID      *string    `db:"config_id"`
	ConfigLink    *string    `db:"config_link"`
	CreatedAt     time.Time  `db:"created_at"`
	ApprovedAt    *time.Time `db:"approved_at"`
	ExpiresAt     *time.Time `db:"expires_at"`
}

func (r orderRow) ToModel() *orders.Order {
	return &orders.Order{
		ID:            r.ID,
		UserID:        r.UserID,
		PlanID:        r.PlanID,
		ServerID:      r.ServerID,
		Status:        orders.Status(r.Status),
		ReceiptFileID: r.ReceiptFileID,
		ConfigID:      r.ConfigID,
		ConfigLink:    r.ConfigLink,
		CreatedAt:     r.CreatedAt,
		ApprovedAt:    r.ApprovedAt,
		ExpiresAt:     r.ExpiresAt,
	}
}

func (r *orderRow) scan(row interface{ Scan(...any) error }) error {
	return row.Scan(&r.ID, &r.UserID, &r.PlanID, &r.ServerID, &r.Status,
		&r.ReceiptFileID, &r.ConfigID, &r.ConfigLink, &r.CreatedAt, &r.ApprovedAt, &r.ExpiresAt)
}

func (s *storageImpl) CreateOrder(ctx context.Context, order orders.Order) (*orders.Order, error) {
	params := map[string]interface{}{
		"user_id":    order.UserID,
		"plan_id":    order.PlanID,
		"server_id":  order.ServerID,
		"status":     string(order.Status),
		"created_at": s.now(),
	}

	q, args, err := s.stmpBuilder().
		Insert(ordersTable).
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

	return s.GetOrder(ctx, orders.GetCriteria{ID: &id})
}

func (s *storageImpl) GetOrder(ctx context.Context, criteria orders.GetCriteria) (*orders.Order, error) {
	query := s.stmpBuilder().
		Select(orderRowFields).
		From(ordersTable).
		Limit(1)

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var r orderRow
	if err := r.scan(s.db.QueryRowContext(ctx, q, args...)); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return r.ToModel(), nil
}

func (s *storageImpl) ListOrders(ctx context.Context, criteria orders.ListCriteria) ([]*orders.Order, error) {
	query := s.stmpBuilder().
		Select(orderRowFields).
		From(ordersTable).
		OrderBy("id ASC")

	if criteria.UserID != nil {
		query = query.Where(sq.Eq{"user_id": *criteria.UserID})
	}
	if len(criteria.Statuses) > 0 {
		statuses := make([]string, 0, len(criteria.Statuses))
		for _, status := range criteria.Statuses {
			statuses = append(statuses, string(status))
		}
		query = query.Where(sq.Eq{"status": statuses})
	}
	if criteria.ExpiresBefore != nil {
		query = query.Where(sq.LtOrEq{"expires_at": *criteria.ExpiresBefore})
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

	var list []*orders.Order
	for rows.Next() {
		var r orderRow
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

// UpdateOrder applies the lifecycle transition fields in one statement
// so a transition is atomic at the storage level.
func (s *storageImpl) UpdateOrder(ctx context.Context, orderID int64, params orders.UpdateParams) (*orders.Order, error) {
	query := s.stmpBuilder().
		Update(ordersTable).
		Where(sq.Eq{"id": orderID})

	if params.Status != nil {
		query = query.Set("status", string(*params.Status))
	}
	if params.ReceiptFileID != nil {
		query = query.Set("receipt_file_id", *params.ReceiptFileID)
	}
	if params.ConfigID != nil {
		query = query.Set("config_id", *params.ConfigID)
	}
	if params.ClearConfigID {
		query = query.Set("config_id", nil)
		query = query.Set("config_link", nil)
	}
	if params.ConfigLink != nil {
		query = query.Set("config_link", *params.ConfigLink)
	}
	if params.ApprovedAt != nil {
		query = query.Set("approved_at", *params.ApprovedAt)
	}
	if params.ExpiresAt != nil {
		query = query.Set("expires_at", *params.ExpiresAt)
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetOrder(ctx, orders.GetCriteria{ID: &orderID})
}
