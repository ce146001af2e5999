package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tondar-bot/internal/stories/servers"
)

const serversTable = "servers"

var serverRowFields = fields(serverRow{})

type serverRow struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	BaseURL   string    `db:"base_url"`
	Username  string    `db:"username"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
}

func (r serverRow) ToModel() *servers.Server {
	return &servers.Server{
		ID:        r.ID,
		Title:     r.Title,
		BaseURL:   r.BaseURL,
		Username:  r.Username,
		Password:  r.Password,
		CreatedAt: r.CreatedAt,
	}
}

func (s *storageImpl) CreateServer(ctx context.Context, server servers.Server) (*servers.Server, error) {
	params := map[string]interface{}{
		"title":      server.Title,
		"base_url":   server.BaseURL,
		"username":   server.Username,
		"password":   server.Password,
		"created_at": s.now(),
	}

	q, args, err := s.stmpBuilder().
		Insert(serversTable).
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

	return s.GetServer(ctx, servers.GetCriteria{ID: &id})
}

func (s *storageImpl) GetServer(ctx context.Context, criteria servers.GetCriteria) (*servers.Server, error) {
	query := s.stmpBuilder().
		Select(serverRowFields).
		From(serversTable).
		Limit(1)

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var r serverRow
	err = s.db.QueryRowContext(ctx, q, args...).
		Scan(&r.ID, &r.Title, &r.BaseURL, &r.Username, &r.Password, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return r.ToModel(), nil
}

func (s *storageImpl) ListServers(ctx context.Context, criteria servers.ListCriteria) ([]*servers.Server, error) {
	query := s.stmpBuilder().
		Select(serverRowFields).
		From(serversTable).
		OrderBy("id ASC")

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

	var list []*servers.Server
	for rows.Next() {
		var r serverRow
		if err := rows.Scan(&r.ID, &r.Title, &r.BaseURL, &r.Username, &r.Password, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		list = append(list, r.ToModel())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return list, nil
}

func (s *storageImpl) DeleteServer(ctx context.Context, serverID int64) error {
	q, args, err := s.stmpBuilder().
		Delete(serversTable).
		Where(sq.Eq{"id": serverID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}
