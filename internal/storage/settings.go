package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const settingsTable = "settings"

// BankCardKey stores the card number shown to buyers for manual
// payment transfers.
const BankCardKey = "bank_card"

func (s *storageImpl) GetSetting(ctx context.Context, key string) (string, error) {
	q, args, err := s.stmpBuilder().
		Select("value").
		From(settingsTable).
		Where(sq.Eq{"key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build sql query: %w", err)
	}

	var value string
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("row.Scan: %w", err)
	}
	return value, nil
}

func (s *storageImpl) SetSetting(ctx context.Context, key, value string) error {
	// SQLite upsert; squirrel has no portable ON CONFLICT builder for
	// this, so the suffix is spelled out.
	q, args, err := s.stmpBuilder().
		Insert(settingsTable).
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}
