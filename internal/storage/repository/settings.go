package repository

import (
	"context"
	"fmt"
)

// IsMaintenance сообщает, включён ли режим технического обслуживания.
// Отсутствующий ключ трактуется как выключенный режим.
func (s *Storage) IsMaintenance(ctx context.Context) (bool, error) {
	const op = "storage.IsMaintenance"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var value string
	query := `SELECT value FROM settings WHERE key = 'maintenance'`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	if err := rows.Scan(&value); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return value == "1", nil
}

// SetMaintenance включает или выключает режим технического обслуживания
// с семантикой upsert.
func (s *Storage) SetMaintenance(ctx context.Context, on bool) error {
	const op = "storage.SetMaintenance"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	value := "0"
	if on {
		value = "1"
	}
	query := `INSERT INTO settings (key, value) VALUES ('maintenance', $1)
			  ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if _, err := s.DB.ExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
