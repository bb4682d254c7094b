package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/cardgate-bot/internal/models"
)

// ErrUserNotFound возвращается, когда пользователь не зарегистрирован.
var ErrUserNotFound = errors.New("user not found")

// GetUser возвращает пользователя по идентификатору Telegram.
func (s *Storage) GetUser(ctx context.Context, tgID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT tg_id, username, full_name, credits, banned_until, joined_at, is_admin
			  FROM users
			  WHERE tg_id = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, tgID)

	var bannedUntil sql.NullTime
	if err := row.Scan(&u.TgID, &u.Username, &u.FullName, &u.Credits,
		&bannedUntil, &u.JoinedAt, &u.IsAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if bannedUntil.Valid {
		u.BannedUntil = &bannedUntil.Time
	}
	return u, nil
}

// EnsureUser регистрирует пользователя при первом контакте, начисляя
// стартовые кредиты. Повторный вызов возвращает существующую запись:
// upsert по tg_id не перезаписывает баланс.
func (s *Storage) EnsureUser(ctx context.Context, tgID int64, username, fullName string, freeCredits int, isAdmin bool) (*models.User, error) {
	const op = "storage.EnsureUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (tg_id, username, full_name, credits, joined_at, is_admin)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (tg_id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query,
		tgID, username, fullName, freeCredits, time.Now().UTC(), isAdmin); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetUser(ctx, tgID)
}

// AddCredits безусловно начисляет кредиты пользователю.
func (s *Storage) AddCredits(ctx context.Context, tgID int64, amount int) error {
	const op = "storage.AddCredits"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET credits = credits + $2 WHERE tg_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, tgID, amount); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeductCredits условно списывает кредиты: проверка баланса и запись
// выполняются одним UPDATE, поэтому конкурентные списания не могут
// увести баланс в минус. Возвращает false, если баланса не хватило.
func (s *Storage) DeductCredits(ctx context.Context, tgID int64, amount int) (bool, error) {
	const op = "storage.DeductCredits"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET credits = credits - $2 WHERE tg_id = $1 AND credits >= $2`
	res, err := s.DB.ExecContext(ctx, query, tgID, amount)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// SetBan устанавливает срок окончания бана; nil снимает бан.
func (s *Storage) SetBan(ctx context.Context, tgID int64, until *time.Time) error {
	const op = "storage.SetBan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET banned_until = $2 WHERE tg_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, tgID, until); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListRecentUsers возвращает недавно зарегистрированных пользователей.
func (s *Storage) ListRecentUsers(ctx context.Context, limit int) ([]*models.User, error) {
	const op = "storage.ListRecentUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT tg_id, username, full_name, credits, banned_until, joined_at, is_admin
			  FROM users
			  ORDER BY joined_at DESC
			  LIMIT $1`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		var bannedUntil sql.NullTime
		if err := rows.Scan(&u.TgID, &u.Username, &u.FullName, &u.Credits,
			&bannedUntil, &u.JoinedAt, &u.IsAdmin); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if bannedUntil.Valid {
			u.BannedUntil = &bannedUntil.Time
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// AllUserIDs возвращает идентификаторы всех известных пользователей
// для массовой рассылки.
func (s *Storage) AllUserIDs(ctx context.Context) ([]int64, error) {
	const op = "storage.AllUserIDs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT tg_id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
