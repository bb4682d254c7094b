// Package ledger содержит бизнес-логику кредитного баланса: условные
// списания, начисления и административные операции. Атомарность
// проверки-и-списания обеспечивает хранилище одним условным UPDATE;
// сервис лишь добавляет правило привилегированных пользователей.
package ledger

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/cardgate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/cardgate-bot/internal/metrics"
	"github.com/magabrotheeeer/cardgate-bot/internal/models"
)

// AdminNominalBalance — номинальный баланс привилегированного пользователя
// для расчёта "сколько карт по карману"; фактическое списание не происходит.
const AdminNominalBalance = 9999

// Repository определяет операции хранилища над балансом.
type Repository interface {
	AddCredits(ctx context.Context, tgID int64, amount int) error
	DeductCredits(ctx context.Context, tgID int64, amount int) (bool, error)
}

// Service реализует операции кредитного баланса.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Credit безусловно начисляет кредиты.
func (s *Service) Credit(ctx context.Context, tgID int64, amount int) error {
	return s.repo.AddCredits(ctx, tgID, amount)
}

// Debit списывает amount кредитов, если баланса хватает. Для
// привилегированного пользователя списание не выполняется и считается
// успешным. Возвращает false при нехватке баланса.
func (s *Service) Debit(ctx context.Context, user *models.User, amount int) (bool, error) {
	if user.IsAdmin {
		return true, nil
	}
	ok, err := s.repo.DeductCredits(ctx, user.TgID, amount)
	if err != nil {
		s.log.Error("debit failed", sl.TgID(user.TgID), sl.Err(err))
		return false, err
	}
	if ok {
		metrics.DebitsTotal.Inc()
	}
	return ok, nil
}

// Grant — административное начисление, совпадает с Credit.
func (s *Service) Grant(ctx context.Context, tgID int64, amount int) error {
	return s.repo.AddCredits(ctx, tgID, amount)
}

// Revoke — административное списание с той же атомарной семантикой,
// что и Debit: баланс не уходит в минус.
func (s *Service) Revoke(ctx context.Context, tgID int64, amount int) (bool, error) {
	return s.repo.DeductCredits(ctx, tgID, amount)
}

// Affordable возвращает баланс для расчёта размера пакета:
// привилегированный пользователь получает номинальный большой баланс.
func (s *Service) Affordable(user *models.User) int {
	if user.IsAdmin {
		return AdminNominalBalance
	}
	return user.Credits
}
