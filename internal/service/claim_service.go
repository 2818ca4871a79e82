package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lostfoundhub/lostfound-backend/internal/logger"
	"github.com/lostfoundhub/lostfound-backend/internal/models"
	"github.com/lostfoundhub/lostfound-backend/internal/pkg/apperror"
	"github.com/lostfoundhub/lostfound-backend/internal/repository"
	"github.com/lostfoundhub/lostfound-backend/internal/repository/common"
	"github.com/lostfoundhub/lostfound-backend/internal/validation"
)

// ClaimStore описывает зависимости ClaimService от хранилища заявок.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Claim, error)
	List(ctx context.Context, filter repository.ClaimListFilter) ([]models.Claim, error)
	ListByClaimant(ctx context.Context, claimantID uuid.UUID) ([]models.Claim, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Claim, error)
	DecideTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string, decidedBy uuid.UUID) (bool, error)
}

// ClaimItemStore описывает операции с объявлениями, нужные при решении заявок.
type ClaimItemStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) (bool, error)
}

// TxRunner выполняет функцию внутри транзакции БД.
type TxRunner func(ctx context.Context, fn func(tx *sqlx.Tx) error) error

// ApproveResult содержит итог одобрения заявки.
// ItemUpdated=false означает осиротевшую заявку: решение зафиксировано,
// но связанное объявление к этому моменту уже удалено.
type ApproveResult struct {
	Claim       *models.Claim `json:"claim"`
	ItemUpdated bool          `json:"item_updated"`
}

// ClaimService инкапсулирует жизненный цикл заявок на возврат.
type ClaimService struct {
	claims ClaimStore
	items  ClaimItemStore
	runTx  TxRunner
}

// NewClaimService создаёт сервис заявок поверх общего пула БД.
func NewClaimService(claims ClaimStore, items ClaimItemStore, db *sqlx.DB) *ClaimService {
	return &ClaimService{
		claims: claims,
		items:  items,
		runTx: func(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
			return common.WithTransaction(ctx, db, fn)
		},
	}
}

// File подаёт заявку на возврат предмета.
func (s *ClaimService) File(ctx context.Context, claimantID uuid.UUID, itemID uuid.UUID, details string) (*models.Claim, error) {
	details = strings.TrimSpace(details)
	if err := validation.ValidateLength("описание заявки", details,
		validation.MinClaimDetailsLength, validation.MaxClaimDetailsLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, apperror.ErrItemNotFound
		}
		return nil, err
	}

	if item.Status != models.ItemStatusActive && item.Status != models.ItemStatusFound {
		return nil, apperror.New(apperror.ErrCodeInvalidState,
			"по закрытому или возвращённому объявлению заявки не принимаются")
	}

	claim := &models.Claim{
		ItemID:     itemID,
		ClaimantID: claimantID,
		Details:    details,
		Status:     models.ClaimStatusPending,
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, err
	}

	return claim, nil
}

// List возвращает страницу заявок (для администратора).
func (s *ClaimService) List(ctx context.Context, filter repository.ClaimListFilter) ([]models.Claim, error) {
	if filter.Status != "" && !models.ValidClaimStatus(filter.Status) {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "недопустимый статус заявки: %s", filter.Status)
	}
	return s.claims.List(ctx, filter)
}

// Get возвращает заявку по идентификатору.
func (s *ClaimService) Get(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrClaimNotFound) {
			return nil, apperror.ErrClaimNotFound
		}
		return nil, err
	}
	return claim, nil
}

// MyClaims возвращает заявки текущего пользователя.
func (s *ClaimService) MyClaims(ctx context.Context, claimantID uuid.UUID) ([]models.Claim, error) {
	return s.claims.ListByClaimant(ctx, claimantID)
}

// ListByItem возвращает заявки на конкретное объявление.
func (s *ClaimService) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Claim, error) {
	return s.claims.ListByItem(ctx, itemID)
}

// Approve одобряет заявку и переводит связанное объявление в статус returned.
// Решение принимает только администратор. Обе записи меняются в одной
// транзакции. Конкурирующее решение по той же заявке получает
// ErrClaimDecided: условное обновление срабатывает ровно один раз. Если
// объявление уже удалено, одобрение всё равно фиксируется, а в результате
// возвращается ItemUpdated=false.
func (s *ClaimService) Approve(ctx context.Context, principal models.Principal, claimID uuid.UUID) (*ApproveResult, error) {
	if !principal.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	decidedBy := principal.UserID
	var result ApproveResult

	err := s.runTx(ctx, func(tx *sqlx.Tx) error {
		claim, err := s.claims.GetByIDTx(ctx, tx, claimID)
		if err != nil {
			if errors.Is(err, repository.ErrClaimNotFound) {
				return apperror.ErrClaimNotFound
			}
			return err
		}

		updated, err := s.claims.DecideTx(ctx, tx, claimID, models.ClaimStatusApproved, decidedBy)
		if err != nil {
			return err
		}
		if !updated {
			return apperror.ErrClaimDecided
		}

		itemUpdated, err := s.items.UpdateStatusTx(ctx, tx, claim.ItemID, models.ItemStatusReturned)
		if err != nil {
			return err
		}

		now := time.Now()
		claim.Status = models.ClaimStatusApproved
		claim.DecidedBy = &decidedBy
		claim.DecidedAt = &now
		result.Claim = claim
		result.ItemUpdated = itemUpdated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.ItemUpdated && logger.Log != nil {
		logger.Log.WithField("claim_id", claimID).
			Warn("claim service: заявка одобрена, но объявление уже удалено")
	}

	return &result, nil
}

// Reject отклоняет заявку. Объявление не затрагивается.
func (s *ClaimService) Reject(ctx context.Context, principal models.Principal, claimID uuid.UUID) (*models.Claim, error) {
	if !principal.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	decidedBy := principal.UserID
	var decided *models.Claim

	err := s.runTx(ctx, func(tx *sqlx.Tx) error {
		claim, err := s.claims.GetByIDTx(ctx, tx, claimID)
		if err != nil {
			if errors.Is(err, repository.ErrClaimNotFound) {
				return apperror.ErrClaimNotFound
			}
			return err
		}

		updated, err := s.claims.DecideTx(ctx, tx, claimID, models.ClaimStatusRejected, decidedBy)
		if err != nil {
			return err
		}
		if !updated {
			return apperror.ErrClaimDecided
		}

		now := time.Now()
		claim.Status = models.ClaimStatusRejected
		claim.DecidedBy = &decidedBy
		claim.DecidedAt = &now
		decided = claim
		return nil
	})
	if err != nil {
		return nil, err
	}

	return decided, nil
}
