package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lostfoundhub/lostfound-backend/internal/models"
	"github.com/lostfoundhub/lostfound-backend/internal/repository/common"
)

// ErrClaimNotFound возвращается, когда заявка не найдена.
var ErrClaimNotFound = errors.New("claim not found")

// ClaimRepository отвечает за работу с таблицей claims.
type ClaimRepository struct {
	db *sqlx.DB
}

// NewClaimRepository создаёт экземпляр репозитория.
func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// ClaimListFilter описывает параметры выборки заявок.
type ClaimListFilter struct {
	Status   string
	Page     int
	PageSize int
}

// Create сохраняет новую заявку со статусом pending.
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	query := `
		INSERT INTO claims (item_id, claimant_id, details, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		claim.ItemID, claim.ClaimantID, claim.Details, claim.Status,
	).Scan(&claim.ID, &claim.CreatedAt); err != nil {
		return fmt.Errorf("claim repository: create %w", err)
	}

	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	return common.GetByID[models.Claim](ctx, r.db, "claims", id, ErrClaimNotFound)
}

// GetByIDTx возвращает заявку внутри транзакции.
func (r *ClaimRepository) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	if err := tx.GetContext(ctx, &claim, `SELECT * FROM claims WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("claim repository: get by id tx %w", err)
	}

	return &claim, nil
}

// List возвращает страницу заявок, отсортированных от новых к старым.
func (r *ClaimRepository) List(ctx context.Context, filter ClaimListFilter) ([]models.Claim, error) {
	query := `SELECT * FROM claims WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, pageSize, (page-1)*pageSize)

	var claims []models.Claim
	if err := r.db.SelectContext(ctx, &claims, query, args...); err != nil {
		return nil, fmt.Errorf("claim repository: list %w", err)
	}

	return claims, nil
}

// ListByClaimant возвращает заявки конкретного пользователя.
func (r *ClaimRepository) ListByClaimant(ctx context.Context, claimantID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	query := `SELECT * FROM claims WHERE claimant_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &claims, query, claimantID); err != nil {
		return nil, fmt.Errorf("claim repository: list by claimant %w", err)
	}
	return claims, nil
}

// ListByItem возвращает заявки на конкретный предмет.
func (r *ClaimRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	query := `SELECT * FROM claims WHERE item_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &claims, query, itemID); err != nil {
		return nil, fmt.Errorf("claim repository: list by item %w", err)
	}
	return claims, nil
}

// DecideTx переводит заявку из pending в терминальный статус внутри транзакции.
// Обновление условное (compare-and-set): при конкурирующих решениях строка
// будет затронута ровно один раз, второй вызов получит false.
func (r *ClaimRepository) DecideTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string, decidedBy uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE claims
		SET status = $2, decided_by = $3, decided_at = NOW()
		WHERE id = $1 AND status = $4
	`, id, status, decidedBy, models.ClaimStatusPending)
	if err != nil {
		return false, fmt.Errorf("claim repository: decide tx %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim repository: decide tx rows affected %w", err)
	}

	return affected > 0, nil
}

// CountByStatus возвращает количество заявок по каждому статусу.
func (r *ClaimRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT status, COUNT(*) AS count FROM claims GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("claim repository: count by status %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("claim repository: count by status scan %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
