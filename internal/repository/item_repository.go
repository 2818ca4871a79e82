package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lostfoundhub/lostfound-backend/internal/models"
	"github.com/lostfoundhub/lostfound-backend/internal/repository/common"
)

// ErrItemNotFound возвращается, когда запись предмета не найдена.
var ErrItemNotFound = errors.New("item not found")

// ItemRepository отвечает за работу с таблицей items.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository создаёт экземпляр репозитория.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// ItemListFilter описывает параметры выборки объявлений.
type ItemListFilter struct {
	Search   string
	Kind     string
	Category string
	Status   string
	Page     int
	PageSize int
}

// ItemListResult содержит страницу выборки и общее количество.
type ItemListResult struct {
	Items    []models.Item `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// Create сохраняет новое объявление.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (kind, name, category, description, location, date_reported,
			contact_email, contact_phone, image_path, user_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, submitted_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		item.Kind, item.Name, item.Category, item.Description, item.Location,
		item.DateReported, item.ContactEmail, item.ContactPhone,
		item.ImagePath, item.UserID, item.Status,
	).Scan(&item.ID, &item.SubmittedAt); err != nil {
		return fmt.Errorf("item repository: create %w", err)
	}

	return nil
}

// GetByID возвращает объявление по идентификатору.
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	return common.GetByID[models.Item](ctx, r.db, "items", id, ErrItemNotFound)
}

// List возвращает страницу объявлений, отсортированных от новых к старым.
// Ключевое слово ищется подстрокой без учёта регистра по названию,
// месту и категории.
func (r *ItemRepository) List(ctx context.Context, filter ItemListFilter) (*ItemListResult, error) {
	countQuery := `SELECT COUNT(*) FROM items WHERE 1=1`
	query := `SELECT * FROM items WHERE 1=1`

	args := []interface{}{}
	argIndex := 1

	if filter.Search != "" {
		clause := fmt.Sprintf(" AND (name ILIKE $%d OR location ILIKE $%d OR category ILIKE $%d)",
			argIndex, argIndex, argIndex)
		query += clause
		countQuery += clause
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	if filter.Kind != "" {
		clause := fmt.Sprintf(" AND kind = $%d", argIndex)
		query += clause
		countQuery += clause
		args = append(args, filter.Kind)
		argIndex++
	}

	if filter.Category != "" {
		clause := fmt.Sprintf(" AND category = $%d", argIndex)
		query += clause
		countQuery += clause
		args = append(args, filter.Category)
		argIndex++
	}

	if filter.Status != "" {
		clause := fmt.Sprintf(" AND status = $%d", argIndex)
		query += clause
		countQuery += clause
		args = append(args, filter.Status)
		argIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("item repository: count %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query += fmt.Sprintf(" ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, pageSize, (page-1)*pageSize)

	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("item repository: list %w", err)
	}

	return &ItemListResult{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// ListByOwner возвращает объявления конкретного пользователя.
func (r *ItemRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	query := `SELECT * FROM items WHERE user_id = $1 ORDER BY submitted_at DESC`
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("item repository: list by owner %w", err)
	}
	return items, nil
}

// ListAll возвращает все объявления (для администратора).
func (r *ItemRepository) ListAll(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	query := `SELECT * FROM items ORDER BY submitted_at DESC`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("item repository: list all %w", err)
	}
	return items, nil
}

// UpdateStatus выставляет статус объявления.
func (r *ItemRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("item repository: update status %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("item repository: update status rows affected %w", err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// UpdateStatusTx выставляет статус внутри транзакции и сообщает,
// была ли затронута строка. Нулевой результат не является ошибкой:
// так оркестратор распознаёт осиротевшую заявку.
func (r *ItemRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE items SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return false, fmt.Errorf("item repository: update status tx %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("item repository: update status tx rows affected %w", err)
	}

	return affected > 0, nil
}

// Delete удаляет объявление.
func (r *ItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("item repository: delete %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("item repository: delete rows affected %w", err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// CountByStatus возвращает количество объявлений по каждому статусу.
func (r *ItemRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT status, COUNT(*) AS count FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("item repository: count by status %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("item repository: count by status scan %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
