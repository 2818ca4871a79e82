package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/lostfoundhub/lostfound-backend/internal/logger"
	"github.com/lostfoundhub/lostfound-backend/internal/models"
	"github.com/lostfoundhub/lostfound-backend/internal/pkg/apperror"
	"github.com/lostfoundhub/lostfound-backend/internal/repository"
	"github.com/lostfoundhub/lostfound-backend/internal/validation"
)

// ItemStore описывает зависимости ItemService от слоя хранилища.
type ItemStore interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	List(ctx context.Context, filter repository.ItemListFilter) (*repository.ItemListResult, error)
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.Item, error)
	ListAll(ctx context.Context) ([]models.Item, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ImageReleaser удаляет файл изображения из хранилища.
type ImageReleaser interface {
	Delete(ctx context.Context, relativePath string) error
}

// ItemService инкапсулирует бизнес-логику реестра объявлений.
type ItemService struct {
	store  ItemStore
	images ImageReleaser
}

// SubmitItemInput содержит поля нового объявления.
type SubmitItemInput struct {
	Kind         string
	Name         string
	Category     string
	Description  string
	Location     string
	DateReported string
	ContactEmail string
	ContactPhone string
	ImagePath    *string
}

// NewItemService создаёт сервис объявлений.
func NewItemService(store ItemStore, images ImageReleaser) *ItemService {
	return &ItemService{store: store, images: images}
}

// Submit публикует новое объявление. Пустой submitterID означает,
// что запись создаёт администратор от имени системы.
func (s *ItemService) Submit(ctx context.Context, submitterID *uuid.UUID, in SubmitItemInput) (*models.Item, error) {
	if err := validateSubmitInput(&in); err != nil {
		return nil, err
	}

	item := &models.Item{
		Kind:         in.Kind,
		Name:         strings.TrimSpace(in.Name),
		Category:     strings.TrimSpace(in.Category),
		Description:  strings.TrimSpace(in.Description),
		Location:     strings.TrimSpace(in.Location),
		DateReported: in.DateReported,
		ContactEmail: strings.ToLower(strings.TrimSpace(in.ContactEmail)),
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		ImagePath:    in.ImagePath,
		UserID:       submitterID,
		Status:       models.ItemStatusActive,
	}

	if err := s.store.Create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// List возвращает страницу объявлений по фильтру.
func (s *ItemService) List(ctx context.Context, filter repository.ItemListFilter) (*repository.ItemListResult, error) {
	if filter.Kind != "" && !models.ValidItemKind(filter.Kind) {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "недопустимый тип объявления: %s", filter.Kind)
	}
	if filter.Status != "" && !models.ValidItemStatus(filter.Status) {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "недопустимый статус: %s", filter.Status)
	}

	return s.store.List(ctx, filter)
}

// GetByID возвращает объявление по идентификатору.
func (s *ItemService) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.store.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrItemNotFound {
			return nil, apperror.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// MyItems возвращает объявления текущего пользователя.
// Администратор видит все объявления реестра.
func (s *ItemService) MyItems(ctx context.Context, principal models.Principal) ([]models.Item, error) {
	if principal.IsAdmin() {
		return s.store.ListAll(ctx)
	}
	return s.store.ListByOwner(ctx, principal.UserID)
}

// SetStatus меняет статус объявления. Разрешено владельцу и администратору.
func (s *ItemService) SetStatus(ctx context.Context, principal models.Principal, itemID uuid.UUID, status string) (*models.Item, error) {
	if !models.ValidItemStatus(status) {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "недопустимый статус: %s", status)
	}

	item, err := s.store.GetByID(ctx, itemID)
	if err != nil {
		if err == repository.ErrItemNotFound {
			return nil, apperror.ErrItemNotFound
		}
		return nil, err
	}

	if !principal.CanModifyItem(item) {
		return nil, apperror.ErrForbidden
	}

	if err := s.store.UpdateStatus(ctx, itemID, status); err != nil {
		if err == repository.ErrItemNotFound {
			return nil, apperror.ErrItemNotFound
		}
		return nil, err
	}

	item.Status = status
	return item, nil
}

// Delete удаляет объявление. Разрешено владельцу и администратору.
// Файл изображения удаляется best-effort после удаления записи.
func (s *ItemService) Delete(ctx context.Context, principal models.Principal, itemID uuid.UUID) error {
	item, err := s.store.GetByID(ctx, itemID)
	if err != nil {
		if err == repository.ErrItemNotFound {
			return apperror.ErrItemNotFound
		}
		return err
	}

	if !principal.CanModifyItem(item) {
		return apperror.ErrForbidden
	}

	if err := s.store.Delete(ctx, itemID); err != nil {
		if err == repository.ErrItemNotFound {
			return apperror.ErrItemNotFound
		}
		return err
	}

	if item.ImagePath != nil && s.images != nil {
		if err := s.images.Delete(ctx, *item.ImagePath); err != nil && logger.Log != nil {
			logger.Log.WithField("item_id", itemID).Warnf("item service: не удалось удалить изображение: %v", err)
		}
	}

	return nil
}

// validateSubmitInput проверяет обязательные поля объявления.
// Все недостающие поля перечисляются в одном сообщении.
func validateSubmitInput(in *SubmitItemInput) error {
	var missing []string
	if strings.TrimSpace(in.Kind) == "" {
		missing = append(missing, "kind")
	}
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(in.Location) == "" {
		missing = append(missing, "location")
	}
	if strings.TrimSpace(in.DateReported) == "" {
		missing = append(missing, "date_reported")
	}
	if strings.TrimSpace(in.ContactEmail) == "" {
		missing = append(missing, "contact_email")
	}
	if strings.TrimSpace(in.ContactPhone) == "" {
		missing = append(missing, "contact_phone")
	}
	if len(missing) > 0 {
		return apperror.Newf(apperror.ErrCodeValidation,
			"не заполнены обязательные поля: %s", strings.Join(missing, ", "))
	}

	if !models.ValidItemKind(in.Kind) {
		return apperror.Newf(apperror.ErrCodeValidation,
			"тип объявления должен быть %s или %s", models.ItemKindLost, models.ItemKindFound)
	}
	if err := validation.ValidateLength("название", in.Name, validation.MinItemNameLength, validation.MaxItemNameLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("категория", in.Category, 1, validation.MaxCategoryLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("описание", in.Description, validation.MinDescriptionLength, validation.MaxDescriptionLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("место", in.Location, 1, validation.MaxLocationLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateDate(in.DateReported); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateEmail(in.ContactEmail); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePhone(in.ContactPhone); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	return nil
}
