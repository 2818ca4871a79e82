package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lostfoundhub/lostfound-backend/internal/models"
	"github.com/lostfoundhub/lostfound-backend/internal/pkg/apperror"
	"github.com/lostfoundhub/lostfound-backend/internal/repository"
)

// mockClaimStore реализует ClaimStore для тестов. Транзакционные методы
// работают с той же картой: атомарность здесь не проверяется, проверяется
// семантика условного обновления.
type mockClaimStore struct {
	claims map[uuid.UUID]*models.Claim
}

func newMockClaimStore() *mockClaimStore {
	return &mockClaimStore{claims: make(map[uuid.UUID]*models.Claim)}
}

func (m *mockClaimStore) Create(ctx context.Context, claim *models.Claim) error {
	claim.ID = uuid.New()
	claim.CreatedAt = time.Now()
	m.claims[claim.ID] = claim
	return nil
}

func (m *mockClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	if claim, ok := m.claims[id]; ok {
		copied := *claim
		return &copied, nil
	}
	return nil, repository.ErrClaimNotFound
}

func (m *mockClaimStore) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Claim, error) {
	return m.GetByID(ctx, id)
}

func (m *mockClaimStore) List(ctx context.Context, filter repository.ClaimListFilter) ([]models.Claim, error) {
	var claims []models.Claim
	for _, claim := range m.claims {
		if filter.Status != "" && claim.Status != filter.Status {
			continue
		}
		claims = append(claims, *claim)
	}
	return claims, nil
}

func (m *mockClaimStore) ListByClaimant(ctx context.Context, claimantID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	for _, claim := range m.claims {
		if claim.ClaimantID == claimantID {
			claims = append(claims, *claim)
		}
	}
	return claims, nil
}

func (m *mockClaimStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	for _, claim := range m.claims {
		if claim.ItemID == itemID {
			claims = append(claims, *claim)
		}
	}
	return claims, nil
}

func (m *mockClaimStore) DecideTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string, decidedBy uuid.UUID) (bool, error) {
	claim, ok := m.claims[id]
	if !ok || claim.Status != models.ClaimStatusPending {
		return false, nil
	}
	now := time.Now()
	claim.Status = status
	claim.DecidedBy = &decidedBy
	claim.DecidedAt = &now
	return true, nil
}

// mockClaimItemStore реализует ClaimItemStore для тестов.
type mockClaimItemStore struct {
	items map[uuid.UUID]*models.Item
}

func newMockClaimItemStore() *mockClaimItemStore {
	return &mockClaimItemStore{items: make(map[uuid.UUID]*models.Item)}
}

func (m *mockClaimItemStore) addItem(status string) *models.Item {
	item := &models.Item{
		ID:     uuid.New(),
		Kind:   models.ItemKindFound,
		Name:   "Зонт",
		Status: status,
	}
	m.items[item.ID] = item
	return item
}

func (m *mockClaimItemStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	if item, ok := m.items[id]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, repository.ErrItemNotFound
}

func (m *mockClaimItemStore) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) (bool, error) {
	item, ok := m.items[id]
	if !ok {
		return false, nil
	}
	item.Status = status
	return true, nil
}

func newTestClaimService(claims *mockClaimStore, items *mockClaimItemStore) *ClaimService {
	return &ClaimService{
		claims: claims,
		items:  items,
		runTx: func(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
			return fn(nil)
		},
	}
}

func testAdmin() models.Principal {
	return models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}
}

func TestClaimService_File(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	ctx := context.Background()
	item := items.addItem(models.ItemStatusActive)
	claimantID := uuid.New()

	claim, err := service.File(ctx, claimantID, item.ID, "Это мой зонт, на ручке царапина")
	if err != nil {
		t.Fatalf("file вернул ошибку: %v", err)
	}
	if claim.Status != models.ClaimStatusPending {
		t.Fatalf("новая заявка должна получать статус pending, получили %s", claim.Status)
	}
	if claim.ClaimantID != claimantID {
		t.Fatalf("заявка должна принадлежать отправителю")
	}
}

func TestClaimService_FileOnClosedItem(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	ctx := context.Background()
	for _, status := range []string{models.ItemStatusReturned, models.ItemStatusClosed} {
		item := items.addItem(status)
		_, err := service.File(ctx, uuid.New(), item.ID, "Это моя вещь, уверен")
		if !apperror.IsInvalidState(err) {
			t.Fatalf("заявка на объявление в статусе %s должна отклоняться, получили %v", status, err)
		}
	}
}

func TestClaimService_FileItemNotFound(t *testing.T) {
	service := newTestClaimService(newMockClaimStore(), newMockClaimItemStore())

	_, err := service.File(context.Background(), uuid.New(), uuid.New(), "Подробное описание вещи")
	if !errors.Is(err, apperror.ErrItemNotFound) {
		t.Fatalf("ожидалась ошибка NOT_FOUND, получили %v", err)
	}
}

func TestClaimService_FileShortDetails(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	item := items.addItem(models.ItemStatusActive)
	_, err := service.File(context.Background(), uuid.New(), item.ID, "моё")
	if !apperror.IsValidation(err) {
		t.Fatalf("короткое описание должно отклоняться, получили %v", err)
	}
}

func TestClaimService_Approve(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	ctx := context.Background()
	item := items.addItem(models.ItemStatusActive)
	claim, err := service.File(ctx, uuid.New(), item.ID, "Это мой зонт, на ручке царапина")
	if err != nil {
		t.Fatalf("file вернул ошибку: %v", err)
	}

	admin := models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}
	result, err := service.Approve(ctx, admin, claim.ID)
	if err != nil {
		t.Fatalf("approve вернул ошибку: %v", err)
	}

	if result.Claim.Status != models.ClaimStatusApproved {
		t.Fatalf("заявка должна стать approved, получили %s", result.Claim.Status)
	}
	if result.Claim.DecidedBy == nil || *result.Claim.DecidedBy != admin.UserID {
		t.Fatalf("в заявке должен фиксироваться принявший решение")
	}
	if result.Claim.DecidedAt == nil {
		t.Fatalf("в заявке должно фиксироваться время решения")
	}
	if !result.ItemUpdated {
		t.Fatalf("объявление должно быть обновлено")
	}
	if items.items[item.ID].Status != models.ItemStatusReturned {
		t.Fatalf("объявление должно перейти в returned, получили %s", items.items[item.ID].Status)
	}
}

func TestClaimService_ApproveTwice(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	ctx := context.Background()
	item := items.addItem(models.ItemStatusActive)
	claim, _ := service.File(ctx, uuid.New(), item.ID, "Это мой зонт, на ручке царапина")

	admin := models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}
	if _, err := service.Approve(ctx, admin, claim.ID); err != nil {
		t.Fatalf("первое одобрение вернуло ошибку: %v", err)
	}

	_, err := service.Approve(ctx, admin, claim.ID)
	if !errors.Is(err, apperror.ErrClaimDecided) {
		t.Fatalf("повторное решение должно отклоняться с INVALID_STATE, получили %v", err)
	}
}

func TestClaimService_ApproveOrphanedClaim(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	ctx := context.Background()
	item := items.addItem(models.ItemStatusActive)
	claim, _ := service.File(ctx, uuid.New(), item.ID, "Это мой зонт, на ручке царапина")

	// Объявление удалили до решения по заявке.
	delete(items.items, item.ID)

	result, err := service.Approve(ctx, testAdmin(), claim.ID)
	if err != nil {
		t.Fatalf("одобрение осиротевшей заявки должно фиксироваться: %v", err)
	}
	if result.Claim.Status != models.ClaimStatusApproved {
		t.Fatalf("заявка должна стать approved")
	}
	if result.ItemUpdated {
		t.Fatalf("для осиротевшей заявки ItemUpdated должен быть false")
	}
}

func TestClaimService_Reject(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	ctx := context.Background()
	item := items.addItem(models.ItemStatusActive)
	claim, _ := service.File(ctx, uuid.New(), item.ID, "Кажется, это моя вещь")

	rejected, err := service.Reject(ctx, testAdmin(), claim.ID)
	if err != nil {
		t.Fatalf("reject вернул ошибку: %v", err)
	}
	if rejected.Status != models.ClaimStatusRejected {
		t.Fatalf("заявка должна стать rejected, получили %s", rejected.Status)
	}
	if rejected.DecidedAt == nil {
		t.Fatalf("в заявке должно фиксироваться время решения")
	}
	// Объявление не затрагивается.
	if items.items[item.ID].Status != models.ItemStatusActive {
		t.Fatalf("объявление должно остаться active, получили %s", items.items[item.ID].Status)
	}
}

func TestClaimService_RejectThenApprove(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	ctx := context.Background()
	item := items.addItem(models.ItemStatusActive)
	claim, _ := service.File(ctx, uuid.New(), item.ID, "Кажется, это моя вещь")

	if _, err := service.Reject(ctx, testAdmin(), claim.ID); err != nil {
		t.Fatalf("reject вернул ошибку: %v", err)
	}

	// Решение терминально в обе стороны.
	_, err := service.Approve(ctx, testAdmin(), claim.ID)
	if !errors.Is(err, apperror.ErrClaimDecided) {
		t.Fatalf("одобрение после отклонения должно отклоняться, получили %v", err)
	}
}

func TestClaimService_CompetingClaims(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	ctx := context.Background()
	item := items.addItem(models.ItemStatusActive)
	first, _ := service.File(ctx, uuid.New(), item.ID, "Это мой зонт, покупал в мае")
	second, _ := service.File(ctx, uuid.New(), item.ID, "Нет, это мой зонт, вот чек")

	if _, err := service.Approve(ctx, testAdmin(), first.ID); err != nil {
		t.Fatalf("approve вернул ошибку: %v", err)
	}

	// Конкурирующая заявка не отклоняется автоматически.
	stored, err := service.Get(ctx, second.ID)
	if err != nil {
		t.Fatalf("get вернул ошибку: %v", err)
	}
	if stored.Status != models.ClaimStatusPending {
		t.Fatalf("конкурирующая заявка должна остаться pending, получили %s", stored.Status)
	}
}

func TestClaimService_DecisionRequiresAdmin(t *testing.T) {
	claims := newMockClaimStore()
	items := newMockClaimItemStore()
	service := newTestClaimService(claims, items)

	ctx := context.Background()
	item := items.addItem(models.ItemStatusActive)
	claim, _ := service.File(ctx, uuid.New(), item.ID, "Кажется, это моя вещь")

	user := models.Principal{UserID: uuid.New(), Role: models.RoleUser}
	if _, err := service.Approve(ctx, user, claim.ID); !apperror.IsForbidden(err) {
		t.Fatalf("одобрение не администратором должно отклоняться, получили %v", err)
	}
	if _, err := service.Reject(ctx, user, claim.ID); !apperror.IsForbidden(err) {
		t.Fatalf("отклонение не администратором должно отклоняться, получили %v", err)
	}

	stored, _ := service.Get(ctx, claim.ID)
	if stored.Status != models.ClaimStatusPending {
		t.Fatalf("заявка должна остаться pending, получили %s", stored.Status)
	}
}

func TestClaimService_ListFilterValidation(t *testing.T) {
	service := newTestClaimService(newMockClaimStore(), newMockClaimItemStore())

	_, err := service.List(context.Background(), repository.ClaimListFilter{Status: "archived"})
	if !apperror.IsValidation(err) {
		t.Fatalf("недопустимый статус фильтра должен отклоняться, получили %v", err)
	}
}
