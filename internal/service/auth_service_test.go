package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lostfoundhub/lostfound-backend/internal/models"
	"github.com/lostfoundhub/lostfound-backend/internal/pkg/apperror"
	"github.com/lostfoundhub/lostfound-backend/internal/repository"
)

// mockAuthRepository реализует AuthRepository для тестов.
type mockAuthRepository struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	sessions     map[string]*models.Session
	resetTokens  map[string]*models.PasswordResetToken
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		sessions:     make(map[string]*models.Session),
		resetTokens:  make(map[string]*models.PasswordResetToken),
	}
}

func (m *mockAuthRepository) addUser(user *models.User) {
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
}

func (m *mockAuthRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	m.addUser(user)
	return nil
}

func (m *mockAuthRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) ExistsOtherWithEmailOrUsername(ctx context.Context, userID uuid.UUID, email, username string) (bool, error) {
	for _, u := range m.usersByID {
		if u.ID == userID {
			continue
		}
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAuthRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	stored, ok := m.usersByID[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	delete(m.usersByEmail, stored.Email)
	*stored = *user
	m.usersByEmail[stored.Email] = stored
	return nil
}

func (m *mockAuthRepository) UpdateAvatarPath(ctx context.Context, userID uuid.UUID, avatarPath string) error {
	if user, ok := m.usersByID[userID]; ok {
		user.AvatarPath = &avatarPath
	}
	return nil
}

func (m *mockAuthRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	user, ok := m.usersByEmail[email]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockAuthRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if user, ok := m.usersByID[userID]; ok {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return nil
}

func (m *mockAuthRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	if user, ok := m.usersByID[userID]; ok {
		delete(m.usersByEmail, user.Email)
		delete(m.usersByID, userID)
	}
	return nil
}

func (m *mockAuthRepository) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	m.sessions[session.RefreshToken] = session
	return nil
}

func (m *mockAuthRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	delete(m.sessions, refreshToken)
	return nil
}

func (m *mockAuthRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	var sessions []models.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			sessions = append(sessions, *s)
		}
	}
	return sessions, nil
}

func (m *mockAuthRepository) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	for token, s := range m.sessions {
		if s.ID == sessionID && s.UserID == userID {
			delete(m.sessions, token)
			return nil
		}
	}
	return nil
}

func (m *mockAuthRepository) DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, exceptRefreshToken string) error {
	for token, s := range m.sessions {
		if s.UserID == userID && token != exceptRefreshToken {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *mockAuthRepository) CreateResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.resetTokens[token] = &models.PasswordResetToken{
		ID:        uuid.New(),
		Email:     email,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (m *mockAuthRepository) GetValidResetToken(ctx context.Context, email, token string) (*models.PasswordResetToken, error) {
	t, ok := m.resetTokens[token]
	if !ok || t.Email != email || t.Used || time.Now().After(t.ExpiresAt) {
		return nil, repository.ErrResetTokenNotFound
	}
	return t, nil
}

func (m *mockAuthRepository) MarkResetTokenUsed(ctx context.Context, id uuid.UUID) error {
	for _, t := range m.resetTokens {
		if t.ID == id {
			t.Used = true
		}
	}
	return nil
}

// mockMailer записывает отправленные письма.
type mockMailer struct {
	sent []string
}

func (m *mockMailer) SendAsync(to, subject, htmlBody string) {
	m.sent = append(m.sent, to)
}

func newTestAuthService(repo *mockAuthRepository, mail *mockMailer) *AuthService {
	tokenManager := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	return NewAuthService(repo, tokenManager, mail, "http://localhost:3000", 15*time.Minute)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repo := newMockAuthRepository()
	mail := &mockMailer{}
	service := newTestAuthService(repo, mail)

	ctx := context.Background()
	res, err := service.Register(ctx, RegisterInput{
		Email:    "Test@Example.com",
		Password: "Password123",
	}, map[string]string{"ip": "127.0.0.1"})
	if err != nil {
		t.Fatalf("register вернул ошибку: %v", err)
	}

	if res.User.ID == uuid.Nil {
		t.Fatalf("user ID должен быть установлен")
	}
	if res.User.Email != "test@example.com" {
		t.Fatalf("email должен приводиться к нижнему регистру, получили %s", res.User.Email)
	}
	if res.User.Role != models.RoleUser {
		t.Fatalf("новый пользователь должен получать роль user")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("ожидалась одна сессия, получили %d", len(repo.sessions))
	}
	if len(mail.sent) != 1 {
		t.Fatalf("ожидалось приветственное письмо")
	}

	loginRes, err := service.Login(ctx, LoginInput{
		Email:    "test@example.com",
		Password: "Password123",
	}, nil)
	if err != nil {
		t.Fatalf("login вернул ошибку: %v", err)
	}
	if loginRes.TokenPair.AccessToken == "" {
		t.Fatalf("ожидался access токен")
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepository()
	service := newTestAuthService(repo, &mockMailer{})

	ctx := context.Background()
	if _, err := service.Register(ctx, RegisterInput{
		Email:    "dup@example.com",
		Password: "Password123",
	}, nil); err != nil {
		t.Fatalf("первая регистрация вернула ошибку: %v", err)
	}

	_, err := service.Register(ctx, RegisterInput{
		Email:    "dup@example.com",
		Password: "Password123",
	}, nil)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.ErrCodeConflict {
		t.Fatalf("ожидался CONFLICT, получили %v", err)
	}
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepository()
	service := newTestAuthService(repo, &mockMailer{})

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.DefaultCost)
	repo.addUser(&models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		Username:     "user",
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsActive:     true,
	})

	_, err := service.Login(ctx, LoginInput{
		Email:    "user@example.com",
		Password: "WrongPassword1",
	}, nil)
	if !errors.Is(err, apperror.ErrInvalidCreds) {
		t.Fatalf("ожидалась ошибка неверных учётных данных, получили %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	repo := newMockAuthRepository()
	service := newTestAuthService(repo, &mockMailer{})
	tokenManager := service.tokenManager

	ctx := context.Background()
	user := &models.User{
		ID:       uuid.New(),
		Email:    "user@example.com",
		Username: "user",
		Role:     models.RoleUser,
		IsActive: true,
	}
	repo.addUser(user)

	tokenPair, accessExp, refreshExp, err := tokenManager.GeneratePair(user)
	if err != nil {
		t.Fatalf("не удалось сгенерировать токены: %v", err)
	}
	if accessExp.After(refreshExp) {
		t.Fatalf("access должен истекать раньше refresh")
	}

	repo.sessions[tokenPair.RefreshToken] = &models.Session{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}

	newPair, err := service.Refresh(ctx, tokenPair.RefreshToken, nil)
	if err != nil {
		t.Fatalf("refresh вернул ошибку: %v", err)
	}
	if newPair.RefreshToken == tokenPair.RefreshToken {
		t.Fatalf("ожидался новый refresh токен")
	}
	if _, ok := repo.sessions[tokenPair.RefreshToken]; ok {
		t.Fatalf("старая сессия должна быть удалена")
	}
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	repo := newMockAuthRepository()
	mail := &mockMailer{}
	service := newTestAuthService(repo, mail)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("OldPassword1"), bcrypt.DefaultCost)
	repo.addUser(&models.User{
		ID:           uuid.New(),
		Email:        "reset@example.com",
		Username:     "reset",
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsActive:     true,
	})

	if err := service.ForgotPassword(ctx, "reset@example.com"); err != nil {
		t.Fatalf("forgot password вернул ошибку: %v", err)
	}
	if len(repo.resetTokens) != 1 {
		t.Fatalf("ожидался один токен сброса, получили %d", len(repo.resetTokens))
	}
	if len(mail.sent) != 1 {
		t.Fatalf("ожидалось письмо со ссылкой сброса")
	}

	var token string
	for tok := range repo.resetTokens {
		token = tok
	}

	if err := service.ResetPassword(ctx, "reset@example.com", token, "NewPassword1"); err != nil {
		t.Fatalf("reset password вернул ошибку: %v", err)
	}

	// Токен одноразовый.
	err := service.ResetPassword(ctx, "reset@example.com", token, "NewPassword2")
	if !errors.Is(err, apperror.ErrResetTokenInvalid) {
		t.Fatalf("повторное использование токена должно отклоняться, получили %v", err)
	}

	if _, err := service.Login(ctx, LoginInput{
		Email:    "reset@example.com",
		Password: "NewPassword1",
	}, nil); err != nil {
		t.Fatalf("вход с новым паролем вернул ошибку: %v", err)
	}
}

func TestAuthService_ForgotPasswordUnknownEmail(t *testing.T) {
	repo := newMockAuthRepository()
	mail := &mockMailer{}
	service := newTestAuthService(repo, mail)

	// Существование email не раскрывается.
	if err := service.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("для неизвестного email ожидался успех, получили %v", err)
	}
	if len(repo.resetTokens) != 0 {
		t.Fatalf("токен не должен создаваться для неизвестного email")
	}
	if len(mail.sent) != 0 {
		t.Fatalf("письмо не должно отправляться для неизвестного email")
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	repo := newMockAuthRepository()
	service := newTestAuthService(repo, &mockMailer{})

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("Current123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "change@example.com",
		Username:     "change",
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsActive:     true,
	}
	repo.addUser(user)

	err := service.ChangePassword(ctx, user.ID, "WrongCurrent1", "NewPassword1")
	if !apperror.IsValidation(err) {
		t.Fatalf("при неверном текущем пароле ожидалась ошибка валидации, получили %v", err)
	}

	if err := service.ChangePassword(ctx, user.ID, "Current123", "NewPassword1"); err != nil {
		t.Fatalf("change password вернул ошибку: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("NewPassword1")) != nil {
		t.Fatalf("хеш пароля должен обновиться")
	}
}

func TestAuthService_UpdateProfileConflict(t *testing.T) {
	repo := newMockAuthRepository()
	service := newTestAuthService(repo, &mockMailer{})

	ctx := context.Background()
	first := &models.User{
		ID: uuid.New(), Email: "first@example.com", Username: "first",
		Role: models.RoleUser, IsActive: true,
	}
	second := &models.User{
		ID: uuid.New(), Email: "second@example.com", Username: "second",
		Role: models.RoleUser, IsActive: true,
	}
	repo.addUser(first)
	repo.addUser(second)

	_, err := service.UpdateProfile(ctx, second.ID, UpdateProfileInput{
		Email:    "first@example.com",
		Username: "second",
	})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.ErrCodeConflict {
		t.Fatalf("ожидался CONFLICT при занятом email, получили %v", err)
	}
}
