package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/lostfoundhub/lostfound-backend/internal/logger"
	"github.com/lostfoundhub/lostfound-backend/internal/mailer"
	"github.com/lostfoundhub/lostfound-backend/internal/models"
	"github.com/lostfoundhub/lostfound-backend/internal/pkg/apperror"
	"github.com/lostfoundhub/lostfound-backend/internal/repository"
	"github.com/lostfoundhub/lostfound-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ExistsOtherWithEmailOrUsername(ctx context.Context, userID uuid.UUID, email, username string) (bool, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateAvatarPath(ctx context.Context, userID uuid.UUID, avatarPath string) error
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID uuid.UUID) error
	CreateSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, refreshToken string) error
	ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error
	DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, exceptRefreshToken string) error
	CreateResetToken(ctx context.Context, email, token string, expiresAt time.Time) error
	GetValidResetToken(ctx context.Context, email, token string) (*models.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, id uuid.UUID) error
}

// MailSender отправляет письма в best-effort режиме.
type MailSender interface {
	SendAsync(to, subject, htmlBody string)
}

// AuthService инкапсулирует бизнес-логику регистрации, аутентификации
// и управления учётной записью.
type AuthService struct {
	repo          AuthRepository
	tokenManager  *TokenManager
	mail          MailSender
	publicBaseURL string
	resetTokenTTL time.Duration
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput содержит редактируемые поля профиля.
type UpdateProfileInput struct {
	Email    string
	Username string
	FullName *string
	Phone    *string
	Location *string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager, mail MailSender, publicBaseURL string, resetTokenTTL time.Duration) *AuthService {
	return &AuthService{
		repo:          repo,
		tokenManager:  tokenManager,
		mail:          mail,
		publicBaseURL: publicBaseURL,
		resetTokenTTL: resetTokenTTL,
	}
}

// Register создаёт нового пользователя.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta map[string]string) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	username := in.Username
	if username == "" {
		username = deriveUsername(in.Email)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if _, err := s.repo.GetByEmail(ctx, strings.ToLower(in.Email)); err == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(in.Email),
		Username:     username,
		PasswordHash: string(passHash),
		Role:         models.RoleUser,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	tokenPair, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	// Приветственное письмо отправляется в фоне, сбой не мешает регистрации.
	if s.mail != nil {
		s.mail.SendAsync(user.Email, "Добро пожаловать в Lost & Found Hub!",
			mailer.WelcomeBody(user.Username, s.publicBaseURL))
	}

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Login проверяет учётные данные и возвращает токены.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta map[string]string) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(in.Email))
	if err != nil {
		return nil, apperror.ErrInvalidCreds
	}

	if !user.IsActive {
		return nil, apperror.New(apperror.ErrCodeForbidden, "аккаунт заблокирован")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCreds
	}

	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		// Не прерываем вход из-за сбоя отметки времени.
		if logger.Log != nil {
			logger.Log.WithField("user_id", user.ID).Warnf("auth service: не удалось обновить last_login_at: %v", err)
		}
	}

	tokenPair, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Refresh выпускает новую пару токенов.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta map[string]string) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "некорректный subject токена")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrUserNotFound
	}

	if err := s.repo.DeleteSession(ctx, oldToken); err != nil {
		return nil, err
	}

	return s.issueSession(ctx, user, meta)
}

// ListSessions возвращает список активных сессий пользователя.
func (s *AuthService) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	return s.repo.ListSessions(ctx, userID)
}

// DeleteSession удаляет сессию по идентификатору.
func (s *AuthService) DeleteSession(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	return s.repo.DeleteSessionByID(ctx, sessionID, userID)
}

// DeleteAllSessionsExcept удаляет все сессии пользователя кроме текущей.
func (s *AuthService) DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, currentRefreshToken string) error {
	return s.repo.DeleteAllSessionsExcept(ctx, userID, currentRefreshToken)
}

// ForgotPassword создаёт одноразовый токен сброса и шлёт письмо.
// Существование email не раскрывается: при неизвестном адресе операция
// завершается успешно без побочных эффектов.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	email = strings.ToLower(email)
	if _, err := s.repo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("auth service: не удалось сгенерировать токен: %w", err)
	}

	expiresAt := time.Now().Add(s.resetTokenTTL)
	if err := s.repo.CreateResetToken(ctx, email, token, expiresAt); err != nil {
		return err
	}

	if s.mail != nil {
		resetLink := fmt.Sprintf("%s/reset-password?token=%s&email=%s", s.publicBaseURL, token, email)
		s.mail.SendAsync(email, "Сброс пароля — Lost & Found Hub", mailer.PasswordResetBody(resetLink))
	}

	return nil
}

// ResetPassword устанавливает новый пароль по действующему токену сброса.
func (s *AuthService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if email == "" || token == "" {
		return apperror.New(apperror.ErrCodeValidation, "email и токен обязательны")
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	email = strings.ToLower(email)
	resetToken, err := s.repo.GetValidResetToken(ctx, email, token)
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return apperror.ErrResetTokenInvalid
		}
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, email, string(passHash)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return err
	}

	return s.repo.MarkResetTokenUsed(ctx, resetToken.ID)
}

// ChangePassword меняет пароль после проверки текущего.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return apperror.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperror.New(apperror.ErrCodeValidation, "текущий пароль указан неверно")
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	return s.repo.UpdatePasswordHash(ctx, user.Email, string(passHash))
}

// GetProfile возвращает учётную запись пользователя.
func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile обновляет редактируемые поля профиля.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.Phone != nil && *in.Phone != "" {
		if err := validation.ValidatePhone(*in.Phone); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrUserNotFound
	}

	email := strings.ToLower(in.Email)
	taken, err := s.repo.ExistsOtherWithEmailOrUsername(ctx, userID, email, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.New(apperror.ErrCodeConflict, "email или username уже заняты")
	}

	user.Email = email
	user.Username = in.Username
	user.FullName = in.FullName
	user.Phone = in.Phone
	user.Location = in.Location

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// SetAvatar сохраняет путь к загруженному аватару.
func (s *AuthService) SetAvatar(ctx context.Context, userID uuid.UUID, avatarPath string) error {
	return s.repo.UpdateAvatarPath(ctx, userID, avatarPath)
}

// DeleteAccount удаляет учётную запись пользователя.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	return s.repo.Delete(ctx, userID)
}

// issueSession выпускает пару токенов и сохраняет сессию.
func (s *AuthService) issueSession(ctx context.Context, user *models.User, meta map[string]string) (*TokenPair, error) {
	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}

	if meta != nil {
		if ua, ok := meta["user_agent"]; ok {
			session.UserAgent = &ua
		}
		if ip, ok := meta["ip"]; ok {
			session.IPAddress = &ip
		}
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// generateResetToken выдаёт криптостойкий одноразовый токен.
func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// deriveUsername формирует username из email.
func deriveUsername(email string) string {
	name := strings.Split(email, "@")[0]
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		}
		return '_'
	}, name)

	if len(name) < validation.MinUsernameLength {
		name = name + "_user"
	}

	return name
}
