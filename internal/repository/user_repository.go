package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lostfoundhub/lostfound-backend/internal/models"
	"github.com/lostfoundhub/lostfound-backend/internal/repository/common"
)

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

// ErrResetTokenNotFound возвращается, когда действующий токен сброса не найден.
var ErrResetTokenNotFound = errors.New("reset token not found")

// UserRepository отвечает за работу с таблицами users, sessions и password_reset_tokens.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: create %w", err)
	}
	user.IsActive = true

	return nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT * FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by email %w", err)
	}

	return &user, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// ExistsOtherWithEmailOrUsername проверяет занятость email/username другим пользователем.
func (r *UserRepository) ExistsOtherWithEmailOrUsername(ctx context.Context, userID uuid.UUID, email, username string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE (email = $1 OR username = $2) AND id <> $3`
	if err := r.db.GetContext(ctx, &count, query, email, username, userID); err != nil {
		return false, fmt.Errorf("user repository: exists check %w", err)
	}
	return count > 0, nil
}

// UpdateProfile обновляет профильные поля пользователя.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = $2, username = $3, full_name = $4, phone = $5, location = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		user.ID, user.Email, user.Username, user.FullName, user.Phone, user.Location,
	).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("user repository: update profile %w", err)
	}

	return nil
}

// UpdateAvatarPath сохраняет путь к загруженному аватару.
func (r *UserRepository) UpdateAvatarPath(ctx context.Context, userID uuid.UUID, avatarPath string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar_path = $2, updated_at = NOW() WHERE id = $1`,
		userID, avatarPath,
	)
	if err != nil {
		return fmt.Errorf("user repository: update avatar %w", err)
	}
	return nil
}

// UpdatePasswordHash меняет хеш пароля пользователя по email.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE email = $1`,
		email, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("user repository: update password %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user repository: update password rows affected %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateLastLoginAt фиксирует время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("user repository: update last login %w", err)
	}
	return nil
}

// Delete удаляет учётную запись пользователя.
func (r *UserRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete %w", err)
	}
	return nil
}

// CountUsers возвращает общее число пользователей (без администраторов).
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM users WHERE role = $1`, models.RoleUser); err != nil {
		return 0, fmt.Errorf("user repository: count users %w", err)
	}
	return count, nil
}

// CreateSession сохраняет новую сессию.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		session.UserID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}

	return nil
}

// DeleteSession удаляет сессию по refresh токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	return nil
}

// ListSessions возвращает активные сессии пользователя.
func (r *UserRepository) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	var sessions []models.Session
	query := `SELECT * FROM sessions WHERE user_id = $1 AND expires_at > NOW() ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("user repository: list sessions %w", err)
	}
	return sessions, nil
}

// DeleteSessionByID удаляет конкретную сессию пользователя.
func (r *UserRepository) DeleteSessionByID(ctx context.Context, sessionID uuid.UUID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete session by id %w", err)
	}
	return nil
}

// DeleteAllSessionsExcept удаляет все сессии пользователя кроме текущей.
func (r *UserRepository) DeleteAllSessionsExcept(ctx context.Context, userID uuid.UUID, exceptRefreshToken string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND refresh_token <> $2`, userID, exceptRefreshToken)
	if err != nil {
		return fmt.Errorf("user repository: delete all sessions %w", err)
	}
	return nil
}

// CreateResetToken сохраняет одноразовый токен сброса пароля.
func (r *UserRepository) CreateResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (email, token, expires_at) VALUES ($1, $2, $3)`,
		email, token, expiresAt)
	if err != nil {
		return fmt.Errorf("user repository: create reset token %w", err)
	}
	return nil
}

// GetValidResetToken возвращает неиспользованный и не истёкший токен.
func (r *UserRepository) GetValidResetToken(ctx context.Context, email, token string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	query := `
		SELECT * FROM password_reset_tokens
		WHERE email = $1 AND token = $2 AND used = FALSE AND expires_at > NOW()
	`
	if err := r.db.GetContext(ctx, &t, query, email, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("user repository: get reset token %w", err)
	}
	return &t, nil
}

// MarkResetTokenUsed помечает токен использованным.
func (r *UserRepository) MarkResetTokenUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("user repository: mark reset token used %w", err)
	}
	return nil
}
