package repository

import (
	"context"
	"database/sql"
	"errors"

	"winetour-api/core/database"
	"winetour-api/core/logger"
	"winetour-api/modules/auth/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// AuthRepositoryInterface defines the contract for account storage
type AuthRepositoryInterface interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetUserBySlug(ctx context.Context, slug string) (*entity.User, error)
	CreateUser(ctx context.Context, user *entity.User) error
}

// AuthRepository handles account database operations
type AuthRepository struct {
	DB database.IDatabase
}

func NewAuthRepository(db database.IDatabase) *AuthRepository {
	return &AuthRepository{DB: db}
}

const userColumns = `id, email, password_hash, full_name, slug, role, is_active, created_at, updated_at`

func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := r.DB.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		logger.Error("AuthRepository:GetUserByEmail:Error", "error", err)
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.DB.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		logger.Error("AuthRepository:GetUserByID:Error", "error", err)
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepository) GetUserBySlug(ctx context.Context, slug string) (*entity.User, error) {
	var user entity.User
	query := `SELECT ` + userColumns + ` FROM users WHERE slug = $1`
	if err := r.DB.GetContext(ctx, &user, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		logger.Error("AuthRepository:GetUserBySlug:Error", "error", err)
		return nil, err
	}
	return &user, nil
}

func (r *AuthRepository) CreateUser(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (email, password_hash, full_name, slug, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.DB.QueryRowContext(ctx, query, user.Email, user.PasswordHash, user.FullName, user.Slug, user.Role, user.IsActive).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "uq_users_email" {
			return ErrEmailTaken
		}
		logger.Error("AuthRepository:CreateUser:Error", "error", err)
		return err
	}
	return nil
}
