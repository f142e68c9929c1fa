package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"winetour-api/core/cache"
	"winetour-api/core/errors"
	"winetour-api/core/logger"
	"winetour-api/core/utils"
	"winetour-api/modules/auth/dto"
	"winetour-api/modules/auth/entity"
	"winetour-api/modules/auth/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceInterface interface {
	Register(ctx context.Context, requestData *dto.RegisterRequest) (*dto.UserResponse, *errors.AppError)
	Login(ctx context.Context, requestData *dto.LoginRequest) (*dto.LoginResponse, *errors.AppError)
	Logout(ctx context.Context, claims *utils.TokenClaims) *errors.AppError
	Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, *errors.AppError)
}

type AuthService struct {
	repo      repository.AuthRepositoryInterface
	cache     cache.Cache
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(repo repository.AuthRepositoryInterface, cache cache.Cache, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		cache:     cache,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

func (service *AuthService) Register(ctx context.Context, requestData *dto.RegisterRequest) (*dto.UserResponse, *errors.AppError) {
	hash, err := bcrypt.GenerateFromPassword([]byte(requestData.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to hash password", err)
	}

	user := &entity.User{
		Email:        normalizeEmail(requestData.Email),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(requestData.FullName),
		Slug:         utils.GenerateVendorSlug(requestData.FullName),
		Role:         entity.RoleVendor,
		IsActive:     true,
	}
	if err := service.repo.CreateUser(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrEmailTaken) {
			return nil, errors.NewAppError(errors.ErrAlreadyExists, "email already registered", nil)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create user", err)
	}

	logger.Info("AuthService:Register:Success", "user_id", user.ID)
	return toUserResponse(user), nil
}

// Login checks the password and issues an access token. Repeated failures lock
// the email for a while.
func (service *AuthService) Login(ctx context.Context, requestData *dto.LoginRequest) (*dto.LoginResponse, *errors.AppError) {
	email := normalizeEmail(requestData.Email)

	blocked, err := service.cache.IsLoginBlocked(ctx, email)
	if err != nil {
		logger.Error("AuthService:Login:IsLoginBlocked:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to get login attempt", err)
	}
	if blocked {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "too many failed attempts, try again later", nil)
	}

	user, err := service.repo.GetUserByEmail(ctx, email)
	if err != nil && !stderrors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load user", err)
	}
	if user == nil || !user.IsActive || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(requestData.Password)) != nil {
		if _, err := service.cache.IncrementLoginAttempt(ctx, email); err != nil {
			logger.Error("AuthService:Login:IncrementLoginAttempt:Error", "error", err)
		}
		return nil, errors.NewAppError(errors.ErrUnauthorized, "invalid email or password", nil)
	}

	if err := service.cache.ResetLoginAttempts(ctx, email); err != nil {
		logger.Warn("AuthService:Login:ResetLoginAttempts:Error", "error", err)
	}

	accessToken, err := utils.GenerateToken(service.jwtSecret, user.ID, user.Role, service.tokenTTL)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to generate access token", err)
	}

	logger.Info("AuthService:Login:Success", "user_id", user.ID)
	return &dto.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(service.tokenTTL.Seconds()),
		User:        *toUserResponse(user),
	}, nil
}

// Logout revokes the token until it would have expired anyway.
func (service *AuthService) Logout(ctx context.Context, claims *utils.TokenClaims) *errors.AppError {
	if claims == nil || claims.ID == "" {
		return errors.NewAppError(errors.ErrInvalidTokenFormat, "token has no id", nil)
	}

	ttl := service.tokenTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := service.cache.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		logger.Error("AuthService:Logout:BlacklistToken:Error", "error", err)
		return errors.NewAppError(errors.ErrInternalServer, "failed to add token to blacklist", err)
	}
	return nil
}

func (service *AuthService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, *errors.AppError) {
	user, err := service.repo.GetUserByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.NewAppError(errors.ErrNotFound, "user not found", nil)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load user", err)
	}
	return toUserResponse(user), nil
}

// VendorIDBySlug resolves a vendor's public handle to its account id.
func (service *AuthService) VendorIDBySlug(ctx context.Context, slug string) (uuid.UUID, error) {
	user, err := service.repo.GetUserBySlug(ctx, strings.ToLower(slug))
	if err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			return uuid.Nil, errors.NewAppError(errors.ErrNotFound, "vendor not found", nil)
		}
		return uuid.Nil, errors.NewAppError(errors.ErrInternalServer, "failed to load vendor", err)
	}
	if !user.IsActive {
		return uuid.Nil, errors.NewAppError(errors.ErrNotFound, "vendor not found", nil)
	}
	return user.ID, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserResponse(user *entity.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Slug:      user.Slug,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
