package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	coreEntity "winetour-api/core/entity"
	"winetour-api/core/logger"
	"winetour-api/core/params"
	"winetour-api/modules/notification/dto"
	"winetour-api/modules/notification/entity"
	"winetour-api/modules/notification/repository"

	"github.com/google/uuid"
)

type NotificationService struct {
	repo *repository.NotificationRepository
}

func NewNotificationService(repo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) Create(ctx context.Context, req *dto.CreateNotificationRequest) error {
	now := time.Now()
	notif := &entity.Notification{
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
		Type:    req.Type,
		Data:    entity.JSONB(req.Data),
		IsRead:  false,
		BaseEntity: coreEntity.BaseEntity{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	return s.repo.Create(ctx, notif)
}

// NotifyReconnectRequired tells a user that a calendar connection stopped working and
// must be authorised again. Only one unread notice per provider is kept.
func (s *NotificationService) NotifyReconnectRequired(ctx context.Context, userID uuid.UUID, provider string) error {
	exists, err := s.repo.HasUnreadOfType(ctx, userID, entity.TypeCalendarReconnectRequired, "provider", provider)
	if err != nil {
		return err
	}
	if exists {
		logger.Info("NotificationService:NotifyReconnectRequired:AlreadyPending", "user_id", userID, "provider", provider)
		return nil
	}

	name := provider
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	err = s.Create(ctx, &dto.CreateNotificationRequest{
		UserID:  userID,
		Title:   fmt.Sprintf("Reconnect your %s calendar", name),
		Message: fmt.Sprintf("Your %s calendar connection has expired or was revoked. Bookings will not appear in your calendar until you connect it again.", name),
		Type:    entity.TypeCalendarReconnectRequired,
		Data:    map[string]any{"provider": provider},
	})
	if err != nil {
		logger.Error("NotificationService:NotifyReconnectRequired:Error", "error", err, "user_id", userID, "provider", provider)
		return err
	}
	logger.Info("NotificationService:NotifyReconnectRequired:Sent", "user_id", userID, "provider", provider)
	return nil
}

func (s *NotificationService) GetMyNotifications(ctx context.Context, userID uuid.UUID, queryParams params.QueryParams) (*dto.NotificationListResponse, error) {
	page, err := s.repo.GetByUserID(ctx, userID, queryParams)
	if err != nil {
		return nil, err
	}

	items := make([]dto.NotificationResponse, 0, len(page.Items))
	for _, n := range page.Items {
		items = append(items, dto.NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			Data:      n.Data,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return &dto.NotificationListResponse{
		Items:      items,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
	}, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []string) error {
	return s.repo.MarkAsRead(ctx, userID, ids)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
