package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"winetour-api/core/database"
	coreEntity "winetour-api/core/entity"
	"winetour-api/core/logger"
	"winetour-api/core/params"
	"winetour-api/modules/booking/entity"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("booking not found")

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	GetByReference(ctx context.Context, reference string) (*entity.Booking, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, params params.QueryParams) (*entity.PaginatedBookingEntity, error)
	ListActiveBetween(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]entity.Booking, error)
	Update(ctx context.Context, booking *entity.Booking) error
	UpdateSyncState(ctx context.Context, id uuid.UUID, eventID, provider, syncStatus string) error
}

type bookingRepository struct {
	db database.IDatabase
}

func NewBookingRepository(db database.IDatabase) BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, reference, vendor_id, title, description, location, start_time, end_time,
		time_zone, guest_email, guest_name, status, calendar_event_id, calendar_provider, calendar_sync_status,
		created_at, updated_at`

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (reference, vendor_id, title, description, location, start_time, end_time,
			time_zone, guest_email, guest_name, status, calendar_event_id, calendar_provider, calendar_sync_status)
		VALUES (:reference, :vendor_id, :title, :description, :location, :start_time, :end_time,
			:time_zone, :guest_email, :guest_name, :status, :calendar_event_id, :calendar_provider, :calendar_sync_status)
		RETURNING id, created_at, updated_at
	`
	rows, err := r.db.NamedQueryContext(ctx, query, booking)
	if err != nil {
		logger.Error("BookingRepository:Create:Error", "error", err)
		return err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
			logger.Error("BookingRepository:Create:Scan:Error", "error", err)
			return err
		}
	}
	return rows.Err()
}

func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	var booking entity.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Error("BookingRepository:GetByID:Error", "error", err, "id", id)
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) GetByReference(ctx context.Context, reference string) (*entity.Booking, error) {
	var booking entity.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = $1`
	if err := r.db.GetContext(ctx, &booking, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		logger.Error("BookingRepository:GetByReference:Error", "error", err, "reference", reference)
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID, params params.QueryParams) (*entity.PaginatedBookingEntity, error) {
	baseQuery := `FROM bookings WHERE vendor_id = $1`

	var totalItems int
	if err := r.db.GetContext(ctx, &totalItems, "SELECT COUNT(*) "+baseQuery, vendorID); err != nil {
		logger.Error("BookingRepository:ListByVendor:Count:Error", "error", err)
		return nil, err
	}

	query := `
		SELECT ` + bookingColumns + ` ` + baseQuery + `
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`
	var bookings []entity.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, vendorID, params.PageSize, params.Offset()); err != nil {
		logger.Error("BookingRepository:ListByVendor:Select:Error", "error", err)
		return nil, err
	}

	return coreEntity.NewPagination(bookings, totalItems, params.PageNumber, params.PageSize), nil
}

// ListActiveBetween returns the non-cancelled bookings overlapping [from, to).
func (r *bookingRepository) ListActiveBetween(ctx context.Context, vendorID uuid.UUID, from, to time.Time) ([]entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE vendor_id = $1 AND status <> $2 AND start_time < $3 AND end_time > $4
		ORDER BY start_time
	`
	var bookings []entity.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, vendorID, entity.StatusCancelled, to, from); err != nil {
		logger.Error("BookingRepository:ListActiveBetween:Error", "error", err)
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	query := `
		UPDATE bookings
		SET title = $1, description = $2, location = $3, start_time = $4, end_time = $5,
			time_zone = $6, status = $7, calendar_sync_status = $8, updated_at = NOW()
		WHERE id = $9
	`
	res, err := r.db.ExecResultContext(ctx, query,
		booking.Title, booking.Description, booking.Location, booking.StartTime, booking.EndTime,
		booking.TimeZone, booking.Status, booking.CalendarSyncStatus, booking.ID)
	if err != nil {
		logger.Error("BookingRepository:Update:Error", "error", err, "id", booking.ID)
		return err
	}
	return requireRow(res)
}

// UpdateSyncState records the remote event, the provider that issued it and the sync status.
func (r *bookingRepository) UpdateSyncState(ctx context.Context, id uuid.UUID, eventID, provider, syncStatus string) error {
	query := `
		UPDATE bookings
		SET calendar_event_id = $1, calendar_provider = $2, calendar_sync_status = $3, updated_at = NOW()
		WHERE id = $4
	`
	res, err := r.db.ExecResultContext(ctx, query, eventID, provider, syncStatus, id)
	if err != nil {
		logger.Error("BookingRepository:UpdateSyncState:Error", "error", err, "id", id)
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
