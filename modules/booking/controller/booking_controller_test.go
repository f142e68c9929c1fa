package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appErrors "winetour-api/core/errors"
	"winetour-api/core/middleware"
	"winetour-api/core/params"
	"winetour-api/core/utils"
	"winetour-api/core/validator"
	"winetour-api/modules/booking/controller"
	"winetour-api/modules/booking/dto"
	"winetour-api/modules/booking/router"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "test-secret"

type noRevocations struct{}

func (noRevocations) BlacklistToken(context.Context, string, time.Duration) error { return nil }
func (noRevocations) IsTokenBlacklisted(context.Context, string) (bool, error)   { return false, nil }
func (noRevocations) Ping(context.Context) error                                 { return nil }
func (noRevocations) Close() error                                               { return nil }

type stubService struct {
	vendorID        uuid.UUID
	created         *dto.CreateBookingRequest
	cancelled       uuid.UUID
	pageSize        int
	duration        int
	availabilityFor uuid.UUID
}

func (s *stubService) CreateBooking(_ context.Context, vendorID uuid.UUID, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	s.vendorID = vendorID
	s.created = req
	return &dto.BookingResponse{ID: uuid.New(), Reference: "WT-7K3M9Q2A", Status: "pending", CalendarSyncStatus: "pending"}, nil
}

func (s *stubService) GetBooking(_ context.Context, _, id uuid.UUID) (*dto.BookingResponse, error) {
	return nil, appErrors.NewAppError(appErrors.ErrNotFound, "Booking not found", nil)
}

func (s *stubService) GetPublicBooking(_ context.Context, reference string) (*dto.PublicBookingResponse, error) {
	return &dto.PublicBookingResponse{Reference: reference, Status: "confirmed"}, nil
}

func (s *stubService) ListBookings(_ context.Context, _ uuid.UUID, p params.QueryParams) (*dto.BookingListResponse, error) {
	s.pageSize = p.PageSize
	return &dto.BookingListResponse{Items: []dto.BookingResponse{}, PageNumber: p.PageNumber, PageSize: p.PageSize}, nil
}

func (s *stubService) ConfirmBooking(_ context.Context, _, id uuid.UUID) (*dto.BookingResponse, error) {
	return &dto.BookingResponse{ID: id, Status: "confirmed"}, nil
}

func (s *stubService) RescheduleBooking(_ context.Context, _, id uuid.UUID, req *dto.RescheduleBookingRequest) (*dto.BookingResponse, error) {
	return &dto.BookingResponse{ID: id, StartTime: req.StartTime, EndTime: req.EndTime}, nil
}

func (s *stubService) CancelBooking(_ context.Context, _, id uuid.UUID) (*dto.BookingResponse, error) {
	s.cancelled = id
	return &dto.BookingResponse{ID: id, Status: "cancelled"}, nil
}

func (s *stubService) GetAvailability(_ context.Context, vendorID uuid.UUID, date string, durationMinutes int) (*dto.AvailabilityResponse, error) {
	if date == "" {
		return nil, appErrors.NewAppError(appErrors.ErrInvalidInput, "date must be YYYY-MM-DD", nil)
	}
	s.duration = durationMinutes
	s.availabilityFor = vendorID
	return &dto.AvailabilityResponse{Date: date, DurationMinutes: durationMinutes, Slots: []dto.AvailabilitySlot{}}, nil
}

var vendorSlugID = uuid.New()

type slugs map[string]uuid.UUID

func (s slugs) VendorIDBySlug(_ context.Context, slug string) (uuid.UUID, error) {
	if id, ok := s[slug]; ok {
		return id, nil
	}
	return uuid.Nil, appErrors.NewAppError(appErrors.ErrNotFound, "vendor not found", nil)
}

func newServer(t *testing.T, svc *stubService) (*echo.Echo, string, uuid.UUID) {
	t.Helper()
	e := echo.New()
	e.Validator = validator.New()
	mw := middleware.NewMiddleware(jwtSecret, noRevocations{})
	router.NewBookingRouter(controller.NewBookingController(svc, slugs{"domaine-vendor-x7k2p": vendorSlugID})).Setup(e, mw)

	vendorID := uuid.New()
	token, err := utils.GenerateToken(jwtSecret, vendorID, "vendor", time.Hour)
	require.NoError(t, err)
	return e, token, vendorID
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const validBooking = `{
	"title": "Cellar tour",
	"start_time": "2026-06-12T10:00:00",
	"end_time": "2026-06-12T11:30:00",
	"guest_email": "guest@example.com"
}`

func TestCreateBookingRoute(t *testing.T) {
	svc := &stubService{}
	e, token, vendorID := newServer(t, svc)

	rec := do(e, http.MethodPost, "/api/v1/private/bookings", token, validBooking)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, vendorID, svc.vendorID)
	assert.Equal(t, "Cellar tour", svc.created.Title)

	var envelope struct {
		Data dto.BookingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "WT-7K3M9Q2A", envelope.Data.Reference)
}

func TestCreateBookingValidation(t *testing.T) {
	svc := &stubService{}
	e, token, _ := newServer(t, svc)

	body := `{"title": "Cellar tour", "start_time": "12/06/2026 10h", "end_time": "2026-06-12T11:30:00", "guest_email": "nope"}`
	rec := do(e, http.MethodPost, "/api/v1/private/bookings", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), string(appErrors.ErrInvalidRequestData))
	assert.Nil(t, svc.created)
}

func TestBookingRoutesRequireAuth(t *testing.T) {
	e, _, _ := newServer(t, &stubService{})

	rec := do(e, http.MethodGet, "/api/v1/private/bookings", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListBookingsPaging(t *testing.T) {
	svc := &stubService{}
	e, token, _ := newServer(t, svc)

	rec := do(e, http.MethodGet, "/api/v1/private/bookings?page=2&limit=500", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, svc.pageSize)
}

func TestBookingIDRoutes(t *testing.T) {
	svc := &stubService{}
	e, token, _ := newServer(t, svc)
	id := uuid.New()

	rec := do(e, http.MethodGet, "/api/v1/private/bookings/not-a-uuid", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/private/bookings/"+id.String(), token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodDelete, "/api/v1/private/bookings/"+id.String(), token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, svc.cancelled)

	rec = do(e, http.MethodPut, "/api/v1/private/bookings/"+id.String()+"/reschedule", token,
		`{"start_time": "2026-06-13T15:00:00", "end_time": "2026-06-13T16:00:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2026-06-13T15:00:00")

	rec = do(e, http.MethodPut, "/api/v1/private/bookings/"+id.String()+"/confirm", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPublicBookingLookup(t *testing.T) {
	e, _, _ := newServer(t, &stubService{})

	rec := do(e, http.MethodGet, "/api/v1/public/bookings/WT-7K3M9Q2A", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WT-7K3M9Q2A")
}

func TestAvailabilityRoute(t *testing.T) {
	svc := &stubService{}
	e, _, _ := newServer(t, svc)
	path := "/api/v1/public/vendors/" + uuid.NewString() + "/availability"

	rec := do(e, http.MethodGet, path+"?date=2026-06-12&duration=90", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 90, svc.duration)

	rec = do(e, http.MethodGet, path+"?date=2026-06-12&duration=long", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/public/vendors/domaine-vendor-x7k2p/availability?date=2026-06-12", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vendorSlugID, svc.availabilityFor)

	rec = do(e, http.MethodGet, "/api/v1/public/vendors/nope/availability?date=2026-06-12", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
