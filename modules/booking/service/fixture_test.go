package service

import (
	"context"
	"errors"
	"sync"
	"time"

	coreEntity "winetour-api/core/entity"
	"winetour-api/core/params"
	"winetour-api/modules/booking/entity"
	"winetour-api/modules/booking/repository"
	caldto "winetour-api/modules/calendar/dto"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// memRepo is an in-memory BookingRepository.
type memRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]entity.Booking
	failSave error
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: map[uuid.UUID]entity.Booking{}}
}

func (r *memRepo) Create(_ context.Context, b *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	r.bookings[b.ID] = *b
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *memRepo) GetByReference(_ context.Context, reference string) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.Reference == reference {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) ListByVendor(_ context.Context, vendorID uuid.UUID, p params.QueryParams) (*entity.PaginatedBookingEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []entity.Booking
	for _, b := range r.bookings {
		if b.VendorID == vendorID {
			items = append(items, b)
		}
	}
	return coreEntity.NewPagination(items, len(items), p.PageNumber, p.PageSize), nil
}

func (r *memRepo) ListActiveBetween(_ context.Context, vendorID uuid.UUID, from, to time.Time) ([]entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []entity.Booking
	for _, b := range r.bookings {
		if b.VendorID == vendorID && !b.IsCancelled() && b.StartTime.Before(to) && b.EndTime.After(from) {
			items = append(items, b)
		}
	}
	return items, nil
}

func (r *memRepo) Update(_ context.Context, b *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	if _, ok := r.bookings[b.ID]; !ok {
		return repository.ErrNotFound
	}
	r.bookings[b.ID] = *b
	return nil
}

func (r *memRepo) UpdateSyncState(_ context.Context, id uuid.UUID, eventID, provider, syncStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.CalendarEventID = eventID
	b.CalendarProvider = provider
	b.CalendarSyncStatus = syncStatus
	r.bookings[id] = b
	return nil
}

// cancel marks a booking cancelled the way a concurrent request would.
func (r *memRepo) cancel(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.bookings[id]
	b.Status = entity.StatusCancelled
	b.CalendarSyncStatus = entity.SyncPending
	r.bookings[id] = b
}

func (r *memRepo) get(id uuid.UUID) entity.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bookings[id]
}

// recordingQueue captures enqueued tasks instead of talking to Redis.
type recordingQueue struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, task *asynq.Task, opts ...asynq.Option) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	q.opts = append(q.opts, opts)
	return nil
}

func (q *recordingQueue) types() []string {
	out := make([]string, 0, len(q.tasks))
	for _, t := range q.tasks {
		out = append(out, t.Type())
	}
	return out
}

// fakeCalendar plays the calendar collaborator.
type fakeCalendar struct {
	mu        sync.Mutex
	ref       caldto.EventRef
	updateOK  bool
	deleteOK  bool
	added     []*caldto.EventData
	updated   []caldto.EventRef
	deleted   []caldto.EventRef
	addedUser uuid.UUID
	// onAdd runs while the provider call is in flight.
	onAdd func()
}

func googleEvent(id string) caldto.EventRef {
	return caldto.EventRef{ID: id, Provider: caldto.ProviderGoogle}
}

func (c *fakeCalendar) AddBookingToCalendar(_ context.Context, userID uuid.UUID, event *caldto.EventData) caldto.EventRef {
	if c.onAdd != nil {
		c.onAdd()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addedUser = userID
	c.added = append(c.added, event)
	return c.ref
}

func (c *fakeCalendar) UpdateBookingInCalendar(_ context.Context, _ uuid.UUID, ref caldto.EventRef, _ *caldto.EventData) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updated = append(c.updated, ref)
	return c.updateOK
}

func (c *fakeCalendar) DeleteBookingFromCalendar(_ context.Context, _ uuid.UUID, ref caldto.EventRef) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, ref)
	return c.deleteOK
}

var errDown = errors.New("redis: connection refused")
