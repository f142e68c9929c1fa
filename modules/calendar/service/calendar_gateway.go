package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"winetour-api/core/config"
	"winetour-api/core/constants"
	"winetour-api/core/logger"
	"winetour-api/modules/calendar/dto"
	"winetour-api/modules/calendar/provider"
	"winetour-api/modules/calendar/repository"

	"github.com/google/uuid"
)

// AccessTokenSource is the part of TokenManager the gateway depends on.
type AccessTokenSource interface {
	GetAccessToken(ctx context.Context, userID uuid.UUID, provider string) (string, bool)
}

// CalendarGateway mirrors bookings into the user's external calendar.
// Provider and token failures are reported as "" or false, never as errors;
// only malformed input produces an error, before any network call.
type CalendarGateway struct {
	repo      repository.CalendarRepository
	tokens    AccessTokenSource
	providers *provider.Registry
	preferred []string
	defaultTZ string
	timeout   time.Duration
}

func NewCalendarGateway(
	repo repository.CalendarRepository,
	tokens AccessTokenSource,
	providers *provider.Registry,
	cfg config.CalendarConfig,
) *CalendarGateway {
	preferred := cfg.PreferredProviders
	if len(preferred) == 0 {
		preferred = dto.Providers
	}
	tz := cfg.DefaultTimeZone
	if tz == "" {
		tz = constants.DefaultTimeZone
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = constants.CalendarHTTPTimeout
	}
	return &CalendarGateway{
		repo:      repo,
		tokens:    tokens,
		providers: providers,
		preferred: preferred,
		defaultTZ: tz,
		timeout:   timeout,
	}
}

// CreateEvent returns a reference to the created event, or a zero EventRef
// when the event could not be created.
func (g *CalendarGateway) CreateEvent(ctx context.Context, userID uuid.UUID, event *dto.EventData) (dto.EventRef, error) {
	ev, err := g.prepare(event)
	if err != nil {
		return dto.EventRef{}, err
	}

	p, token, ok := g.session(ctx, userID, "")
	if !ok {
		return dto.EventRef{}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	eventID, err := p.CreateEvent(callCtx, token, ev)
	if err != nil {
		logger.Warn("CalendarGateway:CreateEvent:Failed", "user_id", userID, "provider", p.Name(), "error", err)
		return dto.EventRef{}, nil
	}

	logger.Info("CalendarGateway:CreateEvent:Success", "user_id", userID, "provider", p.Name(), "event_id", eventID)
	return dto.EventRef{ID: eventID, Provider: p.Name()}, nil
}

// UpdateEvent reports whether the remote event was updated. The call goes to
// ref.Provider only. A missing remote event is a failure but leaves the
// connector untouched.
func (g *CalendarGateway) UpdateEvent(ctx context.Context, userID uuid.UUID, ref dto.EventRef, event *dto.EventData) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	ev, err := g.prepare(event)
	if err != nil {
		return false, err
	}

	p, token, ok := g.session(ctx, userID, ref.Provider)
	if !ok {
		return false, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := p.UpdateEvent(callCtx, token, ref.ID, ev); err != nil {
		if errors.Is(err, provider.ErrEventNotFound) {
			logger.Warn("CalendarGateway:UpdateEvent:EventGone", "user_id", userID, "provider", p.Name(), "event_id", ref.ID)
			return false, nil
		}
		logger.Warn("CalendarGateway:UpdateEvent:Failed", "user_id", userID, "provider", p.Name(), "event_id", ref.ID, "error", err)
		return false, nil
	}
	return true, nil
}

// DeleteEvent reports whether the remote event is gone. The call goes to
// ref.Provider only. An event that was already deleted counts as success.
func (g *CalendarGateway) DeleteEvent(ctx context.Context, userID uuid.UUID, ref dto.EventRef) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}

	p, token, ok := g.session(ctx, userID, ref.Provider)
	if !ok {
		return false, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := p.DeleteEvent(callCtx, token, ref.ID); err != nil {
		if errors.Is(err, provider.ErrEventNotFound) {
			logger.Info("CalendarGateway:DeleteEvent:AlreadyGone", "user_id", userID, "provider", p.Name(), "event_id", ref.ID)
			return true, nil
		}
		logger.Warn("CalendarGateway:DeleteEvent:Failed", "user_id", userID, "provider", p.Name(), "event_id", ref.ID, "error", err)
		return false, nil
	}
	return true, nil
}

// ActiveProvider returns the provider events are written to, or "" if none is usable.
func (g *CalendarGateway) ActiveProvider(ctx context.Context, userID uuid.UUID) string {
	p, ok := g.resolve(ctx, userID)
	if !ok {
		return ""
	}
	return p.Name()
}

func (g *CalendarGateway) prepare(event *dto.EventData) (*dto.EventData, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: event is nil", dto.ErrInvalidEventData)
	}
	ev := *event
	ev.Attendees = slices.Clone(event.Attendees)
	if err := ev.Normalize(g.defaultTZ); err != nil {
		return nil, err
	}
	return &ev, nil
}

// session obtains a token for the named provider, or for the user's
// preferred usable provider when name is empty.
func (g *CalendarGateway) session(ctx context.Context, userID uuid.UUID, name string) (provider.Provider, string, bool) {
	var (
		p  provider.Provider
		ok bool
	)
	if name == "" {
		p, ok = g.resolve(ctx, userID)
	} else {
		p, ok = g.providers.Get(name)
	}
	if !ok {
		logger.Debug("CalendarGateway:Session:NotConnected", "user_id", userID, "provider", name)
		return nil, "", false
	}

	token, ok := g.tokens.GetAccessToken(ctx, userID, p.Name())
	if !ok {
		logger.Info("CalendarGateway:Session:NoToken", "user_id", userID, "provider", p.Name())
		return nil, "", false
	}
	return p, token, true
}

// resolve returns the first usable connector's provider in preference order.
func (g *CalendarGateway) resolve(ctx context.Context, userID uuid.UUID) (provider.Provider, bool) {
	connectors, err := g.repo.GetConnectorsByUserID(ctx, userID)
	if err != nil {
		logger.Error("CalendarGateway:Resolve:Error", "user_id", userID, "error", err)
		return nil, false
	}

	usable := make(map[string]bool, len(connectors))
	for i := range connectors {
		if connectors[i].Usable() {
			usable[connectors[i].Provider] = true
		}
	}

	for _, name := range g.preferred {
		if !usable[name] {
			continue
		}
		if p, ok := g.providers.Get(name); ok {
			return p, true
		}
	}
	return nil, false
}
