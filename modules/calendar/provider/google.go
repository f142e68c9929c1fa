package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"winetour-api/core/config"
	"winetour-api/modules/calendar/dto"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	googleCalendarID       = "primary"
	googleEmailReminderMin = 24 * 60
	googlePopupReminderMin = 60
)

type GoogleProvider struct {
	cfg  config.ProviderConfig
	http *http.Client
}

func NewGoogleProvider(cfg config.ProviderConfig, httpClient *http.Client) *GoogleProvider {
	return &GoogleProvider{cfg: cfg, http: httpClient}
}

func (p *GoogleProvider) Name() string     { return dto.ProviderGoogle }
func (p *GoogleProvider) Configured() bool { return p.cfg.Configured() }

func (p *GoogleProvider) OAuthConfig() *oauth2.Config {
	return oauthConfig(p.cfg, google.Endpoint)
}

// AuthCodeOptions asks for offline access so Google issues a refresh token.
func (p *GoogleProvider) AuthCodeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}
}

func (p *GoogleProvider) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.http)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
	// oauth2.NewClient keeps the transport but not the timeout.
	client.Timeout = p.http.Timeout

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if p.cfg.APIBaseURL != "" {
		opts = append(opts, option.WithEndpoint(p.cfg.APIBaseURL))
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

func (p *GoogleProvider) CreateEvent(ctx context.Context, accessToken string, event *dto.EventData) (string, error) {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	created, err := svc.Events.Insert(googleCalendarID, toGoogleEvent(event)).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return "", p.translate(err)
	}
	if created.Id == "" {
		return "", fmt.Errorf("google calendar returned an event without id")
	}
	return created.Id, nil
}

func (p *GoogleProvider) UpdateEvent(ctx context.Context, accessToken, eventID string, event *dto.EventData) error {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return err
	}

	_, err = svc.Events.Patch(googleCalendarID, eventID, toGoogleEvent(event)).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return p.translate(err)
	}
	return nil
}

func (p *GoogleProvider) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	svc, err := p.service(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(googleCalendarID, eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return p.translate(err)
	}
	return nil
}

func (p *GoogleProvider) translate(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone {
			return ErrEventNotFound
		}
		return &APIError{Provider: dto.ProviderGoogle, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return err
}

func toGoogleEvent(event *dto.EventData) *calendar.Event {
	ev := &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start: &calendar.EventDateTime{
			DateTime: event.StartTime,
			TimeZone: event.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.EndTime,
			TimeZone: event.TimeZone,
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: googleEmailReminderMin},
				{Method: "popup", Minutes: googlePopupReminderMin},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	for _, a := range event.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{
			Email:       a.Email,
			DisplayName: a.Name,
		})
	}
	return ev
}
