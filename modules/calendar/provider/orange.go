package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"winetour-api/core/config"
	"winetour-api/core/constants"
	"winetour-api/modules/calendar/dto"

	"golang.org/x/oauth2"
)

var orangeEndpoint = oauth2.Endpoint{
	AuthURL:  "https://api.orange.com/openidconnect/fr/v1/authorize",
	TokenURL: "https://api.orange.com/openidconnect/fr/v1/token",
}

const orangeBaseURL = "https://api.orange.com/calendar/v1"

// OrangeProvider uses the Orange calendar API, whose event schema follows Google's.
type OrangeProvider struct {
	cfg    config.ProviderConfig
	client *restClient
}

func NewOrangeProvider(cfg config.ProviderConfig, httpClient *http.Client) *OrangeProvider {
	base := cfg.APIBaseURL
	if base == "" {
		base = orangeBaseURL
	}
	return &OrangeProvider{
		cfg:    cfg,
		client: &restClient{provider: dto.ProviderOrange, baseURL: base, http: httpClient},
	}
}

func (p *OrangeProvider) Name() string     { return dto.ProviderOrange }
func (p *OrangeProvider) Configured() bool { return p.cfg.Configured() }

func (p *OrangeProvider) OAuthConfig() *oauth2.Config {
	return oauthConfig(p.cfg, orangeEndpoint)
}

func (p *OrangeProvider) AuthCodeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
}

type orangeDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type orangeAttendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type orangeReminder struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type orangeEvent struct {
	ID          string           `json:"id,omitempty"`
	Summary     string           `json:"summary"`
	Description string           `json:"description,omitempty"`
	Location    string           `json:"location,omitempty"`
	Start       orangeDateTime   `json:"start"`
	End         orangeDateTime   `json:"end"`
	Attendees   []orangeAttendee `json:"attendees,omitempty"`
	Reminders   struct {
		UseDefault bool             `json:"useDefault"`
		Overrides  []orangeReminder `json:"overrides"`
	} `json:"reminders"`
}

func toOrangeEvent(event *dto.EventData) *orangeEvent {
	ev := &orangeEvent{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start:       orangeDateTime{DateTime: event.StartTime, TimeZone: event.TimeZone},
		End:         orangeDateTime{DateTime: event.EndTime, TimeZone: event.TimeZone},
	}
	ev.Reminders.Overrides = []orangeReminder{{Method: "popup", Minutes: constants.DefaultReminderMins}}
	for _, a := range event.Attendees {
		ev.Attendees = append(ev.Attendees, orangeAttendee{Email: a.Email, DisplayName: a.Name})
	}
	return ev
}

func (p *OrangeProvider) CreateEvent(ctx context.Context, accessToken string, event *dto.EventData) (string, error) {
	var created orangeEvent
	if err := p.client.do(ctx, http.MethodPost, "calendars/primary/events", accessToken, toOrangeEvent(event), &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("orange calendar returned an event without id")
	}
	return created.ID, nil
}

func (p *OrangeProvider) UpdateEvent(ctx context.Context, accessToken, eventID string, event *dto.EventData) error {
	return p.client.do(ctx, http.MethodPatch, "calendars/primary/events/"+url.PathEscape(eventID), accessToken, toOrangeEvent(event), nil)
}

func (p *OrangeProvider) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	return p.client.do(ctx, http.MethodDelete, "calendars/primary/events/"+url.PathEscape(eventID), accessToken, nil, nil)
}
