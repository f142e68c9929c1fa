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
	"golang.org/x/oauth2/microsoft"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// MicrosoftProvider talks to Outlook calendars through Microsoft Graph.
type MicrosoftProvider struct {
	cfg    config.ProviderConfig
	client *restClient
}

func NewMicrosoftProvider(cfg config.ProviderConfig, httpClient *http.Client) *MicrosoftProvider {
	base := cfg.APIBaseURL
	if base == "" {
		base = graphBaseURL
	}
	return &MicrosoftProvider{
		cfg:    cfg,
		client: &restClient{provider: dto.ProviderMicrosoft, baseURL: base, http: httpClient},
	}
}

func (p *MicrosoftProvider) Name() string     { return dto.ProviderMicrosoft }
func (p *MicrosoftProvider) Configured() bool { return p.cfg.Configured() }

func (p *MicrosoftProvider) OAuthConfig() *oauth2.Config {
	return oauthConfig(p.cfg, microsoft.AzureADEndpoint("common"))
}

// AuthCodeOptions is empty: Graph issues refresh tokens for the offline_access scope.
func (p *MicrosoftProvider) AuthCodeOptions() []oauth2.AuthCodeOption {
	return nil
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type graphAttendee struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
	Type         string            `json:"type"`
}

type graphEvent struct {
	ID      string `json:"id,omitempty"`
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	Start    graphDateTime `json:"start"`
	End      graphDateTime `json:"end"`
	Location *struct {
		DisplayName string `json:"displayName"`
	} `json:"location,omitempty"`
	Attendees                  []graphAttendee `json:"attendees,omitempty"`
	IsReminderOn               bool            `json:"isReminderOn"`
	ReminderMinutesBeforeStart int             `json:"reminderMinutesBeforeStart"`
}

func toGraphEvent(event *dto.EventData) *graphEvent {
	ev := &graphEvent{
		Subject:                    event.Title,
		Start:                      graphDateTime{DateTime: event.StartTime, TimeZone: event.TimeZone},
		End:                        graphDateTime{DateTime: event.EndTime, TimeZone: event.TimeZone},
		IsReminderOn:               true,
		ReminderMinutesBeforeStart: constants.DefaultReminderMins,
	}
	ev.Body.ContentType = "text"
	ev.Body.Content = event.Description
	if event.Location != "" {
		ev.Location = &struct {
			DisplayName string `json:"displayName"`
		}{DisplayName: event.Location}
	}
	for _, a := range event.Attendees {
		ev.Attendees = append(ev.Attendees, graphAttendee{
			EmailAddress: graphEmailAddress{Address: a.Email, Name: a.Name},
			Type:         "required",
		})
	}
	return ev
}

func (p *MicrosoftProvider) CreateEvent(ctx context.Context, accessToken string, event *dto.EventData) (string, error) {
	var created graphEvent
	if err := p.client.do(ctx, http.MethodPost, "me/events", accessToken, toGraphEvent(event), &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("microsoft graph returned an event without id")
	}
	return created.ID, nil
}

func (p *MicrosoftProvider) UpdateEvent(ctx context.Context, accessToken, eventID string, event *dto.EventData) error {
	return p.client.do(ctx, http.MethodPatch, "me/events/"+url.PathEscape(eventID), accessToken, toGraphEvent(event), nil)
}

func (p *MicrosoftProvider) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	return p.client.do(ctx, http.MethodDelete, "me/events/"+url.PathEscape(eventID), accessToken, nil, nil)
}
