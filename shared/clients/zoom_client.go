package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"meetdesk-backend/shared/config"
	"meetdesk-backend/shared/metrics"
)

const (
	zoomProvider         = "zoom"
	zoomTimeout          = 15 * time.Second
	zoomScheduledMeeting = 2
	zoomTokenLeeway      = time.Minute
)

// ZoomMeetingRequest describes a scheduled meeting to create or reschedule
type ZoomMeetingRequest struct {
	Topic     string
	StartTime time.Time
	Duration  int
	// HostUserID is the Zoom user to create the meeting under; empty means "me"
	HostUserID string
}

// ZoomMeeting is the subset of Zoom's meeting resource the service keeps
type ZoomMeeting struct {
	ID       string
	JoinURL  string
	StartURL string
	Password string
}

type zoomMeetingSettings struct {
	HostVideo        bool `json:"host_video"`
	ParticipantVideo bool `json:"participant_video"`
	JoinBeforeHost   bool `json:"join_before_host"`
	MuteUponEntry    bool `json:"mute_upon_entry"`
	WaitingRoom      bool `json:"waiting_room"`
}

type zoomCreatePayload struct {
	Topic     string              `json:"topic"`
	Type      int                 `json:"type"`
	StartTime string              `json:"start_time"`
	Duration  int                 `json:"duration"`
	Timezone  string              `json:"timezone"`
	Settings  zoomMeetingSettings `json:"settings"`
}

type zoomMeetingResponse struct {
	ID       json.RawMessage `json:"id"`
	UUID     string          `json:"uuid"`
	JoinURL  string          `json:"join_url"`
	StartURL string          `json:"start_url"`
	Password string          `json:"password"`
}

type zoomTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// ZoomClient talks to the Zoom REST API with server-to-server OAuth
type ZoomClient struct {
	accountID    string
	clientID     string
	clientSecret string
	apiBaseURL   string
	oauthURL     string
	api          apiCaller
	now          func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewZoomClient(cfg *config.Config, httpClient *http.Client, m *metrics.Metrics) *ZoomClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(zoomTimeout)
	}
	return &ZoomClient{
		accountID:    cfg.ZoomAccountID,
		clientID:     cfg.ZoomClientID,
		clientSecret: cfg.ZoomClientSecret,
		apiBaseURL:   strings.TrimRight(cfg.ZoomAPIBaseURL, "/"),
		oauthURL:     cfg.ZoomOAuthURL,
		api:          apiCaller{provider: zoomProvider, httpClient: httpClient, metrics: m},
		now:          time.Now,
	}
}

// accessToken returns a cached token, fetching a new one shortly before expiry
func (z *ZoomClient) accessToken(ctx context.Context) (string, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.token != "" && z.now().Before(z.tokenExpiry) {
		return z.token, nil
	}

	if z.accountID == "" || z.clientID == "" || z.clientSecret == "" {
		return "", errors.New("zoom credentials are not configured")
	}

	q := url.Values{}
	q.Set("grant_type", "account_credentials")
	q.Set("account_id", z.accountID)
	tokenURL := z.oauthURL + "?" + q.Encode()

	var resp zoomTokenResponse
	err := z.api.do(ctx, "oauth_token", http.MethodPost, tokenURL, nil, &resp, func(req *http.Request) {
		req.SetBasicAuth(z.clientID, z.clientSecret)
	})
	if err != nil {
		return "", fmt.Errorf("zoom token generation failed: %w", err)
	}
	if resp.AccessToken == "" {
		return "", errors.New("zoom token generation failed: empty access token")
	}

	expiresIn := time.Duration(resp.ExpiresIn) * time.Second
	if expiresIn <= zoomTokenLeeway {
		expiresIn = zoomTokenLeeway * 2
	}
	z.token = resp.AccessToken
	z.tokenExpiry = z.now().Add(expiresIn - zoomTokenLeeway)
	return z.token, nil
}

func (z *ZoomClient) call(ctx context.Context, operation, method, path string, payload, out interface{}) error {
	token, err := z.accessToken(ctx)
	if err != nil {
		return err
	}
	return z.api.do(ctx, operation, method, z.apiBaseURL+path, payload, out, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
}

// CreateMeeting schedules a meeting in UTC under the host's Zoom user
func (z *ZoomClient) CreateMeeting(ctx context.Context, req ZoomMeetingRequest) (*ZoomMeeting, error) {
	host := req.HostUserID
	if host == "" {
		host = "me"
	}

	payload := zoomCreatePayload{
		Topic:     req.Topic,
		Type:      zoomScheduledMeeting,
		StartTime: req.StartTime.UTC().Format(time.RFC3339),
		Duration:  req.Duration,
		Timezone:  "UTC",
		Settings: zoomMeetingSettings{
			HostVideo:        true,
			ParticipantVideo: true,
			JoinBeforeHost:   false,
			MuteUponEntry:    true,
			WaitingRoom:      true,
		},
	}

	var resp zoomMeetingResponse
	if err := z.call(ctx, "create_meeting", http.MethodPost, "/users/"+url.PathEscape(host)+"/meetings", payload, &resp); err != nil {
		return nil, err
	}
	return resp.toMeeting(), nil
}

// DeleteMeeting removes a meeting from Zoom
func (z *ZoomClient) DeleteMeeting(ctx context.Context, meetingID string) error {
	return z.call(ctx, "delete_meeting", http.MethodDelete, "/meetings/"+url.PathEscape(meetingID), nil, nil)
}

// toMeeting prefers the numeric meeting id and falls back to the uuid
func (r zoomMeetingResponse) toMeeting() *ZoomMeeting {
	id := strings.Trim(strings.TrimSpace(string(r.ID)), `"`)
	if id == "" || id == "null" {
		id = r.UUID
	}
	return &ZoomMeeting{
		ID:       id,
		JoinURL:  r.JoinURL,
		StartURL: r.StartURL,
		Password: r.Password,
	}
}
