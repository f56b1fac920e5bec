package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// rewriteTransport redirects requests to the test server while preserving
// path and query.
type rewriteTransport struct {
	Transport http.RoundTripper
	host      string
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u, err := url.Parse(rt.host)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = u.Scheme
	req.URL.Host = u.Host
	return rt.Transport.RoundTrip(req)
}

func seededTokenSource() *TokenSource {
	ts := &TokenSource{ClientID: "test-client-id", ClientSecret: "test-secret"}
	ts.SetToken("test-token", time.Now().Add(1*time.Hour))
	return ts
}

func helixClientFor(server *httptest.Server) *HelixClient {
	return &HelixClient{
		AppTokenSource: seededTokenSource(),
		ClientID:       "test-client-id",
		HTTPClient: &http.Client{
			Transport: &rewriteTransport{
				Transport: http.DefaultTransport,
				host:      server.URL,
			},
		},
	}
}

func TestHelixClient_GetUser(t *testing.T) {
	tests := []struct {
		response    interface{}
		name        string
		login       string
		wantPicture string
		errContains string
		statusCode  int
		wantErr     bool
	}{
		{
			name:  "successful user lookup",
			login: "testuser",
			response: map[string]interface{}{
				"data": []map[string]string{
					{"id": "12345", "login": "testuser", "profile_image_url": "https://cdn.example/pic.png"},
				},
			},
			statusCode:  http.StatusOK,
			wantPicture: "https://cdn.example/pic.png",
		},
		{
			name:  "user not found",
			login: "nonexistent",
			response: map[string]interface{}{
				"data": []map[string]string{},
			},
			statusCode:  http.StatusOK,
			wantErr:     true,
			errContains: "user not found",
		},
		{
			name:        "empty login",
			login:       "",
			wantErr:     true,
			errContains: "login empty",
		},
		{
			name:        "helix error status",
			login:       "testuser",
			statusCode:  http.StatusInternalServerError,
			wantErr:     true,
			errContains: "users request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Client-Id") != "test-client-id" {
					t.Errorf("missing or wrong Client-Id header")
				}
				if r.Header.Get("Authorization") != "Bearer test-token" {
					t.Errorf("missing or wrong Authorization header")
				}
				if tt.login != "" && r.URL.Query().Get("login") != tt.login {
					t.Errorf("login query param = %s, want %s", r.URL.Query().Get("login"), tt.login)
				}
				w.WriteHeader(tt.statusCode)
				if tt.response != nil {
					json.NewEncoder(w).Encode(tt.response)
				}
			}))
			defer server.Close()

			client := helixClientFor(server)
			user, err := client.GetUser(context.Background(), tt.login)

			if tt.wantErr {
				if err == nil {
					t.Errorf("GetUser() error = nil, want error containing %q", tt.errContains)
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("GetUser() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("GetUser() unexpected error = %v", err)
				return
			}
			if user.ProfileImageURL != tt.wantPicture {
				t.Errorf("GetUser() profile_image_url = %s, want %s", user.ProfileImageURL, tt.wantPicture)
			}
		})
	}
}

func TestHelixClient_GetStreams(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		response      interface{}
		name          string
		broadcasterID string
		errContains   string
		statusCode    int
		wantLen       int
		wantErr       bool
	}{
		{
			name:          "live broadcaster",
			broadcasterID: "111",
			response: map[string]interface{}{
				"data": []map[string]interface{}{
					{"user_id": "111", "title": "speedrun", "started_at": started.Format(time.RFC3339)},
				},
			},
			statusCode: http.StatusOK,
			wantLen:    1,
		},
		{
			name:          "offline broadcaster",
			broadcasterID: "222",
			response:      map[string]interface{}{"data": []map[string]interface{}{}},
			statusCode:    http.StatusOK,
			wantLen:       0,
		},
		{
			name:          "empty broadcaster id",
			broadcasterID: "",
			wantErr:       true,
			errContains:   "broadcasterID empty",
		},
		{
			name:          "helix error status",
			broadcasterID: "111",
			statusCode:    http.StatusTooManyRequests,
			wantErr:       true,
			errContains:   "streams request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.broadcasterID != "" && r.URL.Query().Get("user_id") != tt.broadcasterID {
					t.Errorf("user_id query param = %s, want %s", r.URL.Query().Get("user_id"), tt.broadcasterID)
				}
				w.WriteHeader(tt.statusCode)
				if tt.response != nil {
					json.NewEncoder(w).Encode(tt.response)
				}
			}))
			defer server.Close()

			client := helixClientFor(server)
			streams, err := client.GetStreams(context.Background(), tt.broadcasterID)

			if tt.wantErr {
				if err == nil {
					t.Errorf("GetStreams() error = nil, want error containing %q", tt.errContains)
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("GetStreams() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("GetStreams() unexpected error = %v", err)
				return
			}
			if len(streams) != tt.wantLen {
				t.Errorf("GetStreams() returned %d streams, want %d", len(streams), tt.wantLen)
			}
			if tt.wantLen == 1 && !streams[0].StartedAt.Equal(started) {
				t.Errorf("GetStreams() started_at = %v, want %v", streams[0].StartedAt, started)
			}
		})
	}
}
