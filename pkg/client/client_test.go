package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/callwave/callwave/internal/session"
	"github.com/callwave/callwave/pkg/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, srv *httptest.Server, tok domain.Tokens) (*Client, *session.Manager) {
	t.Helper()
	m := session.NewManager(session.NewMemoryStore())
	if !tok.Empty() {
		if err := m.SaveTokens(context.Background(), tok); err != nil {
			t.Fatal(err)
		}
	}
	c := New(srv.URL, m, WithClock(func() time.Time { return testNow }))
	return c, m
}

// refreshHandler issues "new-access" and counts calls.
func refreshHandler(calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		if body["refresh_token"] != "refresh" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid refresh token"}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(TokenResponse{AccessToken: "new-access", ExpiresIn: 3600}) //nolint:errcheck
	}
}

func TestMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/me" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		json.NewEncoder(w).Encode(domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}) //nolint:errcheck
	}))
	defer srv.Close()

	c, m := newTestClient(t, srv, domain.Tokens{AccessToken: "test-token"})
	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if me.Name != "Ada" {
		t.Errorf("Name = %q, want %q", me.Name, "Ada")
	}
	cached, _ := m.User(context.Background())
	if cached == nil || cached.ID != "u1" {
		t.Errorf("cached user = %+v", cached)
	}
}

func TestExpiredTokenRefreshesBeforeRequest(t *testing.T) {
	var refreshes int32
	var order []string
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		order = append(order, "refresh")
		mu.Unlock()
		if r.Header.Get("Authorization") != "" {
			t.Error("refresh must be sent without a bearer token")
		}
		refreshHandler(&refreshes)(w, r)
	})
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		order = append(order, "me")
		mu.Unlock()
		if got := r.Header.Get("Authorization"); got != "Bearer new-access" {
			t.Errorf("Authorization = %q, want refreshed token", got)
		}
		json.NewEncoder(w).Encode(domain.User{ID: "u1"}) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, m := newTestClient(t, srv, domain.Tokens{
		AccessToken: "old-access", RefreshToken: "refresh", ExpiresAt: testNow.Add(-time.Minute),
	})
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if atomic.LoadInt32(&refreshes) != 1 {
		t.Errorf("refresh calls = %d, want 1", refreshes)
	}
	if len(order) != 2 || order[0] != "refresh" || order[1] != "me" {
		t.Errorf("order = %v, want [refresh me]", order)
	}
	tok, _ := m.Tokens(context.Background())
	if tok.AccessToken != "new-access" || tok.RefreshToken != "refresh" {
		t.Errorf("stored tokens = %+v", tok)
	}
	if want := testNow.Add(time.Hour); !tok.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", tok.ExpiresAt, want)
	}
}

func TestUnauthorizedRefreshesAndRetriesOnce(t *testing.T) {
	var refreshes, meCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", refreshHandler(&refreshes))
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(domain.User{ID: "u1"}) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _ := newTestClient(t, srv, domain.Tokens{AccessToken: "revoked", RefreshToken: "refresh"})
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if atomic.LoadInt32(&refreshes) != 1 || atomic.LoadInt32(&meCalls) != 2 {
		t.Errorf("refreshes = %d, me calls = %d; want 1, 2", refreshes, meCalls)
	}
}

func TestSecondUnauthorizedDoesNotRefreshAgain(t *testing.T) {
	var refreshes, meCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", refreshHandler(&refreshes))
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "nope"}) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, m := newTestClient(t, srv, domain.Tokens{AccessToken: "revoked", RefreshToken: "refresh"})
	var expired int
	c.OnSessionExpired(func() { expired++ })

	_, err := c.Me(context.Background())
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("err = %v, want 401", err)
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Error("a 401 after a successful refresh is not a session expiry")
	}
	if atomic.LoadInt32(&refreshes) != 1 || atomic.LoadInt32(&meCalls) != 2 {
		t.Errorf("refreshes = %d, me calls = %d; want 1, 2", refreshes, meCalls)
	}
	if expired != 0 {
		t.Errorf("expiry hook fired %d times", expired)
	}
	if !m.Authenticated(context.Background()) {
		t.Error("session should survive a plain 401")
	}
}

func TestRefreshFailureClearsSession(t *testing.T) {
	var refreshes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", refreshHandler(&refreshes))
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, _ *http.Request) {
		t.Error("original request must not be sent after a failed refresh")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, m := newTestClient(t, srv, domain.Tokens{
		AccessToken: "old", RefreshToken: "stolen", ExpiresAt: testNow.Add(-time.Second),
	})
	var expired int
	c.OnSessionExpired(func() { expired++ })

	_, err := c.Me(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if expired != 1 {
		t.Errorf("expiry hook fired %d times, want 1", expired)
	}
	if m.Authenticated(context.Background()) {
		t.Error("session should be cleared")
	}
	if got := Message(err); got != "Your session has expired. Please sign in again." {
		t.Errorf("Message() = %q", got)
	}
}

func TestConcurrentRequestsShareOneRefresh(t *testing.T) {
	var refreshes int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		<-release
		refreshHandler(&refreshes)(w, r)
	})
	mux.HandleFunc("/api/workflows", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("[]")) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _ := newTestClient(t, srv, domain.Tokens{
		AccessToken: "old", RefreshToken: "refresh", ExpiresAt: testNow.Add(-time.Minute),
	})

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ListWorkflows(context.Background())
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("ListWorkflows() error: %v", err)
		}
	}
	if atomic.LoadInt32(&refreshes) != 1 {
		t.Errorf("refresh calls = %d, want 1", refreshes)
	}
}

func TestAnonymousUnauthorizedSkipsRefresh(t *testing.T) {
	var refreshes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", refreshHandler(&refreshes))
	mux.HandleFunc("/api/me", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _ := newTestClient(t, srv, domain.Tokens{})
	_, err := c.Me(context.Background())
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("err = %v, want 401", err)
	}
	if atomic.LoadInt32(&refreshes) != 0 {
		t.Errorf("refresh calls = %d, want 0", refreshes)
	}
}

func TestLoginStoresSession(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": testNow.Add(90 * time.Second).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		resp TokenResponse
		want time.Time
	}{
		{"expires_in", TokenResponse{AccessToken: "opaque", ExpiresIn: 60}, testNow.Add(time.Minute)},
		{"jwt exp", TokenResponse{AccessToken: signed}, testNow.Add(90 * time.Second)},
		{"ttl fallback", TokenResponse{AccessToken: "opaque"}, testNow.Add(15 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/auth/login":
					var req LoginRequest
					json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
					if req.Email != "ada@example.com" || req.Password != "hunter22" {
						w.WriteHeader(http.StatusUnauthorized)
						return
					}
					resp := tt.resp
					resp.RefreshToken = "refresh"
					json.NewEncoder(w).Encode(resp) //nolint:errcheck
				case "/api/me":
					json.NewEncoder(w).Encode(domain.User{ID: "u1", Email: "ada@example.com"}) //nolint:errcheck
				}
			}))
			defer srv.Close()

			c, m := newTestClient(t, srv, domain.Tokens{})
			u, err := c.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "hunter22"})
			if err != nil {
				t.Fatalf("Login() error: %v", err)
			}
			if u.ID != "u1" {
				t.Errorf("user = %+v", u)
			}
			tok, _ := m.Tokens(context.Background())
			if !tok.ExpiresAt.Equal(tt.want) {
				t.Errorf("ExpiresAt = %v, want %v", tok.ExpiresAt, tt.want)
			}
			if tok.RefreshToken != "refresh" {
				t.Errorf("RefreshToken = %q", tok.RefreshToken)
			}
		})
	}
}

func TestLogoutClearsSessionOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, m := newTestClient(t, srv, domain.Tokens{AccessToken: "a", RefreshToken: "r"})
	if err := c.Logout(context.Background()); !IsStatus(err, http.StatusInternalServerError) {
		t.Errorf("Logout() = %v, want 500", err)
	}
	if m.Authenticated(context.Background()) {
		t.Error("session should be cleared")
	}
}

func TestLogoutWithExpiredTokenSkipsRefresh(t *testing.T) {
	var refreshes int32
	var revoked string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", refreshHandler(&refreshes))
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("logout should not carry the stale access token")
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		revoked = body["refresh_token"]
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, m := newTestClient(t, srv, domain.Tokens{
		AccessToken:  "stale",
		RefreshToken: "revoked-elsewhere",
		ExpiresAt:    testNow.Add(-time.Hour),
	})
	expired := 0
	c.OnSessionExpired(func() { expired++ })

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() = %v", err)
	}
	if revoked != "revoked-elsewhere" {
		t.Errorf("revoked = %q", revoked)
	}
	if n := atomic.LoadInt32(&refreshes); n != 0 || expired != 0 {
		t.Errorf("refreshes=%d expired=%d, want neither", n, expired)
	}
	if m.Authenticated(context.Background()) {
		t.Error("session should be cleared")
	}
}

func TestAPIErrorNormalization(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantFields map[string]string
	}{
		{"message", 400, `{"message":"bad input"}`, "bad input", nil},
		{"error key", 404, `{"error":"not found"}`, "not found", nil},
		{"field errors", 422, `{"message":"invalid","errors":{"name":"is required","phone":["too short","digits only"]}}`,
			"invalid", map[string]string{"name": "is required", "phone": "too short; digits only"}},
		{"fields only", 422, `{"errors":{"b":"second","a":"first"}}`, "first", map[string]string{"a": "first", "b": "second"}},
		{"plain text", 502, "upstream down", "upstream down", nil},
		{"empty", 503, "", "Service Unavailable", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body) //nolint:errcheck
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv, domain.Tokens{AccessToken: "a"})
			_, err := c.ListContactGroups(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("got %d %q, want %d %q", apiErr.StatusCode, apiErr.Message, tt.status, tt.wantMsg)
			}
			for k, v := range tt.wantFields {
				if apiErr.Errors[k] != v {
					t.Errorf("Errors[%s] = %q, want %q", k, apiErr.Errors[k], v)
				}
			}
			if Message(err) != tt.wantMsg {
				t.Errorf("Message() = %q", Message(err))
			}
		})
	}
}

func TestUploadResendsBodyAfterRefresh(t *testing.T) {
	var refreshes, uploads int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", refreshHandler(&refreshes))
	mux.HandleFunc("/api/workflows/wf1/documents", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&uploads, 1)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "script body" || hdr.Filename != "faq.txt" {
			t.Errorf("upload = %q %q", hdr.Filename, data)
		}
		if r.Header.Get("Authorization") != "Bearer new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(domain.WorkflowDocument{ID: "d1", FileName: hdr.Filename}) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, _ := newTestClient(t, srv, domain.Tokens{AccessToken: "old", RefreshToken: "refresh"})
	doc, err := c.UploadWorkflowDocument(context.Background(), "wf1", "faq.txt", strings.NewReader("script body"))
	if err != nil {
		t.Fatalf("UploadWorkflowDocument() error: %v", err)
	}
	if doc.ID != "d1" || atomic.LoadInt32(&uploads) != 2 || atomic.LoadInt32(&refreshes) != 1 {
		t.Errorf("doc = %+v uploads = %d refreshes = %d", doc, uploads, refreshes)
	}
}

func TestCallEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/calls/start":
			var req StartCallSessionRequest
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			if req.ContactGroupID != "g1" || req.WorkflowID != "w1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(domain.CallSession{SessionID: 42, TotalCalls: 3}) //nolint:errcheck
		case r.Method == http.MethodPost && r.URL.Path == "/api/calls/42/stop":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/api/calls/history":
			if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "20" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode(domain.CallHistoryPage{Page: 2, Total: 21, Records: []domain.CallRecord{{ID: "r21"}}}) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, domain.Tokens{AccessToken: "a"})
	ctx := context.Background()
	s, err := c.StartCallSession(ctx, StartCallSessionRequest{ContactGroupID: "g1", WorkflowID: "w1"})
	if err != nil || s.SessionID != 42 || s.TotalCalls != 3 {
		t.Fatalf("StartCallSession = %+v, %v", s, err)
	}
	if err := c.StopCallSession(ctx, 42); err != nil {
		t.Errorf("StopCallSession: %v", err)
	}
	p, err := c.CallHistory(ctx, 2, 20)
	if err != nil || len(p.Records) != 1 || p.Total != 21 {
		t.Errorf("CallHistory = %+v, %v", p, err)
	}
}
