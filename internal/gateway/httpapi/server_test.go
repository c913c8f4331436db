package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Xausdorf/presentation-poll/internal/domain"
	"github.com/Xausdorf/presentation-poll/internal/gateway/clock"
	"github.com/Xausdorf/presentation-poll/internal/store"
	"github.com/Xausdorf/presentation-poll/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	session := usecase.NewSession(store.New())
	if err := session.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	cfg := Config{Addr: ":0", JWTSecret: testSecret, TokenTTL: time.Hour}
	return NewServer(cfg, session, clock.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *Server) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *Server) newIdentity(t *testing.T) identityResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/identity", "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /identity = %d", rec.Code)
	}
	var res identityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res
}

func TestIdentityToken(t *testing.T) {
	s := newTestServer(t)
	id := s.newIdentity(t)
	if id.Identity == "" || id.Token == "" {
		t.Fatalf("empty identity response %+v", id)
	}

	subject, err := parseToken(testSecret, id.Token)
	if err != nil || subject != id.Identity {
		t.Errorf("parseToken() = %q, %v, want %q", subject, err, id.Identity)
	}
	if _, err = parseToken("other-secret", id.Token); err == nil {
		t.Error("token accepted with a wrong secret")
	}

	other := s.newIdentity(t)
	if other.Identity == id.Identity {
		t.Error("identities must be unique")
	}
}

func TestParseTokenRejectsOtherMethods(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = parseToken(testSecret, raw); err == nil {
		t.Error("unsigned token accepted")
	}
}

func TestReducerAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{name: "missing token", token: "", want: http.StatusUnauthorized},
		{name: "garbage token", token: "not-a-jwt", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/reducers/end_session", tt.token, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestPresentationOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.newIdentity(t).Token
	user := s.newIdentity(t).Token

	steps := []struct {
		name  string
		token string
		path  string
		body  string
		want  int
	}{
		{name: "init is host only", token: admin, path: "/reducers/init", want: http.StatusNotFound},
		{name: "vote before join", token: user, path: "/reducers/submit_vote", body: `{"poll_id":1,"option_id":1}`, want: http.StatusUnauthorized},
		{name: "bad role", token: admin, path: "/reducers/join_session", body: `{"session_id":"s","role":"root"}`, want: http.StatusBadRequest},
		{name: "malformed body", token: admin, path: "/reducers/join_session", body: `{"session_id":`, want: http.StatusBadRequest},
		{name: "admin joins", token: admin, path: "/reducers/join_session", body: `{"session_id":"s","role":"admin"}`, want: http.StatusNoContent},
		{name: "user joins", token: user, path: "/reducers/join_session", body: `{"session_id":"s","role":"user"}`, want: http.StatusNoContent},
		{name: "user cannot create", token: user, path: "/reducers/create_poll", body: `{"question":"q","options":["a"]}`, want: http.StatusForbidden},
		{name: "create", token: admin, path: "/reducers/create_poll", body: `{"question":"Best color?","options":["Red","Blue"]}`, want: http.StatusOK},
		{name: "results before voting", token: admin, path: "/reducers/show_results", want: http.StatusNoContent},
		{name: "inactive poll", token: user, path: "/reducers/submit_vote", body: `{"poll_id":1,"option_id":1}`, want: http.StatusConflict},
		{name: "activate unknown", token: admin, path: "/reducers/activate_poll", body: `{"poll_id":9}`, want: http.StatusNotFound},
		{name: "activate", token: admin, path: "/reducers/activate_poll", body: `{"poll_id":1}`, want: http.StatusNoContent},
		{name: "vote", token: user, path: "/reducers/submit_vote", body: `{"poll_id":1,"option_id":1}`, want: http.StatusOK},
		{name: "change vote", token: user, path: "/reducers/submit_vote", body: `{"poll_id":1,"option_id":2}`, want: http.StatusOK},
		{name: "unknown option", token: user, path: "/reducers/submit_vote", body: `{"poll_id":1,"option_id":3}`, want: http.StatusNotFound},
		{name: "show results", token: admin, path: "/reducers/show_results", want: http.StatusNoContent},
		{name: "end", token: admin, path: "/reducers/end_session", want: http.StatusNoContent},
		{name: "end twice", token: admin, path: "/reducers/end_session", want: http.StatusNoContent},
		{name: "results after end", token: admin, path: "/reducers/show_results", want: http.StatusConflict},
	}
	for _, st := range steps {
		rec := s.do(t, http.MethodPost, st.path, st.token, st.body)
		if rec.Code != st.want {
			t.Fatalf("%s: status = %d, want %d (body %s)", st.name, rec.Code, st.want, rec.Body.String())
		}
	}

	rec := s.do(t, http.MethodGet, "/polls/1/results", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET results = %d", rec.Code)
	}
	var res domain.PollResults
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Options[1].Votes != 1 || res.Options[0].Votes != 0 {
		t.Errorf("unexpected results %+v", res)
	}

	rec = s.do(t, http.MethodGet, "/state", "", "")
	var state domain.PresentationState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.Stage != domain.StageEnded || state.CurrentPollID != 1 {
		t.Errorf("state = %+v", state)
	}

	rec = s.do(t, http.MethodGet, "/tables", "", "")
	var tables domain.Tables
	if err := json.Unmarshal(rec.Body.Bytes(), &tables); err != nil {
		t.Fatal(err)
	}
	if len(tables.Users) != 2 || len(tables.Votes) != 1 || len(tables.Options) != 2 {
		t.Errorf("tables = %+v", tables)
	}
	for _, p := range tables.Polls {
		if p.IsActive {
			t.Errorf("poll %d still active after end", p.ID)
		}
	}
}

func TestReadRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{path: "/healthz", want: http.StatusOK},
		{path: "/state", want: http.StatusOK},
		{path: "/polls/abc/results", want: http.StatusBadRequest},
		{path: "/polls/5/results", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if rec := s.do(t, http.MethodGet, tt.path, "", ""); rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: usecase.ErrInvalidArgument, want: http.StatusBadRequest},
		{err: usecase.ErrUserNotFound, want: http.StatusUnauthorized},
		{err: fmt.Errorf("%w: admin role required", usecase.ErrForbidden), want: http.StatusForbidden},
		{err: usecase.ErrPresentationNotFound, want: http.StatusNotFound},
		{err: usecase.ErrSessionEnded, want: http.StatusConflict},
		{err: usecase.ErrAlreadyInitialized, want: http.StatusConflict},
		{err: fmt.Errorf("could not insert poll: %w", usecase.ErrDuplicateKey), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err != ErrSecretNotSet {
		t.Errorf("LoadConfig() error = %v, want %v", err, ErrSecretNotSet)
	}

	t.Setenv("HTTP_ADDR", "")
	cfg, err := LoadConfig()
	if err != nil || cfg.Enabled() {
		t.Errorf("LoadConfig() = %+v, %v", cfg, err)
	}
}
