package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/msomdec/spacebook/internal/domain"
	"github.com/msomdec/spacebook/internal/handler"
	"github.com/msomdec/spacebook/internal/identity"
	"github.com/msomdec/spacebook/internal/liked"
	"github.com/msomdec/spacebook/internal/repository/sqlite"
	"github.com/msomdec/spacebook/internal/service"
	"github.com/msomdec/spacebook/internal/session"
)

const testJWTSecret = "test-secret-for-handler-tests-000"

type codeMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *codeMailer) SendCode(_ context.Context, email string, _ domain.CodePurpose, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[email] = code
	return nil
}

func (m *codeMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type testApp struct {
	srv    *httptest.Server
	auth   *service.AuthService
	store  *session.Store
	liked  *liked.Store
	hub    *handler.Hub
	mailer *codeMailer
}

func newTestApp(t *testing.T, confirm bool) *testApp {
	t.Helper()
	app := newUnstartedApp(t, confirm)
	if err := app.auth.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return app
}

// newUnstartedApp wires everything but leaves the session store unhydrated.
func newUnstartedApp(t *testing.T, confirm bool) *testApp {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mailer := &codeMailer{}
	idp := identity.NewService(db.Accounts(), db.OneTimeCodes(), db.Revocations(), mailer, identity.Config{
		JWTSecret:                testJWTSecret,
		BcryptCost:               4,
		RequireEmailConfirmation: confirm,
	})
	store := session.New(db.Storage())
	likes := liked.New()
	hub := handler.NewHub()
	auth := service.NewAuthService(idp, db.Profiles(), store, hub, nil, likes)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, auth, store, likes, hub)
	srv := httptest.NewServer(handler.SecurityHeaders(mux))
	t.Cleanup(srv.Close)

	return &testApp{srv: srv, auth: auth, store: store, liked: likes, hub: hub, mailer: mailer}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func registerBody(email string) map[string]string {
	return map[string]string{
		"firstName":   "Jane",
		"lastName":    "Doe",
		"email":       email,
		"dateOfBirth": "2000-01-01",
		"phoneNumber": "+15550100",
	}
}
