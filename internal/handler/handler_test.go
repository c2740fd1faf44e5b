package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/config"
	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/internal/handler/middleware"
	"github.com/ege-manyasli/manyasligida/internal/repository"
	"github.com/ege-manyasli/manyasligida/internal/service"
	"github.com/ege-manyasli/manyasligida/pkg/cartstore"
	"github.com/ege-manyasli/manyasligida/pkg/jwt"
	"github.com/ege-manyasli/manyasligida/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCookies = Cookies{
	Session:    "session_token",
	SessionTTL: 2 * time.Hour,
	Remember:   "remember_me",
	Visitor:    "visitor_id",
	VisitorTTL: time.Hour,
}

type memCartStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (s *memCartStore) Load(_ context.Context, visitor string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[visitor]
	if !ok {
		return nil, cartstore.ErrEmpty
	}
	return blob, nil
}

func (s *memCartStore) Update(_ context.Context, visitor string, fn func([]byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.blobs[visitor])
	if err != nil {
		return err
	}
	if next == nil {
		delete(s.blobs, visitor)
		return nil
	}
	s.blobs[visitor] = next
	return nil
}

func (s *memCartStore) Delete(_ context.Context, visitor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, visitor)
	return nil
}

// emptySessions never finds anything.
type emptySessions struct{}

func (emptySessions) Create(context.Context, *domain.Session) error { return nil }
func (emptySessions) GetByTokenHash(context.Context, string) (*domain.Session, error) {
	return nil, repository.ErrNotFound
}
func (emptySessions) ListActiveByUser(context.Context, int64, time.Time) ([]*domain.Session, error) {
	return nil, nil
}
func (emptySessions) Touch(context.Context, uuid.UUID, time.Time) error { return repository.ErrNotFound }
func (emptySessions) Extend(context.Context, uuid.UUID, time.Time, time.Time) error {
	return repository.ErrNotFound
}
func (emptySessions) Deactivate(context.Context, uuid.UUID) error { return nil }
func (emptySessions) DeactivateOthers(context.Context, int64, string) (int64, error) {
	return 0, nil
}
func (emptySessions) DeactivateExpired(context.Context, time.Time) (int64, error) { return 0, nil }

// memSessions is a minimal stateful session table.
type memSessions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Session
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[uuid.UUID]*domain.Session{}}
}

func (s *memSessions) Create(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.rows[session.ID] = &cp
	return nil
}

func (s *memSessions) GetByTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.TokenHash == hash {
			cp := *row
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memSessions) ListActiveByUser(_ context.Context, userID int64, now time.Time) ([]*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Session
	for _, row := range s.rows {
		if row.UserID == userID && row.IsActive && !row.IsExpired(now) {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memSessions) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || !row.IsActive {
		return repository.ErrNotFound
	}
	row.LastActivityAt = at
	return nil
}

func (s *memSessions) Extend(_ context.Context, id uuid.UUID, at, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || !row.IsActive {
		return repository.ErrNotFound
	}
	row.LastActivityAt = at
	row.ExpiresAt = expiresAt
	return nil
}

func (s *memSessions) Deactivate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[id]; ok {
		row.IsActive = false
	}
	return nil
}

func (s *memSessions) DeactivateOthers(_ context.Context, userID int64, exceptHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, row := range s.rows {
		if row.UserID == userID && row.IsActive && row.TokenHash != exceptHash {
			row.IsActive = false
			n++
		}
	}
	return n, nil
}

func (s *memSessions) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// activeUser serves a single active account.
type activeUser struct{ user *domain.User }

func (u activeUser) Create(context.Context, *domain.User) error { return nil }
func (u activeUser) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if id != u.user.ID {
		return nil, repository.ErrNotFound
	}
	cp := *u.user
	return &cp, nil
}
func (u activeUser) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (u activeUser) GetActiveByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}
func (u activeUser) UpdatePassword(context.Context, int64, string) error { return nil }
func (u activeUser) ConfirmEmail(context.Context, int64) error { return nil }
func (u activeUser) UpdateLastLogin(context.Context, int64, time.Time) error { return nil }

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrInvalidInput, fiber.StatusBadRequest},
		{fmt.Errorf("%w: email is required", service.ErrValidation), fiber.StatusBadRequest},
		{service.ErrCodeInvalidOrExpired, fiber.StatusBadRequest},
		{service.ErrInvalidQuantity, fiber.StatusBadRequest},
		{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{service.ErrSessionNotFound, fiber.StatusUnauthorized},
		{service.ErrEmailNotConfirmed, fiber.StatusForbidden},
		{service.ErrUserNotFound, fiber.StatusNotFound},
		{service.ErrItemNotFound, fiber.StatusNotFound},
		{service.ErrEmailTaken, fiber.StatusConflict},
		{service.ErrCartFull, fiber.StatusConflict},
		{fmt.Errorf("%w: dial tcp", service.ErrStoreUnavailable), fiber.StatusServiceUnavailable},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		app := fiber.New()
		err := tt.err
		app.Get("/", func(c *fiber.Ctx) error { return writeError(c, err) })

		resp, reqErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, reqErr)
		assert.Equal(t, tt.status, resp.StatusCode, tt.err.Error())
	}
}

func TestWriteError_HidesStoreDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return writeError(c, fmt.Errorf("%w: password=hunter2 host=db", service.ErrStoreUnavailable))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body := decode(t, resp)
	assert.NotContains(t, body["error"], "hunter2")
}

func newCartApp() *fiber.App {
	app := fiber.New()
	h := NewCartHandler(service.NewCartService(&memCartStore{blobs: map[string][]byte{}}, 4), validator.NewValidator(), testCookies)
	app.Get("/cart", h.Get)
	app.Post("/cart/items", h.AddItem)
	app.Put("/cart/items/:productId", h.UpdateQuantity)
	app.Delete("/cart", h.Clear)
	return app
}

func TestCartRoutes(t *testing.T) {
	app := newCartApp()

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":7,"quantity":2,"unit_price":1000}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var visitor *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == testCookies.Visitor {
			visitor = ck
		}
	}
	require.NotNil(t, visitor, "visitor cookie must be minted")

	body := decode(t, resp)
	assert.EqualValues(t, 2, body["count"])
	assert.EqualValues(t, 2000, body["total"])

	req = httptest.NewRequest(http.MethodPut, "/cart/items/7", strings.NewReader(`{"quantity":0}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: visitor.Name, Value: visitor.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body = decode(t, resp)
	assert.EqualValues(t, 0, body["count"])
	assert.EqualValues(t, 0, body["total"])
	assert.Empty(t, body["lines"])
}

func TestCartRoutes_Errors(t *testing.T) {
	app := newCartApp()

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":7,"quantity":0,"unit_price":1000}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":7,"quantity":1000,"unit_price":1000}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPut, "/cart/items/99", strings.NewReader(`{"quantity":3}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPut, "/cart/items/abc", strings.NewReader(`{"quantity":3}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSessionMiddleware_RejectsWithoutSession(t *testing.T) {
	sessions := service.NewSessionManager(emptySessions{}, nil, nil, &config.SessionConfig{TTL: time.Hour})

	app := fiber.New()
	app.Get("/me", middleware.SessionMiddleware(sessions, middleware.SessionCookies{
		Session:  testCookies.Session,
		Remember: testCookies.Remember,
	}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-session")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookies.Remember, Value: "ignored-without-fallback"})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionMiddleware_RememberMeOnlyWithoutToken(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: 11, Email: "alice@example.com", IsActive: true}
	rows := newMemSessions()

	remember, err := jwt.NewAssertionService("test-secret", 24*time.Hour, "storefront")
	require.NoError(t, err)
	sessions := service.NewSessionManager(rows, activeUser{user}, remember, &config.SessionConfig{
		TTL:               time.Hour,
		AssertionFallback: true,
	})

	assertion, _, err := remember.Issue(user)
	require.NoError(t, err)

	// Device A logs in, then a login on device B logs A out.
	deviceA, _, err := sessions.CreateSession(ctx, user, domain.ClientMeta{})
	require.NoError(t, err)
	_, err = sessions.ForceLogoutOtherSessions(ctx, user.ID, "")
	require.NoError(t, err)
	_, _, err = sessions.CreateSession(ctx, user, domain.ClientMeta{})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/me", middleware.SessionMiddleware(sessions, middleware.SessionCookies{
		Session:  testCookies.Session,
		Remember: testCookies.Remember,
	}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookies.Session, Value: deviceA})
	req.AddCookie(&http.Cookie{Name: testCookies.Remember, Value: assertion})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	active, err := sessions.ListActiveSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1, "a logged-out device must not come back")

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookies.Remember, Value: assertion})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	issued := false
	for _, ck := range resp.Cookies() {
		if ck.Name == testCookies.Session && ck.Value != "" {
			issued = true
		}
	}
	assert.True(t, issued, "recreated session must be handed back as a cookie")
}

func TestEmailRequests_TrimBeforeValidation(t *testing.T) {
	v := validator.NewValidator()

	verify := VerifyEmailRequest{Email: "  alice@example.com\t", Code: " 123456 "}
	verify.normalize()
	require.NoError(t, v.Validate(verify))
	assert.Equal(t, "alice@example.com", verify.Email)
	assert.Equal(t, "123456", verify.Code)

	resend := ResendCodeRequest{Email: " alice@example.com "}
	resend.normalize()
	require.NoError(t, v.Validate(resend))

	app := fiber.New()
	h := NewAuthHandler(nil, v, testCookies)
	app.Post("/resend", h.ResendCode)

	req := httptest.NewRequest(http.MethodPost, "/resend", strings.NewReader(`{"email":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthHandler(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	app := fiber.New()
	h := NewHealthHandler(ok, down)
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	body := decode(t, resp)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "unavailable", checks["cache"])
}
