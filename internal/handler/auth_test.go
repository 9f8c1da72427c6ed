package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gearguard/backend/internal/config"
	"github.com/gearguard/backend/internal/domain"
	"github.com/gearguard/backend/internal/repository"
	"github.com/gearguard/backend/internal/token"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	nextID    int64
	users     map[int64]*domain.User
	createErr error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]*domain.User)}
}

func (m *memStore) CreateUser(user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.DateJoined = time.Now()
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memStore) GetUserByEmailOrUsername(identifier string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == identifier || user.Username == identifier {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) GetUserByID(id int64) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (m *memStore) TouchLastLogin(id int64) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now()
	user.LastLogin = &now
	return nil
}

func (m *memStore) CheckEmailIfExists(email string) (bool, error) {
	for _, user := range m.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type memSessions struct {
	sessions map[string]int64
	counter  int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]int64)}
}

func (m *memSessions) Create(_ context.Context, userID int64) (string, error) {
	m.counter++
	sid := fmt.Sprintf("sid-%d", m.counter)
	m.sessions[sid] = userID
	return sid, nil
}

func (m *memSessions) UserID(_ context.Context, sid string) (int64, error) {
	userID, ok := m.sessions[sid]
	if !ok {
		return 0, errors.New("session not found")
	}
	return userID, nil
}

func (m *memSessions) Delete(_ context.Context, sid string) error {
	delete(m.sessions, sid)
	return nil
}

type memPublisher struct {
	published []amqp.Publishing
}

func (m *memPublisher) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	m.published = append(m.published, msg)
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *memStore, *memSessions, *memPublisher) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Session.CookieName = "__gearguard_session"
	cfg.Session.Expiration = 3600
	cfg.Redis.OperationExpiration = 1
	cfg.RabbitMQ.PublishTimeout = 1

	store := newMemStore()
	sessions := newMemSessions()
	publisher := &memPublisher{}
	tokens := token.NewIssuer("test-secret", 15*time.Minute, 24*time.Hour)

	h, err := NewHandler(cfg, store, tokens, sessions, publisher)
	require.NoError(t, err)
	h.RegisterRoutes()

	return h, store, sessions, publisher
}

func doRequest(t *testing.T, h *Handler, method, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if mutate != nil {
		mutate(req)
	}

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func signup(t *testing.T, h *Handler, fields map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, h, http.MethodPost, "/auth/signup", fields, nil)
}

func TestSignup_Success(t *testing.T) {
	h, store, _, publisher := newTestHandler(t)

	rec := signup(t, h, map[string]any{
		"email":      "a@x.com",
		"password":   "secret123",
		"first_name": "A",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "User created successfully", body["message"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "a@x.com", user["username"])
	assert.Equal(t, "A", user["first_name"])

	require.Len(t, store.users, 1)
	stored := store.users[1]
	assert.Equal(t, stored.Email, stored.Username)
	assert.True(t, stored.IsActive)
	assert.NotEqual(t, "secret123", stored.PasswordHash)

	require.Len(t, publisher.published, 1)
	var mailMessage domain.MailMessage
	require.NoError(t, json.Unmarshal(publisher.published[0].Body, &mailMessage))
	assert.Equal(t, "welcome", mailMessage.Type)
	assert.Equal(t, "a@x.com", mailMessage.To)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	h, store, _, _ := newTestHandler(t)

	rec := signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = signup(t, h, map[string]any{"email": "a@x.com", "password": "other456"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Validation failed", body["error"])
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "email")

	assert.Len(t, store.users, 1)
}

func TestSignup_MissingFields(t *testing.T) {
	h, store, _, _ := newTestHandler(t)

	rec := signup(t, h, map[string]any{"first_name": "A"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Validation failed", body["error"])
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")

	assert.Empty(t, store.users)
}

func TestSignup_InvalidGender(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	rec := signup(t, h, map[string]any{
		"email":    "a@x.com",
		"password": "secret123",
		"gender":   "unknown",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	details := decodeBody(t, rec)["details"].(map[string]any)
	assert.Contains(t, details, "gender")
}

func TestSignup_StoreFailureLeaksDetails(t *testing.T) {
	h, store, _, _ := newTestHandler(t)
	store.createErr = errors.New("pq: connection reset by peer")

	rec := signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Internal server error during signup", body["error"])
	assert.Equal(t, "pq: connection reset by peer", body["details"])
}

func TestLogin_Success(t *testing.T) {
	h, store, sessions, _ := newTestHandler(t)

	rec := signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/auth/login", map[string]any{
		"email":    "a@x.com",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Login successful", body["message"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "a@x.com", user["username"])

	tokens := body["tokens"].(map[string]any)
	assert.NotEmpty(t, tokens["access"])
	assert.NotEmpty(t, tokens["refresh"])

	require.Len(t, sessions.sessions, 1)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "__gearguard_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	assert.NotNil(t, store.users[1].LastLogin)
}

func TestLogin_ByUsername(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})

	rec := doRequest(t, h, http.MethodPost, "/auth/login", map[string]any{
		"username": "a@x.com",
		"password": "secret123",
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_PrefersEmailOverUsername(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})
	signup(t, h, map[string]any{"email": "b@x.com", "password": "other456"})

	rec := doRequest(t, h, http.MethodPost, "/auth/login", map[string]any{
		"email":    "a@x.com",
		"username": "b@x.com",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
}

func TestLogin_MissingCredentials(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	for _, body := range []map[string]any{
		{},
		{"email": "a@x.com"},
		{"password": "secret123"},
	} {
		rec := doRequest(t, h, http.MethodPost, "/auth/login", body, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Please provide email/username and password.", decodeBody(t, rec)["error"])
	}
}

func TestLogin_BadCredentialsAreIndistinguishable(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})

	wrongPassword := doRequest(t, h, http.MethodPost, "/auth/login", map[string]any{
		"email":    "a@x.com",
		"password": "wrong",
	}, nil)
	unknownUser := doRequest(t, h, http.MethodPost, "/auth/login", map[string]any{
		"email":    "nobody@x.com",
		"password": "secret123",
	}, nil)

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Equal(t, "Invalid email/username or password", decodeBody(t, wrongPassword)["error"])
}

func TestLogin_InactiveUser(t *testing.T) {
	h, store, _, _ := newTestHandler(t)

	signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})
	store.users[1].IsActive = false

	rec := doRequest(t, h, http.MethodPost, "/auth/login", map[string]any{
		"email":    "a@x.com",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email/username or password", decodeBody(t, rec)["error"])
}

func TestLogout_WithoutSession(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful", decodeBody(t, rec)["message"])
}

func TestLogout_ClearsSession(t *testing.T) {
	h, _, sessions, _ := newTestHandler(t)

	signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})
	login := doRequest(t, h, http.MethodPost, "/auth/login", map[string]any{
		"email":    "a@x.com",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	require.Len(t, sessions.sessions, 1)

	cookie := login.Result().Cookies()[0]
	rec := doRequest(t, h, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sessions.sessions)
}

func TestProfile_Unauthenticated(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/auth/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile_WithAccessToken(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})
	login := doRequest(t, h, http.MethodPost, "/auth/login", map[string]any{
		"email":    "a@x.com",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)

	access := decodeBody(t, login)["tokens"].(map[string]any)["access"].(string)

	rec := doRequest(t, h, http.MethodGet, "/auth/profile", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "a@x.com", body["username"])
	// intentionally minimal contract: nothing but id and username
	assert.Len(t, body, 2)
}

func TestProfile_WithSessionCookie(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	signup(t, h, map[string]any{"email": "a@x.com", "password": "secret123"})
	login := doRequest(t, h, http.MethodPost, "/auth/login", map[string]any{
		"email":    "a@x.com",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)

	cookie := login.Result().Cookies()[0]
	rec := doRequest(t, h, http.MethodGet, "/auth/profile", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfile_GarbageToken(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/auth/profile", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not.a.jwt")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
