package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
)

func TestAuthHandler_Signup_ConfirmationPending(t *testing.T) {
	env := setupTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":     "new@example.com",
		"password":  "supersecret",
		"full_name": "New User",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[dto.SignupResponse](t, w)
	assert.True(t, resp.ConfirmationPending)
	assert.Equal(t, "new@example.com", resp.Email)
	assert.Nil(t, resp.User)
	assert.Len(t, env.mail.sent, 1)
}

func TestAuthHandler_Signup_AutoConfirmed(t *testing.T) {
	env := setupTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    "auto@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[dto.SignupResponse](t, w)
	assert.False(t, resp.ConfirmationPending)
	require.NotNil(t, resp.User)
	assert.Equal(t, "auto@example.com", resp.User.Email)
	assert.Equal(t, int64(2000), resp.RedirectDelayMS)
	assert.Empty(t, env.mail.sent)
}

func TestAuthHandler_Signup_Errors(t *testing.T) {
	env := setupTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": "x@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": "x@example.com", "password": "123456"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": "x@example.com", "password": "123456"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupTestEnv(t, false)
	cookie := env.signIn(t, "existing@example.com")

	w := env.do(t, http.MethodGet, "/api/auth/session", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[dto.SessionResponse](t, w)
	require.NotNil(t, session.User)
	assert.Equal(t, "existing@example.com", session.User.Email)

	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "existing@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidCredentials, decode[apierrors.APIError](t, w).Code)
}

func TestAuthHandler_Login_UnconfirmedEmail(t *testing.T) {
	env := setupTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": "wait@example.com", "password": "supersecret"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "wait@example.com", "password": "supersecret"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apierrors.ErrCodeEmailNotConfirmed, decode[apierrors.APIError](t, w).Code)

	w = env.do(t, http.MethodGet, "/confirm-email?"+env.mail.lastLinkQuery(t), nil)
	require.Equal(t, http.StatusOK, w.Code)
	confirmed := decode[dto.ConfirmResponse](t, w)
	assert.Equal(t, "/login", confirmed.Redirect)
	assert.Equal(t, int64(3000), confirmed.DelayMS)

	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "wait@example.com", "password": "supersecret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_ConfirmEmail_InvalidLink(t *testing.T) {
	env := setupTestEnv(t, true)

	for _, path := range []string{
		"/confirm-email",
		"/confirm-email?token_hash=abc",
		"/confirm-email?type=signup",
		"/confirm-email?token_hash=abc&type=recovery",
		"/confirm-email?token_hash=abc&type=signup",
	} {
		w := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "Invalid confirmation link", decode[apierrors.APIError](t, w).Message, path)
	}
}

func TestAuthHandler_SessionSignedOut(t *testing.T) {
	env := setupTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupTestEnv(t, false)
	cookie := env.signIn(t, "leaving@example.com")

	w := env.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookie.Name {
			cleared = c
		}
	}
	require.NotNil(t, cleared)

	w = env.do(t, http.MethodGet, "/", nil, cleared)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Refresh(t *testing.T) {
	env := setupTestEnv(t, false)
	cookie := env.signIn(t, "fresh@example.com")

	w := env.do(t, http.MethodPost, "/api/auth/refresh", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fresh@example.com", decode[dto.UserDTO](t, w).Email)
	assert.NotEmpty(t, w.Result().Cookies())

	w = env.do(t, http.MethodPost, "/api/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ResendConfirmation(t *testing.T) {
	env := setupTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{"email": "again@example.com", "password": "supersecret"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/resend", map[string]string{"email": "again@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.mail.sent, 2)

	w = env.do(t, http.MethodPost, "/api/auth/resend", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboard(t *testing.T) {
	env := setupTestEnv(t, false)

	req := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, req.Code)

	cookie := env.signIn(t, "home@example.com")
	w := env.do(t, http.MethodPost, "/api/tasks", map[string]string{"title": "one"}, cookie)
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/api/tasks", map[string]string{"title": "two"}, cookie)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[dto.TaskDTO](t, w).ID
	w = env.do(t, http.MethodPost, "/api/tasks/"+id+"/toggle", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.DashboardResponse](t, w)
	assert.Equal(t, "home@example.com", resp.User.Email)
	assert.Equal(t, int64(1), resp.PendingTasks)
}
