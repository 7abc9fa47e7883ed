package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/mailer"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/realtime"
	"github.com/yukikurage/taskmaster/internal/repository"
	"github.com/yukikurage/taskmaster/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T, apiKey string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(&models.Identity{}, &models.Profile{}, &models.Task{}))

	log := logging.Discard()
	broker := realtime.NewHub()
	t.Cleanup(func() { broker.Close() })

	auth := services.NewAuthService(
		repository.NewIdentityRepository(db),
		services.NewConfirmationTokens("secret", time.Hour),
		mailer.NewLogMailer(log),
		services.AuthConfig{BaseURL: "http://localhost:8080"},
		log,
	)

	return NewRouter(Dependencies{
		Log:                 log,
		SessionStore:        cookie.NewStore([]byte("secret")),
		Broker:              broker,
		AuthService:         auth,
		TaskService:         services.NewTaskService(repository.NewTaskRepository(db), broker, nil, log),
		ProfileService:      services.NewProfileService(repository.NewProfileRepository(db), nil, log),
		APIKey:              apiKey,
		SignupRedirectDelay: 2 * time.Second,
	})
}

func TestNewRouter_Health(t *testing.T) {
	r := newTestRouter(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouter_APIKeyGuardsAPI(t *testing.T) {
	r := newTestRouter(t, "anon-key")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set(constants.APIKeyHeader, "anon-key")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Confirmation links are opened from email clients without the key.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/confirm-email", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid confirmation link")
}

func TestNewRouter_DashboardRedirectsBrowsers(t *testing.T) {
	r := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}
