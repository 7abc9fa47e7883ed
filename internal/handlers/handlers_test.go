package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/mailer"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/realtime"
	"github.com/yukikurage/taskmaster/internal/repository"
	"github.com/yukikurage/taskmaster/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

// lastLinkQuery returns the query string of the confirmation link in the
// most recent message.
func (o *outbox) lastLinkQuery(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)

	text := strings.TrimSpace(o.sent[len(o.sent)-1].Text)
	u, err := url.Parse(text[strings.LastIndex(text, "\n")+1:])
	require.NoError(t, err)
	return u.RawQuery
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *fakeStore) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeStore) PublicURL(key string) string { return "http://objects.test/avatars/" + key }

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	auth   *services.AuthService
	mail   *outbox
	store  *fakeStore
}

func setupTestEnv(t *testing.T, requireConfirmation bool) *testEnv {
	t.Helper()
	return setupTestEnvWithBroker(t, requireConfirmation, realtime.NewHub())
}

func setupTestEnvWithBroker(t *testing.T, requireConfirmation bool, broker realtime.Broker) *testEnv {
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
	mail := &outbox{}
	store := &fakeStore{objects: make(map[string][]byte)}
	t.Cleanup(func() { broker.Close() })

	auth := services.NewAuthService(
		repository.NewIdentityRepository(db),
		services.NewConfirmationTokens("test-secret", time.Hour),
		mail,
		services.AuthConfig{BaseURL: "http://localhost:8080", RequireEmailConfirmation: requireConfirmation},
		log,
	)
	profiles := services.NewProfileService(repository.NewProfileRepository(db), store, log)
	auth.OnAuthStateChange(profiles.HandleAuthEvent)
	tasks := services.NewTaskService(repository.NewTaskRepository(db), broker, nil, log)

	authHandler := NewAuthHandler(auth, 2*time.Second, log)
	taskHandler := NewTaskHandler(tasks, broker, log)
	profileHandler := NewProfileHandler(profiles, log)
	dashboardHandler := NewDashboardHandler(auth, tasks)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.GET("/", middleware.RequireAuth(), dashboardHandler.Show)
	r.GET("/confirm-email", authHandler.ConfirmEmail)
	r.POST("/api/auth/signup", authHandler.Signup)
	r.POST("/api/auth/login", authHandler.Login)
	r.POST("/api/auth/logout", authHandler.Logout)
	r.POST("/api/auth/resend", authHandler.ResendConfirmation)
	r.POST("/api/auth/refresh", middleware.RequireAuth(), authHandler.Refresh)
	r.GET("/api/auth/session", authHandler.GetSession)

	tasksGroup := r.Group("/api/tasks", middleware.RequireAuth())
	tasksGroup.GET("", taskHandler.ListTasks)
	tasksGroup.GET("/stream", taskHandler.StreamTasks)
	tasksGroup.POST("", taskHandler.CreateTask)
	tasksGroup.POST("/suggest", taskHandler.SuggestTasks)
	tasksGroup.PATCH("/:id", middleware.RequireTaskID(), taskHandler.UpdateTask)
	tasksGroup.POST("/:id/toggle", middleware.RequireTaskID(), taskHandler.ToggleTask)
	tasksGroup.DELETE("/:id", middleware.RequireTaskID(), taskHandler.DeleteTask)

	profileGroup := r.Group("/api/profile", middleware.RequireAuth())
	profileGroup.GET("", profileHandler.GetProfile)
	profileGroup.PUT("", profileHandler.UpdateProfile)
	profileGroup.POST("/avatar", profileHandler.UploadAvatar)

	return &testEnv{db: db, router: r, auth: auth, mail: mail, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, payload interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signIn creates a confirmed identity and returns its session cookie.
func (e *testEnv) signIn(t *testing.T, email string) *http.Cookie {
	t.Helper()
	ctx := context.Background()

	if _, err := e.auth.Signup(ctx, services.SignupInput{Email: email, Password: "supersecret"}); err != nil {
		require.ErrorIs(t, err, services.ErrEmailTaken)
	}

	w := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "supersecret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, c := range w.Result().Cookies() {
		if c.Name == constants.SessionCookieName {
			return c
		}
	}
	t.Fatal("expected session cookie to be set")
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
