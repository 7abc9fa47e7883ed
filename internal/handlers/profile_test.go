package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
)

// jpegBytes starts with a JFIF header, enough for content sniffing.
func jpegBytes() []byte {
	return append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), make([]byte, 32)...)
}

func multipartRequest(t *testing.T, field, filename string, content []byte, cookie *http.Cookie) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	return req
}

func TestProfileHandler_ProvisionedOnLogin(t *testing.T) {
	env := setupTestEnv(t, false)
	cookie := env.signIn(t, "pat.doe@example.com")

	w := env.do(t, http.MethodGet, "/api/profile", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	profile := decode[dto.ProfileDTO](t, w)
	assert.Equal(t, "pat.doe", profile.Username)
	assert.Equal(t, "pat.doe", profile.FullName)
	assert.Empty(t, profile.AvatarURL)
}

func TestProfileHandler_Update(t *testing.T) {
	env := setupTestEnv(t, false)
	cookie := env.signIn(t, "sam@example.com")

	before := decode[dto.ProfileDTO](t, env.do(t, http.MethodGet, "/api/profile", nil, cookie))

	w := env.do(t, http.MethodPut, "/api/profile", map[string]string{"username": "sammy", "full_name": "Sam Smith"}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	profile := decode[dto.ProfileDTO](t, w)
	assert.Equal(t, "sammy", profile.Username)
	assert.Equal(t, "Sam Smith", profile.FullName)
	assert.False(t, profile.UpdatedAt.Before(before.UpdatedAt))
}

func TestProfileHandler_UploadAvatar(t *testing.T) {
	env := setupTestEnv(t, false)
	cookie := env.signIn(t, "pic@example.com")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, multipartRequest(t, "avatar", "face.jpeg", jpegBytes(), cookie))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	profile := decode[dto.ProfileDTO](t, w)
	assert.True(t, strings.HasPrefix(profile.AvatarURL, "http://objects.test/avatars/"+profile.ID+"-"))
	assert.True(t, strings.HasSuffix(profile.AvatarURL, ".jpeg"))
	assert.Len(t, env.store.objects, 1)
}

func TestProfileHandler_UploadAvatar_NoFile(t *testing.T) {
	env := setupTestEnv(t, false)
	cookie := env.signIn(t, "nofile@example.com")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, multipartRequest(t, "", "", nil, cookie))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You must select an image to upload.", decode[apierrors.APIError](t, w).Message)
	assert.Empty(t, env.store.objects)
}
