package utils

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskmaster/internal/constants"
)

func TestAvatarObjectKey(t *testing.T) {
	key, err := AvatarObjectKey("user-1", "me.PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "user-1-"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	other, err := AvatarObjectKey("user-1", "me.PNG")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	bare, err := AvatarObjectKey("user-1", "avatar")
	require.NoError(t, err)
	assert.NotContains(t, bare, ".")
}

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		query string
		want  PaginationParams
	}{
		{"unpaginated", "", PaginationParams{Page: 1}},
		{"explicit", "page=3&limit=10", PaginationParams{Page: 3, Limit: 10, Offset: 20}},
		{"limit too large", "limit=100000", PaginationParams{Page: 1, Limit: constants.DefaultPageSize}},
		{"bad page", "page=-2&limit=5", PaginationParams{Page: 1, Limit: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/api/tasks?"+tt.query, nil)
			assert.Equal(t, tt.want, GetPaginationParams(c))
		})
	}
}
