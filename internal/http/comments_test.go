package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalog/internal/comments"
)

type threadResponse struct {
	Comments []comments.Entry `json:"comments"`
}

func TestComments_PostAndList(t *testing.T) {
	env := setupTestEnv(t)
	course := env.createCourse(t, courseBody("Compilers"))
	path := "/api/courses/" + course.ID + "/comments"

	t.Run("empty thread", func(t *testing.T) {
		w := env.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"comments":[]}`, w.Body.String())
	})

	t.Run("anonymous cannot post", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, map[string]string{"content": "hello"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Please log in to comment.","code":"auth_required"}`, w.Body.String())
	})

	t.Run("blank comment is rejected", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, map[string]string{"content": "   "}, env.member)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Comment cannot be empty"}`, w.Body.String())
	})

	t.Run("post returns the refreshed thread", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, map[string]string{"content": "  Great course  "}, env.member)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		thread := decode[threadResponse](t, w)
		require.Len(t, thread.Comments, 1)
		entry := thread.Comments[0]
		assert.Equal(t, "Great course", entry.Content)
		assert.Equal(t, env.member.ID, entry.UserID)
		assert.Equal(t, course.ID, entry.CourseID)
		assert.Equal(t, "Ada Lovelace", entry.DisplayName)
		assert.Equal(t, "ada@example.com", entry.Email)
		assert.Empty(t, entry.AvatarURL)
		assert.NotEmpty(t, entry.Ago)
	})

	t.Run("newest first, visible to everyone", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, map[string]string{"content": "Agreed"}, env.other)
		require.Equal(t, http.StatusCreated, w.Code)

		thread := decode[threadResponse](t, env.do(t, http.MethodGet, path, nil, nil))
		require.Len(t, thread.Comments, 2)
		assert.Equal(t, "Agreed", thread.Comments[0].Content)
		assert.Equal(t, "Bob", thread.Comments[0].DisplayName)
		assert.Equal(t, "Great course", thread.Comments[1].Content)
	})

	t.Run("threads are per course", func(t *testing.T) {
		other := env.createCourse(t, courseBody("Databases"))
		thread := decode[threadResponse](t, env.do(t, http.MethodGet, "/api/courses/"+other.ID+"/comments", nil, nil))
		assert.Empty(t, thread.Comments)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, `{"content":`, env.member)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String())
	})
}
