package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalog/internal/courses"
	"github.com/mrlokans/catalog/internal/entities"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.POST("/api/auth/token", func(c *gin.Context) {
		var body map[string]string
		_ = c.ShouldBindJSON(&body)
		if body["password"] != "secret" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": "tok-123", "token_type": "Bearer", "expires_in": 3600})
	})
	router.GET("/api/courses", func(c *gin.Context) {
		list := []entities.Course{{ID: "c1", Title: "Go"}, {ID: "c2", Title: "Rust"}}
		if q := c.Query("q"); q != "" {
			list = courses.Search(list, q)
		}
		c.JSON(http.StatusOK, list)
	})
	router.GET("/api/courses/:id", func(c *gin.Context) {
		if c.Param("id") != "c1" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
			return
		}
		c.JSON(http.StatusOK, courses.NewDetail(entities.Course{ID: "c1", Title: "Go"}))
	})
	router.POST("/api/courses", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer tok-123" {
			c.JSON(http.StatusForbidden, gin.H{"error": "not permitted", "code": "forbidden"})
			return
		}
		var req courses.CreateRequest
		_ = c.ShouldBindJSON(&req)
		c.JSON(http.StatusCreated, gin.H{
			"message": "Course added successfully",
			"course":  entities.Course{ID: "new", Title: req.Title, Price: req.Price.Value},
		})
	})
	router.DELETE("/api/courses", func(c *gin.Context) {
		if c.Query("id") == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Course ID is required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully", "deleted": entities.Course{ID: c.Query("id")}})
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestClient_Login(t *testing.T) {
	server := newTestServer(t)
	c := New(server.URL, 5*time.Second)

	t.Run("bad credentials", func(t *testing.T) {
		_, err := c.Login(context.Background(), "a@example.com", "wrong")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "Invalid email or password", apiErr.Message)
	})

	t.Run("keeps the token", func(t *testing.T) {
		token, err := c.Login(context.Background(), "a@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "tok-123", token.AccessToken)

		course, err := c.CreateCourse(context.Background(), courses.CreateRequest{Title: "Go", Price: courses.Of(10)})
		require.NoError(t, err)
		assert.Equal(t, "new", course.ID)
		assert.Equal(t, 10.0, course.Price)
	})
}

func TestClient_Courses(t *testing.T) {
	server := newTestServer(t)
	c := New(server.URL, 5*time.Second)
	ctx := context.Background()

	list, err := c.ListCourses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = c.ListCourses(ctx, "rust")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c2", list[0].ID)

	detail, err := c.GetCourse(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Go", detail.Course.Title)

	_, err = c.GetCourse(ctx, "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Course not found", apiErr.Message)

	_, err = c.CreateCourse(ctx, courses.CreateRequest{Title: "Anon"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	deleted, err := c.DeleteCourse(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", deleted.ID)

	_, err = c.DeleteCourse(ctx, "")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Course ID is required", apiErr.Message)
}

func TestAPIError(t *testing.T) {
	assert.Equal(t, "api error: status 500", (&APIError{Status: 500}).Error())
	assert.Equal(t, "api error: status 400: bad", (&APIError{Status: 400, Message: "bad"}).Error())
}
