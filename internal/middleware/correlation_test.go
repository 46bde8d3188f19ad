package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CorrelationID())
	return router
}

func TestCorrelationID(t *testing.T) {
	router := setupTestRouter()
	router.GET("/ping", func(c *gin.Context) {
		meta := RequestMetadata(c)
		c.JSON(http.StatusOK, gin.H{"correlation_id": meta.CorrelationID, "ip": meta.IPAddress})
	})

	t.Run("Generates id when missing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		id := w.Header().Get(CorrelationIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("Keeps inbound id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set(CorrelationIDHeader, "wompi-retry-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "wompi-retry-42", w.Header().Get(CorrelationIDHeader))
	})

	t.Run("Replaces malformed id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set(CorrelationIDHeader, "bad id\nwith newline "+strings.Repeat("x", 80))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		_, err := uuid.Parse(w.Header().Get(CorrelationIDHeader))
		assert.NoError(t, err)
	})
}

func TestMaxBodySize(t *testing.T) {
	router := setupTestRouter()
	router.POST("/upload", MaxBodySize(8), func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/upload", strings.NewReader("small")))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/upload", strings.NewReader("this body is too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
