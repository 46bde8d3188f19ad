package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request, _ = http.NewRequest(http.MethodGet, "/payment-success", nil)
	c.Request.RemoteAddr = "10.0.0.7:1234"
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{"X-Real-IP public", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"Forwarded first public", map[string]string{"X-Forwarded-For": "10.1.1.1, 198.51.100.4, 203.0.113.1"}, "198.51.100.4"},
		{"Forwarded all private", map[string]string{"X-Forwarded-For": "192.168.1.5, 10.0.0.1"}, "192.168.1.5"},
		{"No headers", nil, "10.0.0.7"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, GetRealIP(newContext(tc.headers)))
		})
	}
}

func TestGetUserAgent(t *testing.T) {
	assert.Equal(t, "Unknown", GetUserAgent(newContext(nil)))
	assert.Equal(t, "Go-http-client/1.1", GetUserAgent(newContext(map[string]string{"User-Agent": "Go-http-client/1.1"})))
}

func TestParseUserAgent(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		info := ParseUserAgent("")
		assert.Equal(t, "unknown", info.DeviceType)
		assert.False(t, info.IsBot)
	})

	t.Run("Mobile browser", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36")
		assert.Equal(t, "mobile", info.DeviceType)
		assert.Equal(t, "Chrome", info.Browser)
		assert.False(t, info.IsBot)
	})

	t.Run("Server callback", func(t *testing.T) {
		info := ParseUserAgent("Go-http-client/1.1")
		assert.True(t, info.IsBot)
	})
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(16)
	require.NoError(t, err)
	b, err := GenerateSecret(16)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	ref, err := GenerateReferenceSecret()
	require.NoError(t, err)
	assert.Len(t, ref, 64)
}
