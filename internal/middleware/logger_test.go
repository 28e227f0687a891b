package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func loggedRequest(t *testing.T, status int) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.Status(status) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping?verbose=1", nil)
	r.ServeHTTP(w, req)
	return logs
}

func TestLoggerRecordsRequestFields(t *testing.T) {
	logs := loggedRequest(t, http.StatusOK)
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	assert.Equal(t, zap.InfoLevel, entry.Level)
	assert.Equal(t, "GET /ping?verbose=1", entry.Message)

	fields := entry.ContextMap()
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Contains(t, fields, "elapsed")
	assert.Contains(t, fields, "client_ip")
}

func TestLoggerEscalatesServerErrors(t *testing.T) {
	logs := loggedRequest(t, http.StatusInternalServerError)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.ErrorLevel, logs.All()[0].Level)
}
