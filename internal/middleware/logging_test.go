// internal/middleware/logging_test.go
package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMiddlewareRecordsRequest(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	handler := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/table/ws", nil))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, "http request", entry.Message)
	assert.Equal(t, http.MethodGet, entry.Data["method"])
	assert.Equal(t, "/table/ws", entry.Data["path"])
}

func TestLogWebSocketLifecycle(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	LogWebSocketConnect(logger, "10.0.0.1:4000", "/table/ws")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "websocket connected", hook.LastEntry().Message)

	LogWebSocketDisconnect(logger, "10.0.0.1:4000", "/table/ws", errors.New("read timeout"))
	require.Len(t, hook.Entries, 2)
	entry := hook.LastEntry()
	assert.Equal(t, "websocket disconnected", entry.Message)
	assert.EqualError(t, entry.Data["error"].(error), "read timeout")

	LogWebSocketDisconnect(logger, "10.0.0.1:4000", "/table/ws", nil)
	entry = hook.LastEntry()
	assert.NotContains(t, entry.Data, "error")
}
