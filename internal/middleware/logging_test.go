package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/user/login", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/user/login", entry.Data["path"])
	assert.Equal(t, http.MethodGet, entry.Data["method"])
}

func TestStatusRecorderHijackWithoutSupport(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rec.Hijack()
	assert.Error(t, err)
}

func TestLogWebSocketDisconnectIncludesError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	LogWebSocketDisconnect(logger, "1.2.3.4:5", "/lobby/ws", errors.New("boom"))
	require.Len(t, hook.Entries, 1)
	assert.EqualError(t, hook.LastEntry().Data["error"].(error), "boom")

	LogWebSocketConnect(logger, "1.2.3.4:5", "/lobby/ws")
	assert.Equal(t, "WebSocket connected", hook.LastEntry().Message)
}
