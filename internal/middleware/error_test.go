package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverer_NoPanic(t *testing.T) {
	logger, hook := test.NewNullLogger()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})

	rr := httptest.NewRecorder()
	Recoverer(logrus.NewEntry(logger))(handler).ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "success", rr.Body.String())
	assert.Empty(t, hook.AllEntries())
}

func TestRecoverer_Panic(t *testing.T) {
	logger, hook := test.NewNullLogger()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	rr := httptest.NewRecorder()
	Recoverer(logrus.NewEntry(logger))(handler).ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "test panic", entry.Data["panic"])
	assert.Contains(t, entry.Data["stack"], "goroutine")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	tests := []struct {
		name         string
		handler      http.Handler
		expectedCode int
		expectedErr  string
	}{
		{"not found", NotFoundHandler(), http.StatusNotFound, "not_found"},
		{"method not allowed", MethodNotAllowedHandler(), http.StatusMethodNotAllowed, "method_not_allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.handler.ServeHTTP(rr, httptest.NewRequest("GET", "/nope", nil))

			assert.Equal(t, tt.expectedCode, rr.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedErr, body.Error)
		})
	}
}
