package monitoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initPrometheus(t *testing.T) {
	t.Helper()
	require.NoError(t, Initialize(Config{ExporterType: "prometheus", ServiceName: "identity-test"}))
	require.True(t, IsInitialized())
}

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	initPrometheus(t)

	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Get("/users/{userID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/alice-secret-id", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	body := scrape(t)
	assert.Contains(t, body, "http_requests")
	assert.Contains(t, body, "/users/{userID}")
	assert.NotContains(t, body, "alice-secret-id")
	assert.Contains(t, body, "418")
}

func TestRecordVerificationAndExternalCall(t *testing.T) {
	initPrometheus(t)
	ctx := context.Background()

	RecordVerification(ctx, "face_verification", OutcomeSuccess)
	RecordFaceDistance(ctx, 0.31, true)
	RecordExternalCall(ctx, "face-encoder", "encode", 40*time.Millisecond, nil)
	RecordExternalCall(ctx, "face-encoder", "encode", time.Second, errors.New("timeout"))

	body := scrape(t)
	assert.Contains(t, body, "identity_verifications")
	assert.Contains(t, body, "face_verification")
	assert.Contains(t, body, "face_match_distance")
	assert.Contains(t, body, "external_call_errors")
	assert.Contains(t, body, "face-encoder")
}

func TestInitialize_UnknownExporter(t *testing.T) {
	err := initialize(context.Background(), Config{ExporterType: "statsd", ServiceName: "identity-test"})
	assert.Error(t, err)
}

func TestNewOTLPExporter_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := newOTLPExporter(ctx, Config{})
	assert.Error(t, err, "missing endpoint must fail")

	_, err = newOTLPExporter(ctx, Config{OTLPEndpoint: "http://collector:4318"})
	assert.Error(t, err, "plain HTTP without insecure flag must fail")

	exporter, err := newOTLPExporter(ctx, Config{OTLPEndpoint: "http://collector:4318/v1/metrics", OTLPTLSInsecure: true})
	require.NoError(t, err)
	assert.NoError(t, exporter.Shutdown(ctx))
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders(" api-key = abc123 ,x-team=identity,broken")
	assert.Equal(t, map[string]string{"api-key": "abc123", "x-team": "identity"}, headers)
	assert.Empty(t, parseHeaders(""))
}

func TestTextHandler(t *testing.T) {
	w := httptest.NewRecorder()
	textHandler("# Metrics disabled\n").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "# Metrics"))
}
