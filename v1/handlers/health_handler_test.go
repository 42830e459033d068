package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	v1models "github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name         string
		pingErr      error
		wantStatus   int
		wantDatabase string
	}{
		{"healthy", nil, http.StatusOK, "connected"},
		{"database down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("lysa-identity", func(context.Context) error { return tt.pingErr })
			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp v1models.HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "lysa-identity", resp.Service)
			assert.Equal(t, tt.wantDatabase, resp.Database)
		})
	}
}
