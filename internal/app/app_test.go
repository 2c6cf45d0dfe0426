package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MAKASA-LABORATORY/community-service-tracker-system/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address:        ":0",
			RequestTimeout: 5 * time.Second,
		},
		Database:   config.DatabaseConfig{Driver: config.DriverMemory},
		Worker:     config.WorkerConfig{Count: 1, ShutdownTimeout: time.Second},
		Pagination: config.PaginationConfig{DefaultLimit: 20, MaxLimit: 100},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"https://dashboard.example.org"},
			AllowedMethods: []string{"GET", "POST"},
		},
	}
}

func TestNew_MemoryDriver(t *testing.T) {
	a, err := New(memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	body := `{"student_id":"S-1","name":"Abena","email":"abena@example.org","total_hours":20}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(body))
	req.Header.Set("Origin", "https://dashboard.example.org")
	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://dashboard.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunWorker_RequiresBroker(t *testing.T) {
	err := RunWorker(context.Background(), memoryConfig(), zerolog.Nop())
	assert.ErrorContains(t, err, "rabbitmq.enabled")
}
