// internal/health/health_test.go
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type pinger struct {
	err   error
	delay time.Duration
}

func (p pinger) Ping(ctx context.Context) error {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestChecker_Check(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name       string
		store      Pinger
		search     Pinger
		wantStore  string
		wantSearch string
	}{
		{"both up", pinger{}, pinger{}, StatusConnected, StatusConnected},
		{"store down", pinger{err: down}, pinger{}, StatusDisconnected, StatusConnected},
		{"search down", pinger{}, pinger{err: down}, StatusConnected, StatusDisconnected},
		{"search not configured", pinger{}, nil, StatusConnected, StatusDisconnected},
		{"search hangs", pinger{}, pinger{delay: time.Second}, StatusConnected, StatusDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(tt.store, tt.search, 50*time.Millisecond)
			report := c.Check(context.Background())

			assert.Equal(t, "ok", report.Status)
			assert.Equal(t, tt.wantStore, report.Services.Database)
			assert.Equal(t, tt.wantSearch, report.Services.Elasticsearch)
		})
	}
}

func TestChecker_HandlerAlwaysOK(t *testing.T) {
	fixed := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	c := NewChecker(pinger{err: errors.New("down")}, pinger{err: errors.New("down")}, time.Second)
	c.now = func() time.Time { return fixed }

	w := httptest.NewRecorder()
	c.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2024-03-10T09:00:00Z", body["timestamp"])
	assert.Equal(t, map[string]interface{}{
		"database":      StatusDisconnected,
		"elasticsearch": StatusDisconnected,
	}, body["services"])
}

func TestChecker_UpdateGRPCStatuses(t *testing.T) {
	srv := health.NewServer()
	c := NewChecker(pinger{}, pinger{err: errors.New("down")}, time.Second)

	c.Update(context.Background(), srv)

	check := func(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
		resp, err := srv.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.Status
	}
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(StoreService))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(SearchService))
}

func TestChecker_WatchStopsOnCancel(t *testing.T) {
	srv := health.NewServer()
	c := NewChecker(pinger{}, pinger{}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Watch(ctx, srv, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := srv.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: SearchService})
		return err == nil && resp.Status == grpc_health_v1.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
