// internal/health/health.go
package health

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// gRPC health service names.
const (
	StoreService  = "tasknest.store"
	SearchService = "tasknest.search"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Pinger is anything whose reachability can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the body returned by GET /health.
type Report struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Services  ServicesReport `json:"services"`
}

type ServicesReport struct {
	Database      string `json:"database"`
	Elasticsearch string `json:"elasticsearch"`
}

// Checker probes the primary store and the search index independently.
type Checker struct {
	store   Pinger
	search  Pinger
	timeout time.Duration
	now     func() time.Time
}

// NewChecker creates a Checker. search may be nil when no index is configured.
func NewChecker(store, search Pinger, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{store: store, search: search, timeout: timeout, now: time.Now}
}

// Check probes both dependencies concurrently. It never fails; unreachable
// dependencies are reported as disconnected.
func (c *Checker) Check(ctx context.Context) Report {
	var (
		wg            sync.WaitGroup
		store, search bool
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		store = c.probe(ctx, "database", c.store)
	}()
	go func() {
		defer wg.Done()
		search = c.probe(ctx, "elasticsearch", c.search)
	}()
	wg.Wait()

	return Report{
		Status:    "ok",
		Timestamp: c.now().UTC(),
		Services: ServicesReport{
			Database:      connection(store),
			Elasticsearch: connection(search),
		},
	}
}

func (c *Checker) probe(ctx context.Context, name string, p Pinger) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		log.Printf("[WARN] Health check for %s failed: %v", name, err)
		return false
	}
	return true
}

func connection(ok bool) string {
	if ok {
		return StatusConnected
	}
	return StatusDisconnected
}

// Handler serves the health report. It always answers 200.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, c.Check(ctx.Request.Context()))
	}
}

// Router returns a standalone engine exposing GET /health.
func (c *Checker) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", c.Handler())
	return r
}

// Update refreshes the per-dependency statuses on the gRPC health server.
// The overall "" service is left SERVING so the process stays routable while
// a dependency is down.
func (c *Checker) Update(ctx context.Context, srv *health.Server) Report {
	report := c.Check(ctx)
	srv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	srv.SetServingStatus(StoreService, servingStatus(report.Services.Database))
	srv.SetServingStatus(SearchService, servingStatus(report.Services.Elasticsearch))
	return report
}

// Watch calls Update immediately and then every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, srv *health.Server, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Update(ctx, srv)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Update(ctx, srv)
		}
	}
}

func servingStatus(s string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if s == StatusConnected {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}
