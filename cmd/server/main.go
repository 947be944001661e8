// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/gurkanbulca/tasknest/internal/config"
	"github.com/gurkanbulca/tasknest/internal/database"
	"github.com/gurkanbulca/tasknest/internal/graph"
	healthcheck "github.com/gurkanbulca/tasknest/internal/health"
	"github.com/gurkanbulca/tasknest/internal/repository"
	"github.com/gurkanbulca/tasknest/internal/search"
	"github.com/gurkanbulca/tasknest/internal/server"
	"github.com/gurkanbulca/tasknest/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	loc, _ := cfg.Location()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Connect to the primary store
	log.Println("Connecting to PostgreSQL...")
	db, err := database.Connect(ctx, database.Config{DSN: cfg.DSN()})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if cfg.Server.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to run auto migration: %v", err)
		}
	}

	// The search index is optional at startup: writes still succeed and
	// search falls back to the store while it is unreachable.
	index, err := search.NewIndex(search.Config{
		URL:            cfg.Search.URL,
		IndexName:      cfg.Search.IndexName,
		RequestTimeout: cfg.Search.Timeout,
		Refresh:        cfg.Search.Refresh,
	})
	if err != nil {
		log.Fatalf("Failed to create search client: %v", err)
	}
	if err := index.EnsureIndex(ctx); err != nil {
		log.Printf("[WARN] Search index %q not initialized: %v", index.Name(), err)
	} else {
		log.Printf("[INFO] Search index %q ready", index.Name())
	}

	// Initialize services
	taskRepo := repository.NewTaskRepository(db)
	taskService := service.NewTaskService(taskRepo, index, service.Options{
		Location:     loc,
		StoreTimeout: cfg.Database.Timeout,
	})

	schema, err := graph.NewSchema(graph.NewResolver(taskService))
	if err != nil {
		log.Fatalf("Failed to parse GraphQL schema: %v", err)
	}

	apiServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.NewRouter(schema, cfg.Tasks.DefaultOwner),
		ReadHeaderTimeout: 10 * time.Second,
	}

	checker := healthcheck.NewChecker(taskRepo, index, 2*time.Second)
	healthServer := &http.Server{
		Addr:              ":" + cfg.Server.HealthPort,
		Handler:           checker.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// gRPC health service
	grpcServer := grpc.NewServer()
	grpcHealth := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, grpcHealth)
	grpcHealth.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	if cfg.Server.EnableReflection {
		reflection.Register(grpcServer)
		log.Println("gRPC reflection enabled (disable in production)")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCHealthPort))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	go checker.Watch(watchCtx, grpcHealth, cfg.Server.HealthCheckInterval)

	go serveHTTP("GraphQL API", apiServer)
	go serveHTTP("health", healthServer)
	go func() {
		log.Printf("[INFO] gRPC health listening on port %s", cfg.Server.GRPCHealthPort)
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatalf("Failed to serve gRPC health: %v", err)
		}
	}()

	log.Printf("TaskNest API ready at http://localhost:%s/graphql", cfg.Server.Port)

	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"api": func(ctx context.Context) error {
			return apiServer.Shutdown(ctx)
		},
		"health": func(ctx context.Context) error {
			stopWatch()
			grpcHealth.Shutdown()
			grpcServer.GracefulStop()
			return healthServer.Shutdown(ctx)
		},
	})

	exitCode := <-wait
	if err := db.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func serveHTTP(name string, srv *http.Server) {
	log.Printf("[INFO] %s listening on %s", name, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to serve %s: %v", name, err)
	}
}
