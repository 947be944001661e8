// cmd/reindex/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gurkanbulca/tasknest/internal/config"
	"github.com/gurkanbulca/tasknest/internal/database"
	"github.com/gurkanbulca/tasknest/internal/repository"
	"github.com/gurkanbulca/tasknest/internal/search"
	"github.com/gurkanbulca/tasknest/internal/service"
)

var (
	batchSize   int
	ensureIndex bool
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the primary store",
	Long: `Stream every task from the primary store into the search index in
bulk batches. Use this to repair drift after the index was unreachable.

Examples:
  reindex
  reindex --batch-size 1000 --ensure-index`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().IntVarP(&batchSize, "batch-size", "b", 500, "tasks per bulk request")
	reindexCmd.Flags().BoolVar(&ensureIndex, "ensure-index", false, "create the index with its mapping if missing")
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := reindexCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if batchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive, got %d", batchSize)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, database.Config{DSN: cfg.DSN()})
	if err != nil {
		return err
	}
	defer db.Close()

	index, err := search.NewIndex(search.Config{
		URL:            cfg.Search.URL,
		IndexName:      cfg.Search.IndexName,
		RequestTimeout: cfg.Search.Timeout,
		Refresh:        cfg.Search.Refresh,
	})
	if err != nil {
		return fmt.Errorf("create search client: %w", err)
	}

	if ensureIndex {
		if err := index.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}

	svc := service.NewTaskService(repository.NewTaskRepository(db), index, service.Options{})
	n, err := svc.Reindex(ctx, batchSize)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d tasks into %q\n", n, index.Name())
	return nil
}
