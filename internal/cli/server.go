package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"routing-arena/internal/app"
	"routing-arena/internal/bank"
	"routing-arena/internal/config"
	transport "routing-arena/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the arena HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	// The held-out bank is generated on first start when missing.
	if _, err := rt.banks.Bank(ctx, bank.Test); err != nil {
		log.Printf("test bank: %v", err)
	}
	if _, err := rt.banks.Bank(ctx, bank.Check); err != nil {
		log.Printf("check bank: %v; submissions will fail until it exists", err)
	}
	if lb, err := rt.arena.Leaderboard(ctx, app.DefaultLeaderboardLimit); err != nil {
		log.Printf("initial leaderboard: %v", err)
	} else {
		rt.hub.Publish(app.BoardLeaderboard, lb)
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	handler := transport.NewRouter(transport.Options{
		Arena:      rt.arena,
		Recomputer: rt.recomputer,
		Rankings:   rt.rankings,
		Hub:        rt.hub,
		Metrics:    rt.metrics.Handler(),
		Health:     rt.health,
	})

	// Scoring a submission makes one oracle call per question, so the write
	// timeout is generous.
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	go func() {
		log.Printf("starting routing arena on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
