// mockfeed runs a simulated market-data feed speaking the same WebSocket
// protocol as the analytics backend, for local development of pricefeed.
// Usage: go run ./cmd/mockfeed --config configs/pricefeed.example.yaml
//
// With simulator.secret set, clients need a signed token:
//
//	go run ./cmd/mockfeed --config ... --issue-token dev@example.com
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/stockfeed/internal/auth"
	"github.com/rickgao/stockfeed/internal/config"
	"github.com/rickgao/stockfeed/internal/feedsim"
	"github.com/rickgao/stockfeed/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults when empty)")
	port := flag.Int("port", 0, "listen port (overrides simulator.port)")
	issueToken := flag.String("issue-token", "", "print a token for this subject and exit")
	ttl := flag.Duration("ttl", 24*time.Hour, "lifetime of an issued token")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadWithDefaults(*configPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *port != 0 {
		cfg.Simulator.Port = *port
	}
	if err := cfg.ValidateSimulator(); err != nil {
		slog.Error("invalid simulator config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if *issueToken != "" {
		if cfg.Simulator.Secret == "" {
			logger.Error("simulator.secret is required to issue tokens")
			os.Exit(1)
		}
		token, err := auth.Sign([]byte(cfg.Simulator.Secret), *issueToken, *ttl)
		if err != nil {
			logger.Error("failed to sign token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	simCfg, err := simConfig(cfg.Simulator)
	if err != nil {
		logger.Error("invalid simulator config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	sim := feedsim.New(simCfg, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Simulator.Port),
		Handler:           sim.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sim.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("mockfeed listening",
			"version", version.String(),
			"ws_url", fmt.Sprintf("ws://localhost:%d/ws", cfg.Simulator.Port),
			"auth", cfg.Simulator.Secret != "",
			"seeds", len(simCfg.Seeds),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mockfeed server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("mockfeed stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("mockfeed stopped")
}
