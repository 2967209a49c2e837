// pricefeed keeps a live price cache fed from the market-data WebSocket and
// prints every update to the console.
// Usage: go run ./cmd/pricefeed --config configs/pricefeed.example.yaml
//
// The feed token comes from feed.token, feed.token_env or feed.token_file.
// With watchlist.enabled the desired set follows the listed users'
// watchlists in Postgres; otherwise it is the static subscriptions list.
package main

import (
	"context"
	"encoding/json"
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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/stockfeed/internal/config"
	"github.com/rickgao/stockfeed/internal/database"
	"github.com/rickgao/stockfeed/internal/feed"
	"github.com/rickgao/stockfeed/internal/httpapi"
	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/model"
	"github.com/rickgao/stockfeed/internal/version"
	"github.com/rickgao/stockfeed/internal/watchlist"
)

func main() {
	configPath := flag.String("config", "configs/pricefeed.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full record JSON")
	quiet := flag.Bool("quiet", false, "do not print price updates")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting pricefeed", "version", version.String(), "url", cfg.Feed.URL)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
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

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Feed session
	session := feed.New(feedConfig(cfg), credentials(cfg.Feed, logger), staticKeys(cfg),
		feed.WithLogger(logger),
		feed.WithMetrics(m),
	)
	if err := session.Start(ctx); err != nil {
		logger.Error("failed to start feed session", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := session.Close(shutdownCtx); err != nil {
			logger.Warn("feed session close", "error", err)
		}
	}()

	// Watchlist source
	var pool *pgxpool.Pool
	if cfg.Watchlist.Enabled {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		refreshCfg, users, err := refreshConfig(cfg)
		if err != nil {
			logger.Error("invalid watchlist config", "error", err)
			os.Exit(1)
		}

		refresher := watchlist.NewRefresher(refreshCfg, watchlist.NewStore(pool), session, users, logger)
		if err := refresher.Start(ctx); err != nil {
			logger.Error("failed to start watchlist refresher", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			refresher.Stop(shutdownCtx)
		}()
	}

	g, gctx := errgroup.WithContext(ctx)

	// Debug HTTP server
	if cfg.HTTP.Enabled {
		opts := httpapi.Options{
			Gatherer:       reg,
			MetricsPath:    cfg.HTTP.Path,
			AllowSubscribe: !cfg.Watchlist.Enabled,
		}
		if pool != nil {
			opts.DB = pool
		}

		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           httpapi.New(session, opts, logger).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info("starting debug http server", "port", cfg.HTTP.Port)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	// Console printer
	if !*quiet {
		updates, stop := session.Prices().Subscribe(256)
		g.Go(func() error {
			defer stop()
			printUpdates(gctx, updates, *verbose)
			return nil
		})
	}

	// Stats logger
	g.Go(func() error {
		logStats(gctx, session, logger)
		return nil
	})

	logger.Info("streaming started - press Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		logger.Error("pricefeed stopped with error", "error", err)
	}

	logger.Info("shutting down...")
}

func printUpdates(ctx context.Context, updates <-chan model.PriceRecord, verbose bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-updates:
			if !ok {
				return
			}
			if verbose {
				data, _ := json.MarshalIndent(rec, "", "  ")
				fmt.Printf("[PRICE] %s\n", data)
			} else {
				fmt.Println(formatRecord(rec))
			}
		}
	}
}

func logStats(ctx context.Context, session *feed.Session, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := session.Status()
			logger.Info("stats",
				"state", st.State,
				"reason", st.Reason,
				"attempts", st.Attempts,
				"desired", len(st.Desired),
				"confirmed", len(st.Confirmed),
				"rejected", len(st.Rejected),
				"cached", st.CachedPrices,
			)
		}
	}
}
