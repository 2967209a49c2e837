package watchlist

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rickgao/stockfeed/internal/model"
	"golang.org/x/sync/errgroup"
)

// Source provides a user's watched keys.
type Source interface {
	Keys(ctx context.Context, userID uuid.UUID) ([]model.Key, error)
}

// Target receives the full desired set. feed.Session satisfies it.
type Target interface {
	SetDesired(keys []model.Key)
}

// Config holds refresher configuration.
type Config struct {
	Interval    time.Duration // Refresh interval (default: 1m)
	Concurrency int           // Max concurrent user queries (default: 4)
	Timeout     time.Duration // Per-query timeout (default: 10s)
	Static      []model.Key   // Always included in the desired set
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Minute,
		Concurrency: 4,
		Timeout:     10 * time.Second,
	}
}

// Refresher periodically rebuilds the desired set from watchlists.
type Refresher struct {
	cfg    Config
	source Source
	target Target
	users  []uuid.UUID
	logger *slog.Logger

	mu      sync.Mutex
	applied []model.Key
	cycled  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a Refresher for the given users.
func NewRefresher(cfg Config, source Source, target Target, users []uuid.UUID, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Refresher{
		cfg:    cfg,
		source: source,
		target: target,
		users:  users,
		logger: logger.With("component", "watchlist"),
	}
}

// Start refreshes once immediately and then on every interval.
func (r *Refresher) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info("watchlist refresher started",
		"users", len(r.users),
		"interval", r.cfg.Interval,
		"concurrency", r.cfg.Concurrency,
	)
	return nil
}

// Stop shuts down the refresh loop.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("watchlist refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.refreshAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshAndLog(ctx)
		}
	}
}

func (r *Refresher) refreshAndLog(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("watchlist refresh failed, keeping previous set", "error", err)
	}
}

// Refresh runs one cycle and returns the desired set it applied. On error
// the target is left untouched.
func (r *Refresher) Refresh(ctx context.Context) ([]model.Key, error) {
	start := time.Now()

	results := make([][]model.Key, len(r.users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, user := range r.users {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, r.cfg.Timeout)
			defer cancel()

			keys, err := r.source.Keys(qctx, user)
			if err != nil {
				return err
			}
			results[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	desired := union(r.cfg.Static, results...)

	r.mu.Lock()
	changed := !r.cycled || !slices.Equal(desired, r.applied)
	r.applied = desired
	r.cycled = true
	r.mu.Unlock()

	if changed {
		r.target.SetDesired(desired)
		r.logger.Info("desired set updated from watchlists",
			"keys", len(desired),
			"duration", time.Since(start),
		)
	} else {
		r.logger.Debug("watchlists unchanged", "keys", len(desired))
	}
	return desired, nil
}

// union merges key lists into a sorted set without empty symbols.
func union(static []model.Key, lists ...[]model.Key) []model.Key {
	seen := make(map[model.Key]struct{})
	out := []model.Key{}
	add := func(k model.Key) {
		if k.Symbol == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range static {
		add(k)
	}
	for _, list := range lists {
		for _, k := range list {
			add(k)
		}
	}
	slices.SortFunc(out, model.CompareKeys)
	return out
}
