package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/coopledger/coopledger/internal/app"
	"github.com/coopledger/coopledger/internal/platform/cache"
	"github.com/coopledger/coopledger/internal/platform/db"
)

var rootCmd = &cobra.Command{
	Use:   "coopctl",
	Short: "Operational commands for the CoopLedger finance ledger",
	Long: `coopctl runs maintenance and reporting tasks against the CoopLedger
database: schema migration, invoice numbering checks, overdue sweeps, period
reports and background job triggers.

Configuration is read from the same environment variables as the API server.
A .env file in the working directory is loaded first when present.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "coopctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// runtime holds the connections a command needs.
type runtime struct {
	cfg      *app.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	redis    *redis.Client
	services *app.Services
}

func openRuntime(ctx context.Context, withRedis bool) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger, pool: pool}
	if withRedis {
		client, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, building reports directly", slog.Any("error", err))
		}
		rt.redis = client
	}
	rt.services = app.NewServices(cfg, pool, rt.redis, logger)
	return rt, nil
}

func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}
