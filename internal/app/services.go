package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/coopledger/coopledger/internal/accounts"
	"github.com/coopledger/coopledger/internal/audit"
	"github.com/coopledger/coopledger/internal/budgets"
	"github.com/coopledger/coopledger/internal/dashboard"
	"github.com/coopledger/coopledger/internal/invoices"
	"github.com/coopledger/coopledger/internal/shared"
	"github.com/coopledger/coopledger/internal/transactions"
)

// Services bundles the ledger services shared by the API server, the worker
// and the CLI.
type Services struct {
	Accounts     *accounts.Service
	AuditTrail   *audit.Service
	Invoices     *invoices.Service
	Transactions *transactions.Service
	Budgets      *budgets.Service
	Dashboard    *dashboard.Service
	ReportCache  *budgets.Cache
	Idempotency  *shared.IdempotencyStore
}

// NewServices wires repositories and services. redisClient may be nil, in
// which case variance reports are always built directly.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger) *Services {
	if cfg == nil {
		cfg = &Config{}
	}
	auditLog := shared.NewAuditLogger(pool)
	idem := shared.NewIdempotencyStore(pool)

	var reportCache *budgets.Cache
	if redisClient != nil {
		reportCache = budgets.NewCache(redisClient, cfg.ReportCacheTTL)
	}

	accountSvc := accounts.NewService(accounts.NewRepository(pool), auditLog, logger)
	invoiceSvc := invoices.NewService(invoices.NewRepository(pool), idem, auditLog, logger, invoices.Config{
		MaxAttempts: cfg.InvoiceNumberRetries,
		ItemPolicy:  invoices.ItemPolicy(cfg.InvoiceBlankItemPolicy),
	})
	txnSvc := transactions.NewService(transactions.NewRepository(pool), auditLog, reportCache, logger)
	budgetSvc := budgets.NewService(budgets.NewRepository(pool), txnSvc, reportCache, auditLog, logger)

	return &Services{
		Accounts:     accountSvc,
		AuditTrail:   audit.NewService(audit.NewRepository(pool)),
		Invoices:     invoiceSvc,
		Transactions: txnSvc,
		Budgets:      budgetSvc,
		Dashboard:    dashboard.NewService(txnSvc, budgetSvc, invoiceSvc),
		ReportCache:  reportCache,
		Idempotency:  idem,
	}
}
