package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coopledger/coopledger/internal/budgets"
	"github.com/coopledger/coopledger/internal/invoices"
	"github.com/coopledger/coopledger/internal/shared"
	"github.com/coopledger/coopledger/internal/transactions"
)

// Ledger reads posted figures.
type Ledger interface {
	PeriodSummary(ctx context.Context, period shared.Period) (transactions.Summary, error)
	Trend(ctx context.Context, end shared.Period, months int) ([]transactions.Summary, error)
}

// Budgets reads planned figures.
type Budgets interface {
	NetVariance(ctx context.Context, period shared.Period) (budgets.NetReport, error)
}

// Invoices reads receivables.
type Invoices interface {
	ListInvoices(ctx context.Context, filter invoices.ListFilter) ([]invoices.Invoice, error)
}

// Snapshot is the finance overview of one period.
type Snapshot struct {
	Period          string                 `json:"period"`
	Summary         transactions.Summary   `json:"summary"`
	Net             budgets.NetReport      `json:"net"`
	Trend           []transactions.Summary `json:"trend"`
	OverdueInvoices []invoices.Invoice     `json:"overdue_invoices"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

// Service assembles the overview from the ledger components.
type Service struct {
	ledger   Ledger
	budgets  Budgets
	invoices Invoices
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(ledger Ledger, budgets Budgets, invoices Invoices) *Service {
	return &Service{ledger: ledger, budgets: budgets, invoices: invoices, now: time.Now}
}

// Snapshot loads every section concurrently. The first failing section
// cancels the rest.
func (s *Service) Snapshot(ctx context.Context, period shared.Period, trendMonths int) (Snapshot, error) {
	if err := period.Validate(); err != nil {
		return Snapshot{}, err
	}
	if trendMonths <= 0 {
		trendMonths = 6
	}
	snap := Snapshot{Period: period.String(), GeneratedAt: s.now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.ledger.PeriodSummary(gctx, period)
		snap.Summary = summary
		return err
	})
	g.Go(func() error {
		trend, err := s.ledger.Trend(gctx, period, trendMonths)
		snap.Trend = trend
		return err
	})
	g.Go(func() error {
		net, err := s.budgets.NetVariance(gctx, period)
		snap.Net = net
		return err
	})
	g.Go(func() error {
		overdue, err := s.invoices.ListInvoices(gctx, invoices.ListFilter{Status: invoices.StatusOverdue, Limit: 20})
		snap.OverdueInvoices = overdue
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	if snap.OverdueInvoices == nil {
		snap.OverdueInvoices = []invoices.Invoice{}
	}
	return snap, nil
}
