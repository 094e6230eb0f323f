package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/accounts"
	"github.com/coopledger/coopledger/internal/app"
	"github.com/coopledger/coopledger/internal/budgets"
	"github.com/coopledger/coopledger/internal/invoices"
	"github.com/coopledger/coopledger/internal/platform/db"
	"github.com/coopledger/coopledger/internal/shared"
	"github.com/coopledger/coopledger/internal/transactions"
)

// seedActor is the user id recorded as creator of every seeded row.
const seedActor int64 = 1

type accountSeed struct {
	code     string
	name     string
	category accounts.Category
	budget   string
	monthly  []string
}

var chart = []accountSeed{
	{code: "1000", name: "Cash on hand", category: accounts.CategoryAsset},
	{code: "4000", name: "Membership dues", category: accounts.CategoryRevenue, budget: "1200.00", monthly: []string{"1150.00", "1240.00", "1190.00"}},
	{code: "4100", name: "Workshop fees", category: accounts.CategoryRevenue, budget: "800.00", monthly: []string{"640.00", "910.00", "780.00"}},
	{code: "5000", name: "Rent", category: accounts.CategoryExpense, budget: "900.00", monthly: []string{"900.00", "900.00", "900.00"}},
	{code: "5100", name: "Utilities", category: accounts.CategoryExpense, budget: "250.00", monthly: []string{"231.40", "268.15", "244.90"}},
	{code: "5200", name: "Supplies", category: accounts.CategoryExpense, budget: "300.00", monthly: []string{"120.00", "455.75", "310.20"}},
}

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Applying schema...")
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	services := app.NewServices(cfg, pool, nil, logger)
	end := shared.PeriodOf(time.Now().UTC())

	fmt.Println("→ Seeding chart of accounts...")
	ids, err := seedAccounts(ctx, services.Accounts)
	if err != nil {
		log.Fatalf("seed accounts: %v", err)
	}

	fmt.Println("→ Seeding budgets and transactions...")
	if err := seedActivity(ctx, services, ids, end); err != nil {
		log.Fatalf("seed activity: %v", err)
	}

	fmt.Println("→ Seeding invoices...")
	if err := seedInvoices(ctx, services.Invoices); err != nil {
		log.Fatalf("seed invoices: %v", err)
	}

	fmt.Println("✓ Seed complete")
}

func seedAccounts(ctx context.Context, svc *accounts.Service) (map[string]int64, error) {
	ids := make(map[string]int64, len(chart))
	for _, seed := range chart {
		acct, err := svc.CreateAccount(ctx, seedActor, accounts.CreateAccountInput{Code: seed.code, Name: seed.name, Category: seed.category})
		if errors.Is(err, shared.ErrConflict) {
			existing, listErr := svc.ListAccounts(ctx, seed.category)
			if listErr != nil {
				return nil, listErr
			}
			for _, a := range existing {
				if a.Code == seed.code {
					acct, err = a, nil
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", seed.code, err)
		}
		ids[seed.code] = acct.ID
	}
	return ids, nil
}

// seedActivity appends one movement per account and month on every run;
// budgets are upserted.
func seedActivity(ctx context.Context, services *app.Services, ids map[string]int64, end shared.Period) error {
	periods := []shared.Period{end.Prev().Prev(), end.Prev(), end}
	for _, seed := range chart {
		if seed.budget == "" {
			continue
		}
		txnType := transactions.TypeIncome
		if seed.category == accounts.CategoryExpense {
			txnType = transactions.TypeExpense
		}
		for i, period := range periods {
			if _, err := services.Budgets.SetBudget(ctx, seedActor, budgets.SetBudgetInput{
				Period:    period,
				AccountID: ids[seed.code],
				Amount:    decimal.RequireFromString(seed.budget),
			}); err != nil {
				return fmt.Errorf("budget %s %s: %w", seed.code, period, err)
			}
			if _, err := services.Transactions.RecordTransaction(ctx, seedActor, transactions.RecordInput{
				Date:        period.Start().AddDate(0, 0, 9),
				Type:        txnType,
				Amount:      decimal.RequireFromString(seed.monthly[i]),
				AccountID:   ids[seed.code],
				Description: seed.name + " " + period.String(),
			}); err != nil {
				return fmt.Errorf("transaction %s %s: %w", seed.code, period, err)
			}
		}
	}
	return nil
}

func seedInvoices(ctx context.Context, svc *invoices.Service) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	samples := []struct {
		header invoices.Header
		items  []invoices.ItemInput
	}{
		{
			header: invoices.Header{CustomerName: "Riverside Housing Co-op", CustomerContact: "office@riverside.example", InvoiceDate: today, DueDate: today.AddDate(0, 0, 30)},
			items: []invoices.ItemInput{
				{ItemType: "service", Description: "Bookkeeping workshop", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("150.00")},
				{ItemType: "product", Description: "Printed handbook", Quantity: decimal.NewFromInt(12), UnitPrice: decimal.RequireFromString("8.50")},
			},
		},
		{
			header: invoices.Header{CustomerName: "Greenway Food Co-op", InvoiceDate: today.AddDate(0, 0, -40), DueDate: today.AddDate(0, 0, -10)},
			items: []invoices.ItemInput{
				{ItemType: "service", Description: "Hall rental", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("320.00")},
			},
		},
	}
	for _, sample := range samples {
		inv, err := svc.CreateInvoice(ctx, seedActor, sample.header, sample.items)
		if err != nil {
			return err
		}
		if _, err := svc.ChangeStatus(ctx, seedActor, inv.ID, invoices.StatusSent); err != nil {
			return err
		}
		fmt.Printf("   %s %s total=%s\n", inv.Number, sample.header.CustomerName, inv.TotalAmount.StringFixed(2))
	}
	return nil
}
