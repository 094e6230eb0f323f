package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/coopledger/coopledger/internal/budgets"
	jobmetrics "github.com/coopledger/coopledger/internal/jobs"
	"github.com/coopledger/coopledger/internal/shared"
)

// ReportBuilder is the read side the warm-up populates.
type ReportBuilder interface {
	ComputeVariance(ctx context.Context, period shared.Period, category budgets.Category) (budgets.Report, error)
	NetVariance(ctx context.Context, period shared.Period) (budgets.NetReport, error)
}

// ReportWarmupJob pre-populates the variance report cache.
type ReportWarmupJob struct {
	Reports ReportBuilder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warm-up handler.
func NewReportWarmupJob(reports ReportBuilder, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskBudgetsReportWarmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Months <= 0 {
		payload.Months = 2
	}

	tracker := j.metrics().Track(TaskBudgetsReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("months", payload.Months))
	start := j.now()
	period := shared.PeriodOf(start)
	warmed := 0
	for i := 0; i < payload.Months; i++ {
		if err := j.warmPeriod(ctx, period); err != nil {
			resultErr = err
			logger.Error("warm period", slog.String("period", period.String()), slog.Any("error", err))
			return resultErr
		}
		warmed++
		period = period.Prev()
	}
	j.metrics().AddAffected(TaskBudgetsReportWarmup, warmed)
	logger.Info("completed report warmup", slog.Int("periods", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ReportWarmupJob) warmPeriod(ctx context.Context, period shared.Period) error {
	periodCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	for _, category := range []budgets.Category{budgets.CategoryRevenue, budgets.CategoryExpense} {
		if _, err := j.Reports.ComputeVariance(periodCtx, period, category); err != nil {
			return err
		}
	}
	_, err := j.Reports.NetVariance(periodCtx, period)
	return err
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBudgetsReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskBudgetsReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
