package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/coopledger/coopledger/internal/app"
	"github.com/coopledger/coopledger/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the helpers against the given Redis.
func NewJobsCLI(opts asynq.RedisClientOpt) *JobsCLI {
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// TriggerOptions carries the optional payload fields of a manual trigger.
type TriggerOptions struct {
	AsOf   string
	Months int
}

// BuildTask prepares the task for a supported job name.
func BuildTask(name string, opts TriggerOptions) (*asynq.Task, error) {
	switch name {
	case jobs.TaskInvoicesMarkOverdue:
		if opts.AsOf != "" {
			if _, err := time.Parse("2006-01-02", opts.AsOf); err != nil {
				return nil, fmt.Errorf("jobs cli: as-of must be YYYY-MM-DD, got %q", opts.AsOf)
			}
		}
		return jobs.NewMarkOverdueTask(jobs.MarkOverduePayload{AsOf: opts.AsOf})
	case jobs.TaskBudgetsReportWarmup:
		return jobs.NewReportWarmupTask(jobs.ReportWarmupPayload{Months: opts.Months})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string, opts TriggerOptions) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := BuildTask(name, opts)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Background job helpers",
}

var jobsTriggerCmd = &cobra.Command{
	Use:   "trigger <job>",
	Short: "Enqueue a background job now",
	Long: fmt.Sprintf(`Enqueue a background job on the default queue.

Supported jobs:
  %s   flag sent invoices past their due date
  %s   pre-build variance reports of recent periods`, jobs.TaskInvoicesMarkOverdue, jobs.TaskBudgetsReportWarmup),
	Args: cobra.ExactArgs(1),
	RunE: runJobsTrigger,
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show default queue counters",
	RunE:  runJobsStats,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsTriggerCmd, jobsStatsCmd)
	jobsTriggerCmd.Flags().String("as-of", "", "Sweep date for "+jobs.TaskInvoicesMarkOverdue+" (format: YYYY-MM-DD)")
	jobsTriggerCmd.Flags().Int("months", 3, "Periods to warm for "+jobs.TaskBudgetsReportWarmup)
}

func openJobsCLI() (*JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}), nil
}

func runJobsTrigger(cmd *cobra.Command, args []string) error {
	asOf, _ := cmd.Flags().GetString("as-of")
	months, _ := cmd.Flags().GetInt("months")
	opts := TriggerOptions{AsOf: asOf, Months: months}
	if _, err := BuildTask(args[0], opts); err != nil {
		return err
	}
	jc, err := openJobsCLI()
	if err != nil {
		return err
	}
	defer jc.Close()
	info, err := jc.Trigger(cmd.Context(), args[0], opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return err
}

func runJobsStats(cmd *cobra.Command, args []string) error {
	jc, err := openJobsCLI()
	if err != nil {
		return err
	}
	defer jc.Close()
	stats, err := jc.InspectQueue()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	return err
}
