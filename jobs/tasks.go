package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoicesMarkOverdue flags sent invoices past their due date.
	TaskInvoicesMarkOverdue = "invoices:mark_overdue"
	// TaskBudgetsReportWarmup pre-builds the variance reports of recent periods.
	TaskBudgetsReportWarmup = "budgets:report_warmup"
)

// MarkOverduePayload configures an overdue sweep. An empty AsOf means now.
type MarkOverduePayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// ReportWarmupPayload selects the periods to warm, counting back from the
// current month.
type ReportWarmupPayload struct {
	Months int `json:"months"`
}

// NewMarkOverdueTask constructs an overdue sweep task.
func NewMarkOverdueTask(payload MarkOverduePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicesMarkOverdue, data), nil
}

// NewReportWarmupTask constructs a report warm-up task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBudgetsReportWarmup, data), nil
}
