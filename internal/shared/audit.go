package shared

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audited ledger actions.
const (
	AuditInvoiceCreate   = "invoice.create"
	AuditInvoiceItems    = "invoice.items.replace"
	AuditInvoiceStatus   = "invoice.status"
	AuditInvoicePayment  = "invoice.payment"
	AuditInvoiceDelete   = "invoice.delete"
	AuditTransactionPost = "transaction.record"
	AuditBudgetSet       = "budget.set"
	AuditAccountCreate   = "account.create"
)

// AuditEntry is one row of the ledger audit trail. ActorID is the creator
// supplied with the write, never a session lookup.
type AuditEntry struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID int64
	Meta     map[string]any
	At       time.Time
}

// Auditor records audit entries. Ledger services treat a failing auditor as
// non-fatal for the already committed write.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditLogger writes entries into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == 0 {
		return errors.New("audit entry requires action, entity and entity id")
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`, entry.ActorID, entry.Action, entry.Entity, strconv.FormatInt(entry.EntityID, 10), meta, at)
	return err
}
