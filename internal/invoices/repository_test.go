package invoices

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/coopledger/coopledger/internal/shared"
)

func TestClassifyTxErrorKeepsKinds(t *testing.T) {
	require.NoError(t, classifyTxError(nil))

	exhausted := fmt.Errorf("%w for 2024-03", ErrSequenceExhausted)
	err := classifyTxError(exhausted)
	require.ErrorIs(t, err, ErrSequenceExhausted)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.NotErrorIs(t, err, shared.ErrStore)

	for _, kind := range []error{
		shared.Validation("items", "at least one item is required"),
		shared.Consistency("invoices: create", "total mismatch"),
		fmt.Errorf("invoices: 7: %w", shared.ErrNotFound),
	} {
		err := classifyTxError(kind)
		require.Equal(t, kind, err)
		require.NotErrorIs(t, err, shared.ErrStore)
	}
}

func TestClassifyTxErrorNumberRaces(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "invoices_invoice_number_key"}
	require.ErrorIs(t, classifyTxError(fmt.Errorf("insert: %w", unique)), ErrNumberConflict)
	require.ErrorIs(t, classifyTxError(&pgconn.PgError{Code: "40001"}), ErrNumberConflict)

	other := &pgconn.PgError{Code: "23505", ConstraintName: "idempotency_keys_pkey"}
	require.ErrorIs(t, classifyTxError(other), shared.ErrStore)
	require.ErrorIs(t, classifyTxError(errors.New("conn reset")), shared.ErrStore)
}
