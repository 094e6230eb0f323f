package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/coopledger/coopledger/internal/shared"
)

type stubTimelineRepo struct {
	rows       []TimelineRow
	lastWindow Query
	lastAll    Query
}

func (s *stubTimelineRepo) Window(ctx context.Context, q Query) ([]TimelineRow, error) {
	s.lastWindow = q
	rows := s.rows
	if q.Offset >= len(rows) {
		return nil, nil
	}
	rows = rows[q.Offset:]
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (s *stubTimelineRepo) All(ctx context.Context, q Query) ([]TimelineRow, error) {
	s.lastAll = q
	return s.rows, nil
}

func sampleRows() []TimelineRow {
	at := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	return []TimelineRow{
		{At: at, ActorID: 7, Action: shared.AuditInvoiceCreate, Entity: "invoice", EntityID: "1", Meta: json.RawMessage(`{"number":"INV-2024030001"}`)},
		{At: at.Add(-time.Hour), ActorID: 7, Action: shared.AuditBudgetSet, Entity: "budget", EntityID: "4"},
		{At: at.Add(-2 * time.Hour), ActorID: 9, Action: shared.AuditTransactionPost, Entity: "transaction", EntityID: "12"},
	}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: sampleRows()}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Page:     1,
		PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Equal(t, 3, repo.lastWindow.Limit)
	require.Equal(t, 0, repo.lastWindow.Offset)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), repo.lastWindow.ToBefore)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Equal(t, 2, repo.lastWindow.Offset)
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{PageSize: 500, Entity: "  invoice "})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, result.Paging.PageSize)
	require.Equal(t, maxPageSize+1, repo.lastWindow.Limit)
	require.Equal(t, "invoice", repo.lastWindow.Entity)
	require.NotNil(t, result.Rows)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, exportHeaders, records[0])
	require.Equal(t, []string{"2024-03-10T10:00:00Z", "7", shared.AuditInvoiceCreate, "invoice", "1", `{"number":"INV-2024030001"}`}, records[1])
}

func newTestRouter(repo Repository) http.Handler {
	h := NewHandler(nil, NewService(repo))
	h.now = func() time.Time { return time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-Test-Actor") != "" {
				req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: 7}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/audit", h.MountRoutes)
	return r
}

func TestHandlerTimelineDefaultsToLastWeek(t *testing.T) {
	repo := &stubTimelineRepo{rows: sampleRows()}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/audit/?entity=invoice", nil)
	req.Header.Set("X-Test-Actor", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), repo.lastWindow.FromAt)
	require.Equal(t, time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC), repo.lastWindow.ToBefore)
	require.Equal(t, "invoice", repo.lastWindow.Entity)

	var body Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 3)
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	router := newTestRouter(&stubTimelineRepo{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, query := range []string{"from=2024-01-01&to=2024-06-01", "from=2024-03-10&to=2024-03-01", "from=yesterday", "actor_id=-2"} {
		req := httptest.NewRequest(http.MethodGet, "/audit/?"+query, nil)
		req.Header.Set("X-Test-Actor", "1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestHandlerExportCSV(t *testing.T) {
	repo := &stubTimelineRepo{rows: sampleRows()}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/audit/export?from=2024-03-01&to=2024-03-31&actor_id=7", nil)
	req.Header.Set("X-Test-Actor", "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "audit-20240301-20240331.csv")
	require.Equal(t, int64(7), repo.lastAll.ActorID)
	require.Contains(t, rec.Body.String(), "occurred_at,actor_id")
}
