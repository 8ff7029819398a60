package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesreport/internal/core"
	"salesreport/internal/middleware/ratelimit"
	"salesreport/internal/report"
	"salesreport/internal/storage"
	"salesreport/internal/storage/memory"
)

var (
	jan = core.NewMonth(2023, 1)
	feb = core.NewMonth(2023, 2)
	mar = core.NewMonth(2023, 3)
)

func sale(item string, m core.Month, units, cents int64) core.Sale {
	return core.Sale{CustomerID: "c1", Item: item, Month: m, Units: units, TotalPrice: core.Money{Cents: cents}}
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	_, err := store.SaveSales(context.Background(), []core.Sale{
		sale("Beans", jan, 3, 3000),
		sale("Mug", jan, 4, 4000),
		sale("Beans", feb, 5, 5000),
		sale("Filters", feb, 1, 500),
		sale("Mug", mar, 6, 6000),
	})
	require.NoError(t, err)
	return store
}

func newTestServer(t *testing.T, store storage.TotalsReader, opts Options) *Server {
	t.Helper()
	if opts.TopN == 0 {
		opts.TopN = 2
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(store, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, memory.New(), Options{})
	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

type failingTotals struct{}

func (failingTotals) MonthlyItemTotals(context.Context) ([]core.ItemMonthTotal, error) {
	return nil, errors.New("database is locked")
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t, memory.New(), Options{})
	assert.Equal(t, http.StatusOK, get(t, s, "/readyz").Code)

	down := newTestServer(t, failingTotals{}, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, down, "/readyz").Code)
}

func TestReportAPI(t *testing.T) {
	s := newTestServer(t, seededStore(t), Options{})

	rec := get(t, s, "/api/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"2023-01", "2023-02", "2023-03"}, body.Months)
	require.Len(t, body.TopItems, 2)
	assert.Equal(t, "Mug", body.TopItems[0].Name)
	assert.Equal(t, "Beans", body.TopItems[1].Name)
	assert.Equal(t, []int64{4, 0, 6}, body.Units["Mug"])
	assert.Equal(t, []string{"70.00", "50.00", "60.00"}, body.Revenue)
	assert.Equal(t, int64(18), body.TotalUnits)
	assert.Equal(t, "180.00", body.TotalRevenue)
}

func TestReportAPITopParam(t *testing.T) {
	s := newTestServer(t, seededStore(t), Options{})

	var body reportResponse
	rec := get(t, s, "/api/report?top=0")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.TopItems, 3)
	assert.Equal(t, "185.00", body.TotalRevenue)

	for _, bad := range []string{"many", "-1", "100000"} {
		rec := get(t, s, "/api/report?top="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestReportAPIEmptyStore(t *testing.T) {
	s := newTestServer(t, memory.New(), Options{})

	rec := get(t, s, "/api/report")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no sales loaded")
}

func TestReportAPIStoreError(t *testing.T) {
	s := newTestServer(t, failingTotals{}, Options{})
	assert.Equal(t, http.StatusInternalServerError, get(t, s, "/api/report").Code)
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t, seededStore(t), Options{Chart: report.ChartOptions{Format: report.FormatSVG}})

	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Sales report</h1>")
	assert.Contains(t, body, `/charts/units.svg?top=2`)
	assert.Contains(t, body, "<td>2023-03</td>")
	assert.Contains(t, body, "<td>180.00</td>")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestIndexPageEmpty(t *testing.T) {
	s := newTestServer(t, memory.New(), Options{})

	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No sales loaded yet")
	assert.NotContains(t, rec.Body.String(), "<img")
}

func TestIndexEscapesItemNames(t *testing.T) {
	store := memory.New()
	_, err := store.SaveSales(context.Background(), []core.Sale{sale("<b>Mug</b>", jan, 1, 100)})
	require.NoError(t, err)
	s := newTestServer(t, store, Options{})

	body := get(t, s, "/").Body.String()
	assert.Contains(t, body, "&lt;b&gt;Mug&lt;/b&gt;")
	assert.NotContains(t, body, "<b>Mug</b>")
}

func TestUnknownPath(t *testing.T) {
	s := newTestServer(t, seededStore(t), Options{})
	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").Code)
}

func TestChartPNG(t *testing.T) {
	s := newTestServer(t, seededStore(t), Options{CacheTTL: 30 * time.Second})

	rec := get(t, s, "/charts/units.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestChartSVG(t *testing.T) {
	s := newTestServer(t, seededStore(t), Options{})

	rec := get(t, s, "/charts/revenue.svg?top=1&width=600&height=300")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestChartIsCached(t *testing.T) {
	store := seededStore(t)
	s := newTestServer(t, store, Options{})

	first := get(t, s, "/charts/units.svg")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, s.chartCache.Size())

	// Clearing the store does not change a cached chart until invalidation
	require.NoError(t, store.Reset(context.Background()))
	second := get(t, s, "/charts/units.svg")
	assert.Equal(t, first.Body.String(), second.Body.String())

	s.InvalidateCharts()
	assert.Equal(t, http.StatusNotFound, get(t, s, "/charts/units.svg").Code)
}

func TestChartBadRequests(t *testing.T) {
	s := newTestServer(t, seededStore(t), Options{})

	tests := []struct {
		target string
		want   int
	}{
		{"/charts/pie.png", http.StatusNotFound},
		{"/charts/units.gif", http.StatusNotFound},
		{"/charts/units", http.StatusNotFound},
		{"/charts/units.png?width=10", http.StatusBadRequest},
		{"/charts/units.png?height=abc", http.StatusBadRequest},
		{"/charts/units.png?top=-3", http.StatusBadRequest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, get(t, s, tt.target).Code, tt.target)
	}
}

func TestChartEmptyStore(t *testing.T) {
	s := newTestServer(t, memory.New(), Options{})
	assert.Equal(t, http.StatusNotFound, get(t, s, "/charts/revenue.png").Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, seededStore(t), Options{RateLimit: ratelimit.Config{RequestsPerMinute: 2}})

	assert.Equal(t, http.StatusOK, get(t, s, "/api/report").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/api/report").Code)
	rec := get(t, s, "/api/report")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Probes are not rate limited
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, seededStore(t), Options{})
	assert.NotEmpty(t, get(t, s, "/healthz").Header().Get("X-Request-ID"))
}

func TestShutdownIsIdempotent(t *testing.T) {
	s, err := NewServer(memory.New(), Options{})
	require.NoError(t, err)
	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
}
