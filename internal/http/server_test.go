package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/metrics"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/ports/portstest"
	"kakeibo/internal/services"
	"kakeibo/internal/storage/memory"
)

type testServer struct {
	*Server
	store *memory.Store
}

func newTestServer(t *testing.T, mutate ...func(*Deps)) *testServer {
	t.Helper()
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	logger := log.New(cfg)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := memory.New()
	analytics := services.NewAnalyticsService(store, time.Minute, m, logger)
	deps := Deps{
		Expenses:  services.NewExpenseService(store, nil, analytics, m, logger),
		Analytics: analytics,
		Logger:    logger,
		Metrics:   m,
		Gatherer:  reg,
		RateLimit: ratelimit.Config{RequestsPerSecond: 100, Burst: 100},
	}
	for _, f := range mutate {
		f(&deps)
	}
	srv, err := NewServer(":0", deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, store: store}
}

func (s *testServer) do(t *testing.T, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	req.RemoteAddr = "192.0.2.10:4321"
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, expenses ...core.Expense) []int64 {
	t.Helper()
	var ids []int64
	for _, e := range expenses {
		id, err := s.store.Create(context.Background(), e)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func flashCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie {
			return c
		}
	}
	t.Fatalf("no flash cookie in response")
	return nil
}

func validForm() url.Values {
	return url.Values{
		"date":        {"2024-02-10"},
		"category":    {"食費"},
		"amount":      {"1,200"},
		"description": {"スーパー"},
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) {
		d.Checks = map[string]Check{
			"storage": func(context.Context) error { return nil },
		}
	})

	rec := srv.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = srv.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage":"ok"`)
}

func TestReadyFailingCheck(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) {
		d.Checks = map[string]Check{
			"amqp": func(context.Context) error { return errors.New("connection closed") },
		}
	})

	rec := srv.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed: connection closed")
}

func TestListEmptyAndSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "支出はまだ登録されていません")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = srv.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateExpenseFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/expenses/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<option value="交通費"`)

	invalid := validForm()
	invalid.Set("amount", "abc")
	invalid.Set("description", "")
	rec = srv.do(t, http.MethodPost, "/expenses/new", invalid)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "入力内容に誤りがあります")
	assert.Contains(t, body, "金額は1円以上の整数で入力してください")
	assert.Contains(t, body, "説明を入力してください")

	rec = srv.do(t, http.MethodPost, "/expenses/new", validForm())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	flash := flashCookieFrom(t, rec)

	rec = srv.do(t, http.MethodGet, "/", nil, flash)
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "支出を登録しました")
	assert.Contains(t, body, "スーパー")
	assert.Contains(t, body, "1,200円")

	expenses, err := srv.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, core.Yen(1200), expenses[0].Amount)
}

// rejectingStore fails every Create with err.
type rejectingStore struct {
	*memory.Store
	err error
}

func (s *rejectingStore) Create(context.Context, core.Expense) (int64, error) {
	return 0, s.err
}

func TestCreateStoreFailure(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"field error", core.ErrInvalidCategory, http.StatusUnprocessableEntity, "入力内容に誤りがあります"},
		{"unexpected error", errors.New("disk full"), http.StatusInternalServerError, "保存に失敗しました"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, func(d *Deps) {
				store := &rejectingStore{Store: memory.New(), err: tc.err}
				d.Expenses = services.NewExpenseService(store, nil, d.Analytics, d.Metrics, d.Logger)
			})

			rec := srv.do(t, http.MethodPost, "/expenses/new", validForm())
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
			assert.NotContains(t, rec.Body.String(), "disk full")
		})
	}
}

func TestEditAndDeleteExpense(t *testing.T) {
	srv := newTestServer(t)
	ids := srv.seed(t, portstest.Expense(2024, 1, 5, core.Transport, 480, "タクシー"))
	base := "/expenses/" + strconv.FormatInt(ids[0], 10)

	rec := srv.do(t, http.MethodGet, base+"/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="480"`)

	form := validForm()
	form.Set("category", "交通費")
	form.Set("amount", "520")
	rec = srv.do(t, http.MethodPost, base+"/edit", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "updated", flashCookieFrom(t, rec).Value)

	got, err := srv.store.Get(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, core.Yen(520), got.Amount)

	rec = srv.do(t, http.MethodGet, base+"/delete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "よろしいですか")

	rec = srv.do(t, http.MethodPost, base+"/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "deleted", flashCookieFrom(t, rec).Value)

	_, err = srv.store.Get(context.Background(), ids[0])
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUnknownExpense(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/expenses/99/edit", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "missing", flashCookieFrom(t, rec).Value)

	rec = srv.do(t, http.MethodPost, "/expenses/99/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = srv.do(t, http.MethodGet, "/expenses/abc/edit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyticsPage(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t,
		portstest.Expense(2024, 1, 10, core.Food, 1000, "食材"),
		portstest.Expense(2024, 2, 12, core.Food, 1200, "食材"),
		portstest.Expense(2024, 2, 20, core.Transport, 300, "電車"),
	)

	rec := srv.do(t, http.MethodGet, "/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<canvas id="monthlyChart" data-chart="`)
	assert.Contains(t, body, `<canvas id="categoryChart" data-chart="`)
	assert.Contains(t, body, "/static/analytics.js")
	assert.Contains(t, body, "2,500円")
}

func TestChartsJSON(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t,
		portstest.Expense(2024, 1, 10, core.Food, 1000, "食材"),
		portstest.Expense(2024, 2, 12, core.Housing, 1500, "家賃"),
	)

	rec := srv.do(t, http.MethodGet, "/analytics/charts.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload struct {
		Monthly struct {
			Type string `json:"type"`
			Data struct {
				Labels   []string `json:"labels"`
				Datasets []struct {
					Label string    `json:"label"`
					Data  []float64 `json:"data"`
				} `json:"datasets"`
			} `json:"data"`
		} `json:"monthly"`
		Category struct {
			Type    string `json:"type"`
			Options struct {
				Plugins struct {
					Legend struct {
						Position string `json:"position"`
					} `json:"legend"`
				} `json:"plugins"`
			} `json:"options"`
		} `json:"category"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "line", payload.Monthly.Type)
	assert.Equal(t, []string{"2024-01", "2024-02"}, payload.Monthly.Data.Labels)
	require.Len(t, payload.Monthly.Data.Datasets, 1)
	assert.Equal(t, "月別支出", payload.Monthly.Data.Datasets[0].Label)
	assert.Equal(t, []float64{1000, 1500}, payload.Monthly.Data.Datasets[0].Data)
	assert.Equal(t, "doughnut", payload.Category.Type)
	assert.Equal(t, "bottom", payload.Category.Options.Plugins.Legend.Position)
}

func TestChartPNG(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t, portstest.Expense(2024, 1, 10, core.Food, 1000, "食材"))

	for _, name := range []string{"monthly", "category"} {
		rec := srv.do(t, http.MethodGet, "/analytics/charts/"+name+".png", nil)
		require.Equal(t, http.StatusOK, rec.Code, name)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, rec.Body.Bytes()[:4])
	}

	rec := srv.do(t, http.MethodGet, "/analytics/charts/weekly.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(t, http.MethodGet, "/analytics/charts/monthly.svg", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsJSON(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t,
		portstest.Expense(2024, 1, 10, core.Food, 1000, "食材"),
		portstest.Expense(2024, 2, 12, core.Food, 3000, "食材"),
	)

	rec := srv.do(t, http.MethodGet, "/analytics/stats.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		Basic struct {
			Total int64 `json:"total_expense"`
			Count int   `json:"transaction_count"`
		} `json:"basic_stats"`
		Prediction *struct {
			Prediction int64 `json:"prediction"`
		} `json:"prediction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, int64(4000), report.Basic.Total)
	assert.Equal(t, 2, report.Basic.Count)
	require.NotNil(t, report.Prediction)
	assert.InDelta(t, 5000, report.Prediction.Prediction, 1)
}

func TestAnalyticsInvalidatedByWrites(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/analytics/stats.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"transaction_count":0`)

	rec = srv.do(t, http.MethodPost, "/expenses/new", validForm())
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = srv.do(t, http.MethodGet, "/analytics/stats.json", nil)
	assert.Contains(t, rec.Body.String(), `"transaction_count":1`)
}

func TestPostRateLimit(t *testing.T) {
	srv := newTestServer(t, func(d *Deps) {
		d.RateLimit = ratelimit.Config{RequestsPerSecond: 0.01, Burst: 1}
	})

	rec := srv.do(t, http.MethodPost, "/expenses/new", validForm())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	rec = srv.do(t, http.MethodPost, "/expenses/new", validForm())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Reads are never limited.
	rec = srv.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodGet, "/healthz", nil)

	rec := srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `kakeibo_http_requests_total{method="GET",route="GET /healthz",status="200"} 1`)
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/static/analytics.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data-chart")
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}
