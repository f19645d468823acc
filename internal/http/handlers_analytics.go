package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"gonum.org/v1/plot/vg"

	"kakeibo/internal/analytics"
	"kakeibo/internal/chart"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

const (
	pngWidth  = 8 * vg.Inch
	pngHeight = 4.5 * vg.Inch
)

type analyticsPage struct {
	Title    string
	Active   string
	Flash    *Flash
	Report   analytics.Report
	Monthly  template.HTML
	Category template.HTML
}

// chartsPayload is the JSON shape of /analytics/charts.json.
type chartsPayload struct {
	Monthly  *chart.Chart `json:"monthly"`
	Category *chart.Chart `json:"category"`
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	monthly, category, err := s.renderCanvases(r.Context(), snap.Charts)
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	monthlyHTML, err := monthly.HTML()
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	categoryHTML, err := category.HTML()
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "analytics.html", analyticsPage{
		Title:    "支出分析",
		Active:   "analytics",
		Flash:    popFlash(w, r),
		Report:   snap.Report,
		Monthly:  monthlyHTML,
		Category: categoryHTML,
	})
}

func (s *Server) handleChartsJSON(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	monthly, category, err := s.renderCanvases(r.Context(), snap.Charts)
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chartsPayload{Monthly: monthly.Chart(), Category: category.Chart()})
}

// handleChartPNG serves monthly.png and category.png rendered on the server.
func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok || (name != "monthly" && name != "category") {
		http.NotFound(w, r)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	var (
		c   *chart.Chart
		err error
		id  string
	)
	if name == "monthly" {
		id = chart.MonthlyChartID
		c, err = s.renderer.MonthlyTrend(snap.Charts.MonthlyLabels, snap.Charts.MonthlyValues)
	} else {
		id = chart.CategoryChartID
		c, err = s.renderer.CategoryBreakdown(snap.Charts.CategoryLabels, snap.Charts.CategoryValues)
	}
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	surface := chart.NewImage(id, pngWidth, pngHeight)
	err = surface.Attach(c)
	s.metrics.ChartRendered("image", err)
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	s.events.LogChartRendered(r.Context(), id, "image", c.Points())

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(surface.PNG())
}

func (s *Server) handleStatsJSON(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Report)
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (services.Snapshot, bool) {
	snap, err := s.analytics.Snapshot(r.Context())
	if err != nil {
		s.events.LogError(r.Context(), "Build analytics failed", err, log.OpRender, nil)
		http.Error(w, "分析データの取得に失敗しました", http.StatusInternalServerError)
		return services.Snapshot{}, false
	}
	return snap, true
}

// renderCanvases attaches both charts to fresh canvases.
func (s *Server) renderCanvases(ctx context.Context, data chart.Data) (*chart.CanvasSurface, *chart.CanvasSurface, error) {
	monthly := chart.NewCanvas(chart.MonthlyChartID)
	category := chart.NewCanvas(chart.CategoryChartID)
	err := s.renderer.Render(data, monthly, category)
	s.metrics.ChartRendered("canvas", err)
	if err != nil {
		return nil, nil, err
	}
	s.events.LogChartRendered(ctx, chart.MonthlyChartID, "canvas", monthly.Chart().Points())
	s.events.LogChartRendered(ctx, chart.CategoryChartID, "canvas", category.Chart().Points())
	return monthly, category, nil
}

func (s *Server) chartFailed(w http.ResponseWriter, r *http.Request, err error) {
	fields := log.NewFields()
	var mismatch *chart.LengthMismatchError
	if errors.As(err, &mismatch) {
		fields["series"] = mismatch.Series
	}
	s.events.LogError(r.Context(), "Render chart failed", err, log.OpRender, fields)
	http.Error(w, "グラフの描画に失敗しました", http.StatusInternalServerError)
}
