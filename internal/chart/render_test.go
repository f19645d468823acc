package chart

import (
	"encoding/json"
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSurface captures attached charts for inspection.
type recordingSurface struct {
	id       string
	attached []*Chart
	err      error
}

func (s *recordingSurface) ID() string { return s.id }

func (s *recordingSurface) Ready() error {
	if len(s.attached) > 0 {
		return ErrSurfaceOccupied
	}
	return nil
}

func (s *recordingSurface) Attach(c *Chart) error {
	if s.err != nil {
		return s.err
	}
	s.attached = append(s.attached, c)
	return nil
}

func TestRenderMonthlyScenario(t *testing.T) {
	r := NewRenderer(DefaultTicks())
	monthly := &recordingSurface{id: MonthlyChartID}
	category := &recordingSurface{id: CategoryChartID}

	err := r.Render(Data{
		MonthlyLabels: []string{"2024-01", "2024-02"},
		MonthlyValues: []float64{1000, 1500},
	}, monthly, category)
	require.NoError(t, err)
	require.Len(t, monthly.attached, 1)

	c := monthly.attached[0]
	assert.Equal(t, Line, c.Type)
	require.Len(t, c.Data.Datasets, 1)
	assert.Equal(t, 2, c.Points())
	assert.Equal(t, []float64{1000, 1500}, c.Data.Datasets[0].Data)
	assert.Equal(t, []string{"2024-01", "2024-02"}, c.Data.Labels)
	assert.Equal(t, MonthlySeriesLabel, c.Data.Datasets[0].Label)
	assert.Equal(t, "rgb(75, 192, 192)", c.Data.Datasets[0].BorderColor)
	assert.InDelta(t, 0.1, c.Data.Datasets[0].Tension, 1e-9)
	assert.True(t, c.Options.Responsive)
	assert.True(t, c.Options.Scales["y"].BeginAtZero)

	ticks, ok := c.ValueTicks()
	require.True(t, ok)
	assert.Equal(t, "1,500円", ticks.Format(1500))
}

func TestRenderCategoryScenario(t *testing.T) {
	r := NewRenderer(DefaultTicks())
	monthly := &recordingSurface{id: MonthlyChartID}
	category := &recordingSurface{id: CategoryChartID}

	err := r.Render(Data{
		CategoryLabels: []string{"Food", "Transport", "Other"},
		CategoryValues: []float64{300, 100, 50},
	}, monthly, category)
	require.NoError(t, err)
	require.Len(t, category.attached, 1)

	c := category.attached[0]
	assert.Equal(t, Doughnut, c.Type)
	require.Len(t, c.Data.Datasets, 1)
	assert.Empty(t, c.Data.Datasets[0].Label)
	assert.Equal(t, 3, c.Points())
	assert.Equal(t, []string{Palette[0], Palette[1], Palette[2]}, c.Data.Datasets[0].BackgroundColor)
	require.NotNil(t, c.Options.Plugins)
	assert.Equal(t, "bottom", c.Options.Plugins.Legend.Position)
	assert.True(t, c.Options.Responsive)
}

func TestMonthlyTrendPreservesOrder(t *testing.T) {
	r := NewRenderer(DefaultTicks())
	labels := []string{"2023-11", "2023-12", "2024-01", "2024-02", "2024-03"}
	values := []float64{5, 3, 9, 0, 7}

	c, err := r.MonthlyTrend(labels, values)
	require.NoError(t, err)
	assert.Equal(t, values, c.Data.Datasets[0].Data)
	assert.Equal(t, labels, c.Data.Labels)

	// The chart owns its copy of the inputs.
	values[0] = 100
	assert.Equal(t, 5.0, c.Data.Datasets[0].Data[0])
}

func TestSliceColorsCycle(t *testing.T) {
	colors := SliceColors(14)
	require.Len(t, colors, 14)
	for i, c := range colors {
		assert.Equal(t, Palette[i%6], c, "slice %d", i)
	}
	assert.Empty(t, SliceColors(0))
}

func TestRenderLengthMismatch(t *testing.T) {
	r := NewRenderer(DefaultTicks())

	cases := []struct {
		name   string
		data   Data
		series string
	}{
		{
			name:   "monthly",
			data:   Data{MonthlyLabels: []string{"2024-01", "2024-02"}, MonthlyValues: []float64{1}},
			series: "monthly",
		},
		{
			name:   "category",
			data:   Data{CategoryLabels: []string{"食費"}, CategoryValues: []float64{1, 2}},
			series: "category",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			monthly := &recordingSurface{id: MonthlyChartID}
			category := &recordingSurface{id: CategoryChartID}

			err := r.Render(tc.data, monthly, category)
			var mismatch *LengthMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tc.series, mismatch.Series)
			assert.ErrorAs(t, tc.data.Validate(), &mismatch)

			// Nothing is attached when the input is rejected.
			assert.Empty(t, monthly.attached)
			assert.Empty(t, category.attached)
		})
	}
}

func TestRenderMissingSurface(t *testing.T) {
	r := NewRenderer(DefaultTicks())
	surface := &recordingSurface{id: MonthlyChartID}

	assert.ErrorIs(t, r.Render(Data{}, nil, surface), ErrMissingSurface)
	assert.ErrorIs(t, r.Render(Data{}, surface, nil), ErrMissingSurface)
	assert.Empty(t, surface.attached)

	var canvas *CanvasSurface
	assert.ErrorIs(t, r.Render(Data{}, canvas, NewCanvas(CategoryChartID)), ErrMissingSurface)
}

func TestRenderChecksBothSurfacesFirst(t *testing.T) {
	r := NewRenderer(DefaultTicks())
	data := Data{
		MonthlyLabels:  []string{"2024-01"},
		MonthlyValues:  []float64{1000},
		CategoryLabels: []string{"食費"},
		CategoryValues: []float64{1000},
	}

	t.Run("nil canvas", func(t *testing.T) {
		monthly := NewCanvas(MonthlyChartID)
		var category *CanvasSurface

		err := r.Render(data, monthly, category)
		assert.ErrorIs(t, err, ErrMissingSurface)
		assert.Nil(t, monthly.Chart())
	})

	t.Run("nil image", func(t *testing.T) {
		monthly := NewImage(MonthlyChartID, 100, 100)
		var category *ImageSurface

		err := r.Render(data, monthly, category)
		assert.ErrorIs(t, err, ErrMissingSurface)
		assert.Nil(t, monthly.PNG())
	})

	t.Run("occupied category", func(t *testing.T) {
		monthly := NewCanvas(MonthlyChartID)
		category := NewCanvas(CategoryChartID)
		require.NoError(t, category.Attach(&Chart{Type: Doughnut}))

		err := r.Render(data, monthly, category)
		assert.ErrorIs(t, err, ErrSurfaceOccupied)
		assert.Contains(t, err.Error(), CategoryChartID)
		assert.Nil(t, monthly.Chart())
	})

	t.Run("occupied monthly", func(t *testing.T) {
		monthly := &recordingSurface{id: MonthlyChartID, attached: []*Chart{{Type: Line}}}
		category := &recordingSurface{id: CategoryChartID}

		assert.ErrorIs(t, r.Render(data, monthly, category), ErrSurfaceOccupied)
		assert.Len(t, monthly.attached, 1)
		assert.Empty(t, category.attached)
	})
}

func TestRenderAttachFailure(t *testing.T) {
	r := NewRenderer(DefaultTicks())
	boom := errors.New("no 2d context")
	monthly := &recordingSurface{id: MonthlyChartID, err: boom}

	err := r.Render(Data{}, monthly, &recordingSurface{id: CategoryChartID})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), MonthlyChartID)
}

func TestCanvasSurface(t *testing.T) {
	r := NewRenderer(DefaultTicks())
	monthly := NewCanvas(MonthlyChartID)
	category := NewCanvas(CategoryChartID)

	require.NoError(t, r.Render(Data{
		MonthlyLabels:  []string{"2024-01"},
		MonthlyValues:  []float64{1234},
		CategoryLabels: []string{"食費"},
		CategoryValues: []float64{1234},
	}, monthly, category))

	raw, err := monthly.ConfigJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "line", decoded["type"])
	assert.JSONEq(t, `{"locale":"ja-JP","suffix":"円"}`, mustJSON(t, decoded["options"].(map[string]any)["scales"].(map[string]any)["y"].(map[string]any)["ticks"].(map[string]any)["currency"]))

	// A surface holds one chart for its whole life.
	assert.ErrorIs(t, monthly.Attach(&Chart{Type: Line}), ErrSurfaceOccupied)

	_, err = NewCanvas("empty").ConfigJSON()
	assert.Error(t, err)

	html, err := category.HTML()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(html), `<canvas id="categoryChart" data-chart="{&#34;type&#34;:&#34;doughnut&#34;`))
	assert.NotContains(t, string(html), `"type"`)
}

func TestImageSurface(t *testing.T) {
	r := NewRenderer(DefaultTicks())
	monthly := NewImage(MonthlyChartID, 320, 240)
	category := NewImage(CategoryChartID, 320, 240)

	require.NoError(t, r.Render(Data{
		MonthlyLabels:  []string{"2024-01", "2024-02", "2024-03"},
		MonthlyValues:  []float64{1000, 1500, 1200},
		CategoryLabels: []string{"食費", "交通費", "住居費", "光熱費", "娯楽費", "その他", "雑費"},
		CategoryValues: []float64{300, 100, 50, 80, 20, 10, 5},
	}, monthly, category))

	pngMagic := []byte{0x89, 'P', 'N', 'G'}
	assert.Equal(t, pngMagic, monthly.PNG()[:4])
	assert.Equal(t, pngMagic, category.PNG()[:4])
	assert.ErrorIs(t, monthly.Attach(&Chart{Type: Line}), ErrSurfaceOccupied)
}

func TestImageSurfaceRejectsUnknownType(t *testing.T) {
	s := NewImage("x", 100, 100)
	assert.Error(t, s.Attach(&Chart{Type: "radar"}))
	assert.Nil(t, s.PNG())
}

func TestParseRGB(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 75, G: 192, B: 192, A: 255}, parseRGB("rgb(75, 192, 192)"))
	assert.Equal(t, color.Black, parseRGB("teal"))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
