// Package plots renders the pipeline's figures to PNG files: the Spearman
// heatmap, per-level outcome bars, the 2-D embedding, and the ROC curve.
package plots

import (
	"image/color"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tisono/diabrisk/dataset"
	"github.com/tisono/diabrisk/eda"
	"github.com/tisono/diabrisk/pkg/errors"
)

var (
	colorNo  = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	colorYes = color.RGBA{R: 205, G: 92, B: 92, A: 255}
)

// corrGrid adapts a correlation matrix to the heatmap grid interface.
type corrGrid struct {
	m *eda.CorrelationMatrix
}

func (g corrGrid) Dims() (int, int)   { return len(g.m.Features), len(g.m.Features) }
func (g corrGrid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// CorrelationHeatmap renders the pairwise rho matrix. The diverging palette
// is anchored at [-1, 1] so hue is comparable across runs.
func CorrelationHeatmap(m *eda.CorrelationMatrix, path string) error {
	if len(m.Features) == 0 {
		return errors.NewValueError("plots.CorrelationHeatmap", "empty correlation matrix")
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	h := plotter.NewHeatMap(corrGrid{m: m}, cm.Palette(255))
	h.Min = -1
	h.Max = 1

	p := plot.New()
	p.Title.Text = "Spearman correlation"
	p.X.Tick.Marker = featureTicks{names: m.Features}
	p.Y.Tick.Marker = featureTicks{names: m.Features}
	p.X.Tick.Label.Rotation = -1.2
	p.X.Tick.Label.XAlign = -0.9
	p.Add(h)

	size := vg.Length(len(m.Features)) * 0.35 * vg.Inch
	if size < 5*vg.Inch {
		size = 5 * vg.Inch
	}
	if err := p.Save(size, size, path); err != nil {
		return errors.Wrap(err, "save heatmap")
	}
	return nil
}

// featureTicks labels integer grid positions with feature names.
type featureTicks struct {
	names []string
}

func (t featureTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, name := range t.names {
		v := float64(i)
		if v < min || v > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: name})
	}
	return ticks
}

// OutcomeBars draws, for each level of a predictor, the share of each
// outcome category as side-by-side bars.
func OutcomeBars(rows []eda.ProportionRow, feature, path string) error {
	if len(rows) == 0 {
		return errors.NewValueError("plots.OutcomeBars", "no proportion rows")
	}
	no := make(plotter.Values, len(rows))
	yes := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		no[i] = r.Share[dataset.OutcomeNo]
		yes[i] = r.Share[dataset.OutcomeYes]
		labels[i] = trimFloat(r.Level)
	}

	w := vg.Points(12)
	barsNo, err := plotter.NewBarChart(no, w)
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	barsNo.Color = colorNo
	barsNo.Offset = -w / 2
	barsYes, err := plotter.NewBarChart(yes, w)
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	barsYes.Color = colorYes
	barsYes.Offset = w / 2

	p := plot.New()
	p.Title.Text = "Outcome share by " + feature
	p.X.Label.Text = feature
	p.Y.Label.Text = "share"
	p.Add(barsNo, barsYes)
	p.Legend.Add(dataset.OutcomeNo, barsNo)
	p.Legend.Add(dataset.OutcomeYes, barsYes)
	p.Legend.Top = true
	p.NominalX(labels...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "save bars")
	}
	return nil
}

// EmbeddingScatter draws the 2-D layout with one glyph color per outcome
// category. The layout rows must align with the outcome slice.
func EmbeddingScatter(layout *mat.Dense, outcome []string, path string) error {
	rows, _ := layout.Dims()
	if rows != len(outcome) {
		return errors.NewDimensionError("plots.EmbeddingScatter", rows, len(outcome))
	}
	var ptsNo, ptsYes plotter.XYs
	for i := 0; i < rows; i++ {
		pt := plotter.XY{X: layout.At(i, 0), Y: layout.At(i, 1)}
		if outcome[i] == dataset.OutcomeYes {
			ptsYes = append(ptsYes, pt)
		} else {
			ptsNo = append(ptsNo, pt)
		}
	}

	p := plot.New()
	p.Title.Text = "2-D embedding"
	p.Add(plotter.NewGrid())

	sNo, err := plotter.NewScatter(ptsNo)
	if err != nil {
		return errors.Wrap(err, "scatter")
	}
	sNo.GlyphStyle.Color = colorNo
	sNo.GlyphStyle.Radius = vg.Points(2)
	sYes, err := plotter.NewScatter(ptsYes)
	if err != nil {
		return errors.Wrap(err, "scatter")
	}
	sYes.GlyphStyle.Color = colorYes
	sYes.GlyphStyle.Radius = vg.Points(2)

	p.Add(sNo, sYes)
	p.Legend.Add(dataset.OutcomeNo, sNo)
	p.Legend.Add(dataset.OutcomeYes, sYes)
	p.Legend.Top = true

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrap(err, "save scatter")
	}
	return nil
}

// ROCCurve draws the receiver operating characteristic with the chance
// diagonal for reference.
func ROCCurve(fpr, tpr []float64, auc float64, path string) error {
	if len(fpr) != len(tpr) || len(fpr) == 0 {
		return errors.NewValueError("plots.ROCCurve", "fpr and tpr must be equal length and non-empty")
	}
	pts := make(plotter.XYs, len(fpr))
	for i := range fpr {
		pts[i].X = fpr[i]
		pts[i].Y = tpr[i]
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "roc line")
	}
	curve.LineStyle.Width = vg.Points(2)
	curve.LineStyle.Color = colorYes

	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "diagonal")
	}
	diag.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}

	p := plot.New()
	p.Title.Text = "ROC (AUC " + trimFloat(auc) + ")"
	p.X.Label.Text = "false positive rate"
	p.Y.Label.Text = "true positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid(), curve, diag)

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrap(err, "save roc")
	}
	return nil
}

// FeatureHistogram draws the distribution of one predictor.
func FeatureHistogram(values []float64, feature, path string) error {
	if len(values) == 0 {
		return errors.NewValueError("plots.FeatureHistogram", "no values")
	}
	vals := make(plotter.Values, len(values))
	copy(vals, values)
	h, err := plotter.NewHist(vals, 16)
	if err != nil {
		return errors.Wrap(err, "histogram")
	}
	h.Normalize(1)

	p := plot.New()
	p.Title.Text = "Histogram of " + feature
	p.Add(h)
	if err := p.Save(4*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "save histogram")
	}
	return nil
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 3, 64)
}
