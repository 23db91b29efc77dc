package metrics

import (
	"image/color"
	"path/filepath"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ROC はROC曲線の点列
//
// FPR は昇順に並び、TPR[i] と FPR[i] は Thresholds[i] 以上を陽性とした時の値。
type ROC struct {
	FPR        []float64 `json:"fpr"`
	TPR        []float64 `json:"tpr"`
	Thresholds []float64 `json:"thresholds"`
}

// ROCCurve はスコアからROC曲線を計算する
func ROCCurve(yTrue, yScore *mat.VecDense) (*ROC, error) {
	n, err := checkVectors("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, err
	}
	if err := checkBinary("ROCCurve", yTrue); err != nil {
		return nil, err
	}
	nPos := countPositives(yTrue)
	if nPos == 0 || nPos == n {
		return nil, errors.NewValueError("ROCCurve", "only one class present in y_true")
	}

	scores := make([]float64, n)
	classes := make([]bool, n)
	for i := 0; i < n; i++ {
		scores[i] = yScore.AtVec(i)
		classes[i] = yTrue.AtVec(i) == 1
	}
	stat.SortWeightedLabeled(scores, classes, nil)

	tpr, fpr, thresh := stat.ROC(nil, scores, classes, nil)
	return &ROC{FPR: fpr, TPR: tpr, Thresholds: thresh}, nil
}

// Area は台形則で曲線下面積を計算する
func (r *ROC) Area() float64 {
	if len(r.FPR) < 2 {
		return 0
	}
	return integrate.Trapezoidal(r.FPR, r.TPR)
}

// SaveROCPlot はROC曲線を画像として保存する
//
// 形式は拡張子（.png, .svg, .pdf など）から決まる。
func SaveROCPlot(r *ROC, path, title string) error {
	if r == nil || len(r.FPR) == 0 {
		return errors.NewValueError("SaveROCPlot", "empty ROC curve")
	}
	if filepath.Ext(path) == "" {
		return errors.NewValidationError("path", "must have an image extension", path)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(r.FPR))
	for i := range r.FPR {
		pts[i].X = r.FPR[i]
		pts[i].Y = r.TPR[i]
	}
	curve, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "failed to build ROC line")
	}
	curve.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	curve.Width = vg.Points(2)

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "failed to build chance line")
	}
	chance.Color = color.Gray{Y: 160}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(plotter.NewGrid(), chance, curve)
	p.Legend.Add("ROC", curve)
	p.Legend.Add("chance", chance)
	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save ROC plot to %s", path)
	}
	return nil
}
