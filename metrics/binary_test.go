package metrics

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

// captureWarnings はテスト中に発行された警告を収集する
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return &got
}

func TestConfusionMatrixScores(t *testing.T) {
	yTrue := vec(1, 1, 1, 0, 0, 0, 1, 0)
	yPred := vec(1, 1, 0, 0, 1, 0, 1, 0)

	cm, err := NewConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)
	assert.Equal(t, ConfusionMatrix{TruePositive: 3, FalsePositive: 1, TrueNegative: 3, FalseNegative: 1}, *cm)
	assert.Equal(t, 8, cm.Total())
	assert.InDelta(t, 0.75, cm.Accuracy(), 1e-12)
	assert.InDelta(t, 0.75, cm.Precision(), 1e-12)
	assert.InDelta(t, 0.75, cm.Recall(), 1e-12)
	assert.InDelta(t, 0.75, cm.F1Score(), 1e-12)

	p, err := Precision(yTrue, yPred)
	require.NoError(t, err)
	r, err := Recall(yTrue, yPred)
	require.NoError(t, err)
	f1, err := F1Score(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2*p*r/(p+r), f1, 1e-12)
}

func TestF1ScoreUndefined(t *testing.T) {
	warnings := captureWarnings(t)

	f1, err := F1Score(vec(0, 0, 0), vec(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, f1)
	require.Len(t, *warnings, 1)

	var w *errors.UndefinedMetricWarning
	require.True(t, errors.As((*warnings)[0], &w))
	assert.Equal(t, "F1Score", w.Metric)
}

func TestAUCInvariantToMonotoneTransform(t *testing.T) {
	yTrue := vec(0, 1, 0, 1, 1, 0, 1, 0)
	scores := []float64{0.1, 0.8, 0.45, 0.45, 0.9, 0.3, 0.2, 0.05}
	logits := make([]float64, len(scores))
	for i, p := range scores {
		logits[i] = math.Log(p / (1 - p))
	}

	a1, err := AUC(yTrue, vec(scores...))
	require.NoError(t, err)
	a2, err := AUC(yTrue, vec(logits...))
	require.NoError(t, err)
	assert.InDelta(t, a1, a2, 1e-12)
	assert.GreaterOrEqual(t, a1, 0.0)
	assert.LessOrEqual(t, a1, 1.0)
}

func TestEntropyAndLogLossReduction(t *testing.T) {
	yTrue := vec(0, 1, 0, 1)

	h, err := Entropy(yTrue)
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, h, 1e-12)

	// 事前確率のみの予測は改善なし
	r, err := LogLossReduction(yTrue, vec(0.5, 0.5, 0.5, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r, 1e-9)

	r, err = LogLossReduction(yTrue, vec(0.1, 0.9, 0.1, 0.9))
	require.NoError(t, err)
	assert.Greater(t, r, 0.0)
	assert.Less(t, r, 1.0)
}

func TestEvaluateBinary(t *testing.T) {
	yTrue := vec(0, 0, 1, 1)
	proba := vec(0.1, 0.4, 0.35, 0.8)

	report, err := EvaluateBinary(yTrue, proba, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, report.AUC, 1e-12)
	assert.InDelta(t, 0.75, report.Accuracy, 1e-12)
	assert.InDelta(t, 1.0, report.Precision, 1e-12)
	assert.InDelta(t, 0.5, report.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, report.F1Score, 1e-12)
	assert.Equal(t, 1, report.Confusion.TruePositive)
	assert.Equal(t, 1, report.Confusion.FalseNegative)
	assert.Equal(t, 0.5, report.Threshold)

	// しきい値ちょうどは陰性
	report, err = EvaluateBinary(vec(0, 1), vec(0.5, 0.9), 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.Accuracy)

	_, err = EvaluateBinary(yTrue, proba, 1.5)
	assert.Error(t, err)
	_, err = EvaluateBinary(yTrue, vec(0.1), 0.5)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestROCCurve(t *testing.T) {
	yTrue := vec(0, 0, 1, 1)
	scores := vec(0.1, 0.4, 0.35, 0.8)

	roc, err := ROCCurve(yTrue, scores)
	require.NoError(t, err)
	require.Equal(t, len(roc.FPR), len(roc.TPR))
	assert.Equal(t, 0.0, roc.FPR[0])
	assert.Equal(t, 0.0, roc.TPR[0])
	assert.Equal(t, 1.0, roc.FPR[len(roc.FPR)-1])
	assert.Equal(t, 1.0, roc.TPR[len(roc.TPR)-1])

	auc, err := AUC(yTrue, scores)
	require.NoError(t, err)
	assert.InDelta(t, auc, roc.Area(), 1e-9)

	_, err = ROCCurve(vec(1, 1), vec(0.1, 0.2))
	assert.Error(t, err)
}

func TestSaveROCPlot(t *testing.T) {
	roc, err := ROCCurve(vec(0, 1, 0, 1, 1, 0), vec(0.2, 0.7, 0.4, 0.9, 0.3, 0.1))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "roc.png")
	require.NoError(t, SaveROCPlot(roc, path, "ROC"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Error(t, SaveROCPlot(roc, filepath.Join(t.TempDir(), "roc"), "ROC"))
	assert.Error(t, SaveROCPlot(nil, path, "ROC"))
}
