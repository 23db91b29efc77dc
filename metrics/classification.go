package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// logLossEpsilon は log(0) を避けるためのクリップ幅
const logLossEpsilon = 1e-15

// checkVectors は2つのベクトルが空でなく同じ長さであることを検証する
func checkVectors(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// checkBinary はラベルが0または1のみであることを検証する
func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary (0 or 1)")
		}
	}
	return nil
}

func countPositives(y *mat.VecDense) int {
	pos := 0
	for i := 0; i < y.Len(); i++ {
		if y.AtVec(i) == 1 {
			pos++
		}
	}
	return pos
}

// AUC はROC曲線下面積を計算する
//
// 同順位のスコアは平均順位として扱う（Mann-Whitney U統計量）。
// 正例または負例しか存在しない場合、AUCは定義できないため NaN を返し
// UndefinedMetricWarning を発行する。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	nPos := countPositives(yTrue)
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in y_true", math.NaN()))
		return math.NaN(), nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	// 同順位グループに平均順位を割り当てる
	var rankSumPos float64
	for i := 0; i < n; {
		j := i
		score := yPred.AtVec(idx[i])
		for j < n && yPred.AtVec(idx[j]) == score {
			j++
		}
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				rankSumPos += avgRank
			}
		}
		i = j
	}

	fPos, fNeg := float64(nPos), float64(nNeg)
	return (rankSumPos - fPos*(fPos+1)/2) / (fPos * fNeg), nil
}

// BinaryLogLoss は二値分類の対数損失（自然対数）を計算する
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEpsilon, 1-logLossEpsilon)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// Entropy はラベル分布の二値エントロピー（自然対数）を計算する
//
// 事前確率のみで予測した場合の対数損失に等しい。
func Entropy(yTrue *mat.VecDense) (float64, error) {
	if yTrue == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("Entropy", "empty vector")
	}
	if err := checkBinary("Entropy", yTrue); err != nil {
		return 0, err
	}
	prior := float64(countPositives(yTrue)) / float64(yTrue.Len())
	if prior == 0 || prior == 1 {
		return 0, nil
	}
	return -(prior*math.Log(prior) + (1-prior)*math.Log(1-prior)), nil
}

// LogLossReduction は事前分布に対する対数損失の相対改善率を計算する
//
// (Entropy - LogLoss) / Entropy。エントロピーが0の場合は定義できないため
// 0 を返し警告を発行する。
func LogLossReduction(yTrue, yPred *mat.VecDense) (float64, error) {
	logLoss, err := BinaryLogLoss(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	entropy, err := Entropy(yTrue)
	if err != nil {
		return 0, err
	}
	if entropy == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("LogLossReduction", "label entropy is zero", 0))
		return 0, nil
	}
	return (entropy - logLoss) / entropy, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix は二値分類の混同行列
type ConfusionMatrix struct {
	TruePositive  int `json:"true_positive"`
	FalsePositive int `json:"false_positive"`
	TrueNegative  int `json:"true_negative"`
	FalseNegative int `json:"false_negative"`
}

// NewConfusionMatrix は正解ラベルと予測ラベル（いずれも0/1）から混同行列を作成する
func NewConfusionMatrix(yTrue, yPred *mat.VecDense) (*ConfusionMatrix, error) {
	n, err := checkVectors("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if err := checkBinary("ConfusionMatrix", yTrue); err != nil {
		return nil, err
	}
	if err := checkBinary("ConfusionMatrix", yPred); err != nil {
		return nil, err
	}

	cm := &ConfusionMatrix{}
	for i := 0; i < n; i++ {
		actual, predicted := yTrue.AtVec(i) == 1, yPred.AtVec(i) == 1
		switch {
		case actual && predicted:
			cm.TruePositive++
		case !actual && predicted:
			cm.FalsePositive++
		case !actual && !predicted:
			cm.TrueNegative++
		default:
			cm.FalseNegative++
		}
	}
	return cm, nil
}

// Total はサンプル総数を返す
func (cm *ConfusionMatrix) Total() int {
	return cm.TruePositive + cm.FalsePositive + cm.TrueNegative + cm.FalseNegative
}

// Accuracy は混同行列から正解率を計算する。空の混同行列では0。
func (cm *ConfusionMatrix) Accuracy() float64 {
	return errors.SafeDivide(float64(cm.TruePositive+cm.TrueNegative), float64(cm.Total()))
}

// Precision は適合率 TP / (TP + FP) を計算する
func (cm *ConfusionMatrix) Precision() float64 {
	denom := cm.TruePositive + cm.FalsePositive
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("Precision", "no predicted positives", 0))
		return 0
	}
	return float64(cm.TruePositive) / float64(denom)
}

// Recall は再現率 TP / (TP + FN) を計算する
func (cm *ConfusionMatrix) Recall() float64 {
	denom := cm.TruePositive + cm.FalseNegative
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("Recall", "no true positives in y_true", 0))
		return 0
	}
	return float64(cm.TruePositive) / float64(denom)
}

// F1Score は適合率と再現率の調和平均を計算する
func (cm *ConfusionMatrix) F1Score() float64 {
	denom := 2*cm.TruePositive + cm.FalsePositive + cm.FalseNegative
	if denom == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("F1Score", "no positives in y_true or y_pred", 0))
		return 0
	}
	return 2 * float64(cm.TruePositive) / float64(denom)
}

// Precision は予測ラベルに対する適合率を計算する
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Precision(), nil
}

// Recall は予測ラベルに対する再現率を計算する
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Recall(), nil
}

// F1Score は予測ラベルに対するF1スコアを計算する
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.F1Score(), nil
}

// AveragePrecision はスコア降順に並べたときの平均適合率を計算する
//
// 各正例の位置での適合率の平均。正例が存在しない場合は 0 を返す。
func AveragePrecision(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkVectors("AveragePrecision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AveragePrecision", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) > yPred.AtVec(idx[b])
	})

	var sum float64
	hits := 0
	for rank, i := range idx {
		if yTrue.AtVec(i) == 1 {
			hits++
			sum += float64(hits) / float64(rank+1)
		}
	}
	if hits == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AveragePrecision", "no positives in y_true", 0))
		return 0, nil
	}
	return sum / float64(hits), nil
}

// AUPRC は適合率-再現率曲線下面積を計算する（平均適合率による近似）
func AUPRC(yTrue, yPred *mat.VecDense) (float64, error) {
	return AveragePrecision(yTrue, yPred)
}

// BinaryReport は二値分類器の評価結果をまとめたもの
type BinaryReport struct {
	Accuracy         float64         `json:"accuracy"`
	AUC              float64         `json:"auc"`
	F1Score          float64         `json:"f1_score"`
	Precision        float64         `json:"positive_precision"`
	Recall           float64         `json:"positive_recall"`
	AUPRC            float64         `json:"auprc"`
	LogLoss          float64         `json:"log_loss"`
	LogLossReduction float64         `json:"log_loss_reduction"`
	Entropy          float64         `json:"entropy"`
	Threshold        float64         `json:"threshold"`
	Confusion        ConfusionMatrix `json:"confusion_matrix"`
}

// EvaluateBinary は正解ラベルと陽性確率から二値分類の指標をまとめて計算する
//
// 確率が threshold を超えるサンプルを陽性と判定する。
func EvaluateBinary(yTrue, proba *mat.VecDense, threshold float64) (*BinaryReport, error) {
	n, err := checkVectors("EvaluateBinary", yTrue, proba)
	if err != nil {
		return nil, err
	}
	if err := checkBinary("EvaluateBinary", yTrue); err != nil {
		return nil, err
	}
	if threshold < 0 || threshold > 1 || math.IsNaN(threshold) {
		return nil, errors.NewValidationError("threshold", "must be in [0, 1]", threshold)
	}

	labels := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if proba.AtVec(i) > threshold {
			labels.SetVec(i, 1)
		}
	}

	cm, err := NewConfusionMatrix(yTrue, labels)
	if err != nil {
		return nil, err
	}
	report := &BinaryReport{
		Accuracy:  cm.Accuracy(),
		F1Score:   cm.F1Score(),
		Precision: cm.Precision(),
		Recall:    cm.Recall(),
		Threshold: threshold,
		Confusion: *cm,
	}

	if report.AUC, err = AUC(yTrue, proba); err != nil {
		return nil, err
	}
	if report.AUPRC, err = AUPRC(yTrue, proba); err != nil {
		return nil, err
	}
	if report.LogLoss, err = BinaryLogLoss(yTrue, proba); err != nil {
		return nil, err
	}
	if report.Entropy, err = Entropy(yTrue); err != nil {
		return nil, err
	}
	if report.LogLossReduction, err = LogLossReduction(yTrue, proba); err != nil {
		return nil, err
	}
	return report, nil
}
