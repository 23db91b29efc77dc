package preprocessing

import (
	"math"

	"github.com/YuminosukeSato/sentiment/core/model"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Norm は行ベクトルの正規化方法
type Norm string

const (
	// NormNone は正規化しない
	NormNone Norm = "none"
	// NormL1 は絶対値の和で割る
	NormL1 Norm = "l1"
	// NormL2 はユークリッドノルムで割る
	NormL2 Norm = "l2"
	// NormMax は絶対値の最大値で割る
	NormMax Norm = "max"
)

// Valid は既知の正規化方法かどうかを返す
func (n Norm) Valid() bool {
	switch n {
	case NormNone, NormL1, NormL2, NormMax:
		return true
	}
	return false
}

// Normalizer はscikit-learn互換の行単位正規化器
// 各サンプル（行）を指定したノルムが1になるようにスケーリングする
type Normalizer struct {
	model.BaseEstimator

	// Norm は正規化方法 (デフォルト: l2)
	Norm Norm `json:"norm"`

	// NFeatures は特徴量の数
	NFeatures int `json:"n_features"`
}

// NewNormalizer は新しいNormalizerを作成する
//
// 使用例:
//
//	normalizer := preprocessing.NewNormalizer(preprocessing.NormL2)
//	XNorm, err := normalizer.FitTransform(X)
func NewNormalizer(norm Norm) *Normalizer {
	return &Normalizer{Norm: norm}
}

// Fit は特徴量数を記録する。行単位の変換なので統計量は学習しない。
func (n *Normalizer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewValueError("Normalizer.Fit", "empty data")
	}
	if !n.Norm.Valid() {
		return errors.NewValidationError("norm", "must be one of none, l1, l2, max", string(n.Norm))
	}
	n.NFeatures = c
	n.SetFitted()
	return nil
}

// Transform は各行を正規化した新しい行列を返す
func (n *Normalizer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !n.IsFitted() {
		return nil, errors.NewNotFittedError("Normalizer", "Transform")
	}
	_, c := X.Dims()
	if c != n.NFeatures {
		return nil, errors.NewDimensionError("Normalizer.Transform", n.NFeatures, c, 1)
	}

	result := mat.DenseCopyOf(X)
	n.normalizeRows(result)
	return result, nil
}

// FitTransform は学習と変換を同時に行う
func (n *Normalizer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := n.Fit(X); err != nil {
		return nil, err
	}
	return n.Transform(X)
}

// normalizeRows は行列をその場で正規化する。ノルムが0の行はそのまま。
func (n *Normalizer) normalizeRows(X *mat.Dense) {
	var p float64
	switch n.Norm {
	case NormL1:
		p = 1
	case NormL2:
		p = 2
	case NormMax:
		p = math.Inf(1)
	default:
		return
	}
	r, _ := X.Dims()
	for i := 0; i < r; i++ {
		row := X.RawRowView(i)
		if norm := floats.Norm(row, p); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
}

var _ model.Transformer = (*Normalizer)(nil)
