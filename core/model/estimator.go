package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilityPredictor は陽性クラスの確率を返す二値分類器のインターフェース
type ProbabilityPredictor interface {
	Predictor

	// PredictProba は各行の陽性確率を n×1 行列で返す
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}
