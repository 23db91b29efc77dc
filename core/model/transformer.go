package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// TextTransformer は生テキストを数値特徴量行列に変換するインターフェース
type TextTransformer interface {
	// Fit は語彙などの変換パラメータを学習する
	Fit(texts []string) error

	// Transform はテキストを n_samples × n_features の行列に変換する
	Transform(texts []string) (*mat.Dense, error)

	// NumFeatures は変換後の特徴量数を返す
	NumFeatures() int
}
