package fasttree

import (
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ImportanceType selects how feature importance is measured
type ImportanceType string

const (
	// ImportanceSplit counts how often a feature is used to split
	ImportanceSplit ImportanceType = "split"
	// ImportanceGain sums the gain of the splits using a feature
	ImportanceGain ImportanceType = "gain"
)

// Model represents a trained boosted tree ensemble
type Model struct {
	Objective    ObjectiveType `json:"objective"`
	NumFeatures  int           `json:"num_features"`
	LearningRate float64       `json:"learning_rate"`
	NumLeaves    int           `json:"num_leaves"`
	InitScore    float64       `json:"init_score"`
	Trees        []Tree        `json:"trees"`
}

// NumTrees returns the number of trees in the ensemble
func (m *Model) NumTrees() int {
	return len(m.Trees)
}

// PredictRawRow returns the raw score of one sample
func (m *Model) PredictRawRow(features []float64) float64 {
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// PredictProbaRow returns the positive class probability of one sample
func (m *Model) PredictProbaRow(features []float64) float64 {
	return m.Probability(m.PredictRawRow(features))
}

// Probability converts a raw score into the positive class probability
func (m *Model) Probability(score float64) float64 {
	return sigmoid(score)
}

// PredictRaw returns raw scores for a batch of samples
func (m *Model) PredictRaw(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("fasttree.Model.PredictRaw", m.NumFeatures, cols, 1)
	}

	if rows == 0 {
		return nil, errors.NewValueError("fasttree.Model.PredictRaw", "empty input")
	}

	scores := mat.NewVecDense(rows, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		scores.SetVec(i, m.PredictRawRow(features))
	}
	return scores, nil
}

// PredictProba returns positive class probabilities as an n×1 matrix
func (m *Model) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if m.Objective != BinaryLogistic {
		return nil, errors.NewValueError("fasttree.Model.PredictProba", "probabilities require the binary objective")
	}
	scores, err := m.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	n := scores.Len()
	proba := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		proba.Set(i, 0, sigmoid(scores.AtVec(i)))
	}
	return proba, nil
}

// Predict returns 0/1 labels for the binary objective and raw scores otherwise
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := m.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	n := scores.Len()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		s := scores.AtVec(i)
		if m.Objective == BinaryLogistic {
			if s > 0 {
				out.Set(i, 0, 1)
			}
			continue
		}
		out.Set(i, 0, s)
	}
	return out, nil
}

// FeatureImportance returns the importance of every feature
func (m *Model) FeatureImportance(importanceType ImportanceType) []float64 {
	importance := make([]float64, m.NumFeatures)
	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case ImportanceGain:
				importance[node.SplitFeature] += node.Gain
			default:
				importance[node.SplitFeature]++
			}
		}
	}
	return importance
}
