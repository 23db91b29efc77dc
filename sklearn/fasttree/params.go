package fasttree

import (
	"math"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
)

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumTrees      int     `yaml:"num_trees" json:"num_trees"`
	NumLeaves     int     `yaml:"num_leaves" json:"num_leaves"`
	MinDataInLeaf int     `yaml:"min_data_in_leaf" json:"min_data_in_leaf"`
	LearningRate  float64 `yaml:"learning_rate" json:"learning_rate"`

	// Regularization
	LambdaL2            float64 `yaml:"lambda_l2" json:"lambda_l2"`
	MinGainToSplit      float64 `yaml:"min_gain_to_split" json:"min_gain_to_split"`
	MinSumHessianInLeaf float64 `yaml:"min_sum_hessian_in_leaf" json:"min_sum_hessian_in_leaf"`
	MaxLeafOutput       float64 `yaml:"max_leaf_output" json:"max_leaf_output"`

	// Histogram parameters
	MaxBin int `yaml:"max_bin" json:"max_bin"`

	// Sampling
	FeatureFraction float64 `yaml:"feature_fraction" json:"feature_fraction"`
	BaggingFraction float64 `yaml:"bagging_fraction" json:"bagging_fraction"`
	BaggingFreq     int     `yaml:"bagging_freq" json:"bagging_freq"`

	// Other
	Seed       int64  `yaml:"seed" json:"seed"`
	Objective  string `yaml:"objective" json:"objective"`
	NumThreads int    `yaml:"num_threads" json:"num_threads"`
	Verbosity  int    `yaml:"verbosity" json:"verbosity"`
}

// DefaultParams returns the parameters of the toxicity classifier:
// 50 trees of at most 50 leaves with 20 samples per leaf and seed 0.
func DefaultParams() TrainingParams {
	return TrainingParams{
		NumTrees:            50,
		NumLeaves:           50,
		MinDataInLeaf:       20,
		LearningRate:        0.2,
		LambdaL2:            0,
		MinGainToSplit:      0,
		MinSumHessianInLeaf: 1e-3,
		MaxLeafOutput:       100,
		MaxBin:              255,
		FeatureFraction:     1.0,
		BaggingFraction:     1.0,
		BaggingFreq:         0,
		Seed:                0,
		Objective:           string(BinaryLogistic),
		NumThreads:          0,
		Verbosity:           0,
	}
}

// Validate checks the parameter ranges
func (p TrainingParams) Validate() error {
	switch {
	case p.NumTrees < 1:
		return errors.NewValidationError("num_trees", "must be at least 1", p.NumTrees)
	case p.NumLeaves < 2:
		return errors.NewValidationError("num_leaves", "must be at least 2", p.NumLeaves)
	case p.MinDataInLeaf < 1:
		return errors.NewValidationError("min_data_in_leaf", "must be at least 1", p.MinDataInLeaf)
	case p.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	case p.LambdaL2 < 0:
		return errors.NewValidationError("lambda_l2", "must be non-negative", p.LambdaL2)
	case p.MinGainToSplit < 0:
		return errors.NewValidationError("min_gain_to_split", "must be non-negative", p.MinGainToSplit)
	case p.MinSumHessianInLeaf < 0:
		return errors.NewValidationError("min_sum_hessian_in_leaf", "must be non-negative", p.MinSumHessianInLeaf)
	case p.MaxLeafOutput < 0:
		return errors.NewValidationError("max_leaf_output", "must be non-negative", p.MaxLeafOutput)
	case p.MaxBin < 2 || p.MaxBin > math.MaxUint16-2:
		return errors.NewValidationError("max_bin", "must be in [2, 65533]", p.MaxBin)
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return errors.NewValidationError("feature_fraction", "must be in (0, 1]", p.FeatureFraction)
	case p.BaggingFraction <= 0 || p.BaggingFraction > 1:
		return errors.NewValidationError("bagging_fraction", "must be in (0, 1]", p.BaggingFraction)
	case p.BaggingFreq < 0:
		return errors.NewValidationError("bagging_freq", "must be non-negative", p.BaggingFreq)
	case p.NumThreads < 0:
		return errors.NewValidationError("num_threads", "must be non-negative", p.NumThreads)
	}
	if _, err := CreateObjectiveFunction(p.Objective); err != nil {
		return err
	}
	return nil
}
