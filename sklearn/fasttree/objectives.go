package fasttree

import (
	"math"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
)

// ObjectiveType represents the objective function type
type ObjectiveType string

const (
	// BinaryLogistic is the log-loss of a sigmoid link
	BinaryLogistic ObjectiveType = "binary"
	// RegressionL2 is the squared error
	RegressionL2 ObjectiveType = "regression"
)

// ObjectiveFunction defines the interface for different objective functions
type ObjectiveFunction interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss calculates the loss for a single sample
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the initial score for this objective
	GetInitScore(targets []float64) float64

	// Name returns the name of the objective
	Name() string
}

// BinaryLogLossObjective implements binary cross entropy on raw scores
type BinaryLogLossObjective struct{}

func NewBinaryLogLossObjective() *BinaryLogLossObjective {
	return &BinaryLogLossObjective{}
}

func (o *BinaryLogLossObjective) CalculateGradient(prediction, target float64) float64 {
	return sigmoid(prediction) - target
}

func (o *BinaryLogLossObjective) CalculateHessian(prediction, target float64) float64 {
	p := sigmoid(prediction)
	return p * (1 - p)
}

func (o *BinaryLogLossObjective) CalculateLoss(prediction, target float64) float64 {
	p := errors.ClipValue(sigmoid(prediction), 1e-15, 1-1e-15)
	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}

// GetInitScore returns the log-odds of the positive rate
func (o *BinaryLogLossObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	p := errors.ClipValue(sum/float64(len(targets)), 1e-15, 1-1e-15)
	return math.Log(p / (1 - p))
}

func (o *BinaryLogLossObjective) Name() string {
	return string(BinaryLogistic)
}

// L2Objective implements L2 (Mean Squared Error) loss
type L2Objective struct{}

func NewL2Objective() *L2Objective {
	return &L2Objective{}
}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) Name() string {
	return string(RegressionL2)
}

// CreateObjectiveFunction creates an objective function by name
func CreateObjectiveFunction(objective string) (ObjectiveFunction, error) {
	switch ObjectiveType(objective) {
	case BinaryLogistic, "":
		return NewBinaryLogLossObjective(), nil
	case RegressionL2:
		return NewL2Objective(), nil
	}
	return nil, errors.NewValidationError("objective", "must be binary or regression", objective)
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
