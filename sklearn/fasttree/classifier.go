package fasttree

import (
	"github.com/YuminosukeSato/sentiment/core/model"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Classifier is a binary boosted tree classifier with a scikit-learn style API
type Classifier struct {
	model.BaseEstimator

	Params TrainingParams `json:"params"`
	Model  *Model         `json:"model"`

	callbacks []Callback
}

// NewClassifier creates a classifier with the given parameters
//
// Example:
//
//	clf := fasttree.NewClassifier(fasttree.DefaultParams())
//	if err := clf.Fit(X, y); err != nil {
//	    return err
//	}
//	proba, err := clf.PredictProba(X)
func NewClassifier(params TrainingParams) *Classifier {
	params.Objective = string(BinaryLogistic)
	return &Classifier{Params: params}
}

// WithCallbacks sets callbacks used by the next Fit
func (c *Classifier) WithCallbacks(callbacks ...Callback) *Classifier {
	c.callbacks = callbacks
	return c
}

// Fit trains the classifier on X and 0/1 labels y
func (c *Classifier) Fit(X, y mat.Matrix) error {
	c.Reset()
	trainer := NewTrainer(c.Params)
	if len(c.callbacks) > 0 {
		trainer.WithCallbacks(c.callbacks...)
	}
	if err := trainer.Fit(X, y); err != nil {
		return err
	}
	c.Model = trainer.GetModel()
	c.SetFitted()
	return nil
}

// Predict returns 0/1 labels as an n×1 matrix
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("fasttree.Classifier", "Predict")
	}
	return c.Model.Predict(X)
}

// PredictProba returns positive class probabilities as an n×1 matrix
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("fasttree.Classifier", "PredictProba")
	}
	return c.Model.PredictProba(X)
}

var (
	_ model.Fitter               = (*Classifier)(nil)
	_ model.ProbabilityPredictor = (*Classifier)(nil)
	_ model.ProbabilityPredictor = (*Model)(nil)
)
