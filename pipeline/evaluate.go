package pipeline

import (
	"github.com/YuminosukeSato/sentiment/dataset"
	"github.com/YuminosukeSato/sentiment/metrics"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/YuminosukeSato/sentiment/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Evaluate scores a labeled table and computes the binary classification
// metrics at the model's decision threshold.
func Evaluate(m *Model, table *dataset.Table) (*metrics.BinaryReport, error) {
	yTrue, proba, err := score(m, table)
	if err != nil {
		return nil, err
	}

	report, err := metrics.EvaluateBinary(yTrue, proba, m.Meta.Threshold)
	if err != nil {
		return nil, err
	}

	log.GetLoggerWithName("pipeline").Debug("Model evaluated",
		log.SamplesKey, table.Len(),
		log.AccuracyKey, report.Accuracy,
		log.AUCKey, report.AUC,
		log.F1ScoreKey, report.F1Score,
	)
	return report, nil
}

// ROCCurve returns the ROC curve of the model on a labeled table
func ROCCurve(m *Model, table *dataset.Table) (*metrics.ROC, error) {
	yTrue, proba, err := score(m, table)
	if err != nil {
		return nil, err
	}
	return metrics.ROCCurve(yTrue, proba)
}

// score returns the ground truth and the predicted probabilities as vectors
func score(m *Model, table *dataset.Table) (*mat.VecDense, *mat.VecDense, error) {
	if table == nil || table.Len() == 0 {
		return nil, nil, errors.NewValueError("pipeline.Evaluate", "empty evaluation data")
	}
	if !table.HasLabels() {
		return nil, nil, errors.NewSchemaError("pipeline.Evaluate", table.LabelColumn(), "label column is missing")
	}

	predictions, err := m.Transform(table)
	if err != nil {
		return nil, nil, err
	}

	labels := table.Labels()
	yTrue := mat.NewVecDense(len(labels), nil)
	proba := mat.NewVecDense(len(labels), nil)
	for i, label := range labels {
		if label {
			yTrue.SetVec(i, 1)
		}
		proba.SetVec(i, predictions[i].Probability)
	}
	return yTrue, proba, nil
}
