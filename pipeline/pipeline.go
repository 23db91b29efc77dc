// Package pipeline composes the text featurizer and the boosted tree
// classifier into a single trainable model.
//
// A Model is produced by Fit, scored with Predict/Transform, measured with
// Evaluate and persisted with Save/Load. The featurizer fitted during
// training is the one used for every later call.
package pipeline

import (
	"time"

	"github.com/YuminosukeSato/sentiment/dataset"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/YuminosukeSato/sentiment/pkg/log"
	"github.com/YuminosukeSato/sentiment/preprocessing"
	"github.com/YuminosukeSato/sentiment/sklearn/fasttree"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// DefaultThreshold is the probability above which a sample is labeled positive
const DefaultThreshold = 0.5

// Options configures Fit
type Options struct {
	Featurizer preprocessing.TextFeaturizerOptions `yaml:"featurizer" json:"featurizer"`
	Trainer    fasttree.TrainingParams             `yaml:"trainer" json:"trainer"`
	Threshold  float64                             `yaml:"threshold" json:"threshold"`

	// Callbacks observe boosting iterations
	Callbacks []fasttree.Callback `yaml:"-" json:"-"`
}

// DefaultOptions returns the featurizer defaults and the classifier
// parameters of the toxicity model.
func DefaultOptions() Options {
	return Options{
		Featurizer: preprocessing.DefaultTextFeaturizerOptions(),
		Trainer:    fasttree.DefaultParams(),
		Threshold:  DefaultThreshold,
	}
}

// Validate checks every nested option
func (o Options) Validate() error {
	if err := o.Featurizer.Validate(); err != nil {
		return err
	}
	if err := o.Trainer.Validate(); err != nil {
		return err
	}
	if o.Trainer.Objective != "" && o.Trainer.Objective != string(fasttree.BinaryLogistic) {
		return errors.NewValidationError("objective", "the toxicity classifier needs the binary objective", o.Trainer.Objective)
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		return errors.NewValidationError("threshold", "must be in [0, 1]", o.Threshold)
	}
	return nil
}

// Metadata describes a trained model
type Metadata struct {
	ID           uuid.UUID               `json:"id"`
	CreatedAt    time.Time               `json:"created_at"`
	Columns      []string                `json:"columns"`
	TextColumn   string                  `json:"text_column"`
	LabelColumn  string                  `json:"label_column"`
	TrainingRows int                     `json:"training_rows"`
	Positives    int                     `json:"positives"`
	Threshold    float64                 `json:"threshold"`
	Params       fasttree.TrainingParams `json:"params"`
}

// Model is a fitted featurizer followed by a fitted tree ensemble
type Model struct {
	Meta       Metadata
	Featurizer *preprocessing.TextFeaturizer
	Ensemble   *fasttree.Model
}

// Prediction is the output of the model for one text
type Prediction struct {
	Text        string  `json:"text"`
	Label       bool    `json:"label"`
	Probability float64 `json:"probability"`
	Score       float64 `json:"score"`
}

// Fit learns the vocabulary from the table's text column and trains the
// classifier on the featurized rows and the label column.
func Fit(table *dataset.Table, opts Options) (*Model, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if table == nil || table.Len() == 0 {
		return nil, errors.NewTrainingError("pipeline.Fit", "empty training data", errors.ErrEmptyData)
	}
	if !table.HasText() {
		return nil, errors.NewSchemaError("pipeline.Fit", table.TextColumn(), "text column is missing")
	}
	if !table.HasLabels() {
		return nil, errors.NewSchemaError("pipeline.Fit", table.LabelColumn(), "label column is missing")
	}

	positives, negatives := table.LabelCounts()
	if positives == 0 || negatives == 0 {
		return nil, errors.NewTrainingError("pipeline.Fit", "training labels contain a single class", errors.ErrSingleClass)
	}

	logger := log.GetLoggerWithName("pipeline")
	start := time.Now()

	featurizer := preprocessing.NewTextFeaturizer(opts.Featurizer)
	X, err := featurizer.FitTransform(table.Texts())
	if err != nil {
		return nil, errors.NewTrainingError("pipeline.Fit", "featurization failed", err)
	}
	logger.Debug("Featurized training data",
		log.SamplesKey, table.Len(),
		log.FeaturesKey, featurizer.NumFeatures(),
	)

	labels := table.Labels()
	y := mat.NewDense(len(labels), 1, nil)
	for i, label := range labels {
		if label {
			y.Set(i, 0, 1)
		}
	}

	trainer := fasttree.NewTrainer(opts.Trainer)
	if len(opts.Callbacks) > 0 {
		trainer.WithCallbacks(opts.Callbacks...)
	}
	if err := trainer.Fit(X, y); err != nil {
		var te *errors.TrainingError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, errors.NewTrainingError("pipeline.Fit", "boosting failed", err)
	}

	m := &Model{
		Meta: Metadata{
			ID:           uuid.New(),
			CreatedAt:    time.Now().UTC(),
			Columns:      table.Schema().Names(),
			TextColumn:   table.TextColumn(),
			LabelColumn:  table.LabelColumn(),
			TrainingRows: table.Len(),
			Positives:    positives,
			Threshold:    opts.Threshold,
			Params:       opts.Trainer,
		},
		Featurizer: featurizer,
		Ensemble:   trainer.GetModel(),
	}

	logger.Info("Model trained",
		log.EstimatorIDKey, m.Meta.ID.String(),
		log.SamplesKey, table.Len(),
		log.PositivesKey, positives,
		log.FeaturesKey, featurizer.NumFeatures(),
		"trees", m.Ensemble.NumTrees(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return m, nil
}

// Predict scores a single record. The record's label, if any, is ignored.
func (m *Model) Predict(r dataset.Record) (Prediction, error) {
	predictions, err := m.predictTexts([]string{r.Text})
	if err != nil {
		return Prediction{}, err
	}
	return predictions[0], nil
}

// Transform scores every row of the table in order
func (m *Model) Transform(table *dataset.Table) ([]Prediction, error) {
	if table == nil {
		return nil, errors.NewValueError("pipeline.Model.Transform", "nil table")
	}
	if !table.HasText() {
		return nil, errors.NewSchemaError("pipeline.Model.Transform", table.TextColumn(), "text column is missing")
	}
	if table.Len() == 0 {
		return []Prediction{}, nil
	}
	return m.predictTexts(table.Texts())
}

func (m *Model) predictTexts(texts []string) ([]Prediction, error) {
	if m == nil || m.Featurizer == nil || m.Ensemble == nil {
		return nil, errors.NewNotFittedError("pipeline.Model", "Predict")
	}

	X, err := m.Featurizer.Transform(texts)
	if err != nil {
		return nil, err
	}
	scores, err := m.Ensemble.PredictRaw(X)
	if err != nil {
		return nil, err
	}

	predictions := make([]Prediction, len(texts))
	for i, text := range texts {
		score := scores.AtVec(i)
		p := m.Ensemble.Probability(score)
		predictions[i] = Prediction{
			Text:        text,
			Label:       p > m.Meta.Threshold,
			Probability: p,
			Score:       score,
		}
	}
	return predictions, nil
}
