package pipeline

import (
	"github.com/YuminosukeSato/sentiment/core/model"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/YuminosukeSato/sentiment/pkg/log"
	"github.com/YuminosukeSato/sentiment/preprocessing"
	"github.com/YuminosukeSato/sentiment/sklearn/fasttree"
)

// Archive entry names
const (
	MetaEntry       = "meta.json"
	FeaturizerEntry = "featurizer.json"
	TreesEntry      = "trees.json"
)

// Save writes the model as a zip archive. The archive is written to a
// temporary file next to path and renamed into place, so a failed save
// leaves no file behind.
func Save(m *Model, path string) error {
	if m == nil || m.Featurizer == nil || m.Ensemble == nil {
		return errors.NewSaveError(path, errors.NewNotFittedError("pipeline.Model", "Save"))
	}

	err := model.SaveArchive(path,
		model.Entry{Name: MetaEntry, Value: m.Meta},
		model.Entry{Name: FeaturizerEntry, Value: m.Featurizer},
		model.Entry{Name: TreesEntry, Value: m.Ensemble},
	)
	if err != nil {
		return errors.NewSaveError(path, err)
	}

	log.GetLoggerWithName("pipeline").Debug("Model saved",
		log.PathKey, path,
		log.EstimatorIDKey, m.Meta.ID.String(),
	)
	return nil
}

// Load reads a model written by Save
func Load(path string) (*Model, error) {
	m := &Model{
		Featurizer: &preprocessing.TextFeaturizer{},
		Ensemble:   &fasttree.Model{},
	}
	err := model.LoadArchive(path, map[string]interface{}{
		MetaEntry:       &m.Meta,
		FeaturizerEntry: m.Featurizer,
		TreesEntry:      m.Ensemble,
	})
	if err != nil {
		var nf *errors.FileNotFoundError
		if errors.As(err, &nf) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "failed to load model from %s", path)
	}

	if !m.Featurizer.IsFitted() {
		return nil, errors.NewNotFittedError("pipeline.Model", "Load")
	}
	if m.Featurizer.NumFeatures() != m.Ensemble.NumFeatures {
		return nil, errors.NewDimensionError("pipeline.Load", m.Featurizer.NumFeatures(), m.Ensemble.NumFeatures, 1)
	}
	return m, nil
}
