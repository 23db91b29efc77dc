package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/sentiment/dataset"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/YuminosukeSato/sentiment/pkg/log"
	"github.com/YuminosukeSato/sentiment/sklearn/fasttree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = "This is a very rude movie"

func loadFixture(t *testing.T, name string) *dataset.Table {
	t.Helper()
	table, err := dataset.Load(filepath.Join("..", "testdata", name))
	require.NoError(t, err)
	return table
}

func trainFixture(t *testing.T) *Model {
	t.Helper()
	m, err := Fit(loadFixture(t, "toxicity-train.tsv"), DefaultOptions())
	require.NoError(t, err)
	return m
}

func TestFitAndPredict(t *testing.T) {
	m := trainFixture(t)

	assert.Equal(t, 60, m.Meta.TrainingRows)
	assert.Equal(t, 30, m.Meta.Positives)
	assert.Equal(t, []string{"Label", "SentimentText"}, m.Meta.Columns)
	assert.Equal(t, 50, m.Ensemble.NumTrees())
	assert.Equal(t, m.Featurizer.NumFeatures(), m.Ensemble.NumFeatures)

	toxic, err := m.Predict(dataset.Record{Text: sampleText})
	require.NoError(t, err)
	assert.True(t, toxic.Label)
	assert.Greater(t, toxic.Probability, 0.5)
	assert.Greater(t, toxic.Score, 0.0)
	assert.Equal(t, sampleText, toxic.Text)

	clean, err := m.Predict(dataset.Record{Text: "Thanks for fixing the references"})
	require.NoError(t, err)
	assert.False(t, clean.Label)
	assert.Less(t, clean.Probability, 0.5)
}

func TestFitSameSeedSamePredictions(t *testing.T) {
	train := loadFixture(t, "toxicity-train.tsv")
	inputs := []string{
		sampleText,
		"Thanks for fixing the references",
		"",
		"\xff\xfe rude",
		"RUDE!!! 123",
	}

	tests := []struct {
		name   string
		modify func(o *Options)
	}{
		{"default options", func(o *Options) {}},
		{"bagging and feature fraction", func(o *Options) {
			o.Trainer.Seed = 7
			o.Trainer.BaggingFraction = 0.8
			o.Trainer.BaggingFreq = 1
			o.Trainer.FeatureFraction = 0.7
			o.Trainer.NumThreads = 4
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)

			first, err := Fit(train, opts)
			require.NoError(t, err)
			second, err := Fit(train, opts)
			require.NoError(t, err)

			assert.NotEqual(t, first.Meta.ID, second.Meta.ID)
			assert.Equal(t, first.Ensemble.Trees, second.Ensemble.Trees)
			for _, text := range inputs {
				a, err := first.Predict(dataset.Record{Text: text})
				require.NoError(t, err)
				b, err := second.Predict(dataset.Record{Text: text})
				require.NoError(t, err)
				assert.Equal(t, a, b, "text %q", text)
			}
		})
	}
}

func TestFitLogsByComponent(t *testing.T) {
	logs := log.Capture(t, log.LevelDebug)
	m := trainFixture(t)

	assert.NotEmpty(t, logs.EntriesFrom("preprocessing.text"))

	pipelineLogs := logs.EntriesFrom("pipeline")
	require.NotEmpty(t, pipelineLogs)
	last := pipelineLogs[len(pipelineLogs)-1]
	assert.Equal(t, "Model trained", last.Message)
	assert.Equal(t, m.Meta.ID.String(), last.Fields[log.EstimatorIDKey])

	trainerLogs := logs.EntriesFrom("fasttree.trainer")
	require.NotEmpty(t, trainerLogs)
	finished := trainerLogs[len(trainerLogs)-1]
	assert.Equal(t, "Training finished", finished.Message)
	assert.Equal(t, 50, finished.Fields["trees"])
}

func TestPredictIgnoresLabel(t *testing.T) {
	m := trainFixture(t)
	label := false

	withLabel, err := m.Predict(dataset.Record{Text: sampleText, Label: &label})
	require.NoError(t, err)
	without, err := m.Predict(dataset.Record{Text: sampleText})
	require.NoError(t, err)
	assert.Equal(t, without, withLabel)
}

func TestTransform(t *testing.T) {
	m := trainFixture(t)

	predictions, err := m.Transform(dataset.FromTexts(sampleText, "Welcome to the project"))
	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.True(t, predictions[0].Label)
	assert.False(t, predictions[1].Label)

	empty, err := m.Transform(dataset.FromTexts())
	require.NoError(t, err)
	assert.Empty(t, empty)

	cfg := dataset.LoaderConfig{
		Separator: "tab",
		HasHeader: true,
		Schema:    dataset.Schema{{Name: "Label", Kind: dataset.Bool, Index: 0}},
	}
	labelsOnly, err := cfg.Read(strings.NewReader("Label\n1\n0\n"))
	require.NoError(t, err)
	_, err = m.Transform(labelsOnly)
	var se *errors.SchemaError
	assert.True(t, errors.As(err, &se))
}

func TestEvaluate(t *testing.T) {
	m := trainFixture(t)

	report, err := Evaluate(m, loadFixture(t, "toxicity-test.tsv"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.Accuracy)
	assert.Equal(t, 1.0, report.AUC)
	assert.Equal(t, 1.0, report.F1Score)
	assert.Equal(t, 0.5, report.Threshold)

	roc, err := ROCCurve(m, loadFixture(t, "toxicity-test.tsv"))
	require.NoError(t, err)
	assert.InDelta(t, report.AUC, roc.Area(), 1e-12)

	_, err = Evaluate(m, dataset.FromTexts(sampleText))
	var se *errors.SchemaError
	assert.True(t, errors.As(err, &se))
}

func TestFitErrors(t *testing.T) {
	yes, no := true, false

	t.Run("empty", func(t *testing.T) {
		_, err := Fit(dataset.FromRecords(nil), DefaultOptions())
		var te *errors.TrainingError
		require.True(t, errors.As(err, &te))
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})

	t.Run("single class", func(t *testing.T) {
		table := dataset.FromRecords([]dataset.Record{
			{Text: "you rude troll", Label: &yes},
			{Text: "rude again", Label: &yes},
		})
		_, err := Fit(table, DefaultOptions())
		var te *errors.TrainingError
		require.True(t, errors.As(err, &te))
		assert.True(t, errors.Is(err, errors.ErrSingleClass))
	})

	t.Run("unlabeled", func(t *testing.T) {
		_, err := Fit(dataset.FromTexts("a", "b"), DefaultOptions())
		var se *errors.SchemaError
		assert.True(t, errors.As(err, &se))
	})

	t.Run("invalid options", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Threshold = 2
		table := dataset.FromRecords([]dataset.Record{
			{Text: "rude", Label: &yes},
			{Text: "fine", Label: &no},
		})
		_, err := Fit(table, opts)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))

		opts = DefaultOptions()
		opts.Trainer.Objective = "regression"
		_, err = Fit(table, opts)
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "objective", ve.ParamName)
	})
}

func TestFitCallbacks(t *testing.T) {
	var history map[string][]float64
	opts := DefaultOptions()
	opts.Trainer.NumTrees = 5
	opts.Callbacks = []fasttree.Callback{fasttree.RecordEvaluation(&history)}

	m, err := Fit(loadFixture(t, "toxicity-train.tsv"), opts)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Ensemble.NumTrees())
	assert.Len(t, history[fasttree.TrainingLossKey], 5)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := trainFixture(t)
	path := filepath.Join(t.TempDir(), "Data", "Model.zip")

	require.NoError(t, Save(m, path))
	assert.FileExists(t, path)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Meta.ID, loaded.Meta.ID)
	assert.True(t, m.Meta.CreatedAt.Equal(loaded.Meta.CreatedAt))
	assert.Equal(t, m.Meta.Params, loaded.Meta.Params)
	assert.Equal(t, m.Featurizer.Terms, loaded.Featurizer.Terms)

	test := loadFixture(t, "toxicity-test.tsv")
	want, err := m.Transform(test)
	require.NoError(t, err)
	got, err := loaded.Transform(test)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, math.Float64bits(want[i].Score), math.Float64bits(got[i].Score), "row %d", i)
		assert.Equal(t, want[i], got[i])
	}
}

func TestSaveFailureLeavesNoFile(t *testing.T) {
	m := trainFixture(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	path := filepath.Join(blocker, "Model.zip")
	err := Save(m, path)
	var se *errors.SaveError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, path, se.Path)
	assert.NoFileExists(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	err = Save(&Model{}, filepath.Join(dir, "unfitted.zip"))
	assert.True(t, errors.As(err, &se))
	assert.NoFileExists(t, filepath.Join(dir, "unfitted.zip"))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.zip"))
	var nf *errors.FileNotFoundError
	assert.True(t, errors.As(err, &nf))

	bogus := filepath.Join(t.TempDir(), "bogus.zip")
	require.NoError(t, os.WriteFile(bogus, []byte("not a zip"), 0o644))
	_, err = Load(bogus)
	assert.Error(t, err)
}
