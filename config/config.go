// Package config holds the YAML configuration of the sentiment trainer.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/sentiment/dataset"
	"github.com/YuminosukeSato/sentiment/pipeline"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/YuminosukeSato/sentiment/pkg/log"
	"github.com/YuminosukeSato/sentiment/preprocessing"
	"github.com/YuminosukeSato/sentiment/sklearn/fasttree"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvTrainPath = "SENTIMENT_TRAIN_PATH"
	EnvTestPath  = "SENTIMENT_TEST_PATH"
	EnvModelPath = "SENTIMENT_MODEL_PATH"
	EnvLogLevel  = "SENTIMENT_LOG_LEVEL"
)

// SampleText is the statement scored after training
const SampleText = "This is a very rude movie"

// Config holds all configuration of a training run.
type Config struct {
	// Input and output files
	Data DataConfig `yaml:"data"`

	// Text file layout
	Loader dataset.LoaderConfig `yaml:"loader"`

	// Model
	Featurizer preprocessing.TextFeaturizerOptions `yaml:"featurizer"`
	Trainer    fasttree.TrainingParams             `yaml:"trainer"`

	Evaluation EvaluationConfig `yaml:"evaluation"`
	Prediction PredictionConfig `yaml:"prediction"`

	// Logging
	Logging log.Config `yaml:"logging"`

	// Wait for a line on stdin before exiting
	Wait bool `yaml:"wait"`
}

// DataConfig locates the training data, the test data and the model file.
type DataConfig struct {
	TrainPath string `yaml:"train_path"`
	TestPath  string `yaml:"test_path"`
	ModelPath string `yaml:"model_path"`
}

// EvaluationConfig configures the evaluation stage.
type EvaluationConfig struct {
	Threshold   float64 `yaml:"threshold"`
	ROCPlotPath string  `yaml:"roc_plot_path"` // empty disables the plot
}

// PredictionConfig configures the single-sample prediction stage.
type PredictionConfig struct {
	SampleText string `yaml:"sample_text"`
}

// DefaultConfig returns the configuration of the toxicity example.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			TrainPath: filepath.Join("Data", "wikipedia-detox-250-line-data.tsv"),
			TestPath:  filepath.Join("Data", "wikipedia-detox-250-line-test.tsv"),
			ModelPath: filepath.Join("Data", "Model.zip"),
		},
		Loader:     dataset.DefaultLoaderConfig(),
		Featurizer: preprocessing.DefaultTextFeaturizerOptions(),
		Trainer:    fasttree.DefaultParams(),
		Evaluation: EvaluationConfig{
			Threshold: pipeline.DefaultThreshold,
		},
		Prediction: PredictionConfig{
			SampleText: SampleText,
		},
		Logging: log.DefaultConfig(),
		Wait:    true,
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewFileNotFoundError(path)
			}
			return nil, errors.Wrap(err, "failed to read config")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvTrainPath); v != "" {
		c.Data.TrainPath = v
	}
	if v := os.Getenv(EnvTestPath); v != "" {
		c.Data.TestPath = v
	}
	if v := os.Getenv(EnvModelPath); v != "" {
		c.Data.ModelPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.Data.TrainPath == "":
		return errors.NewValidationError("data.train_path", "must not be empty", c.Data.TrainPath)
	case c.Data.TestPath == "":
		return errors.NewValidationError("data.test_path", "must not be empty", c.Data.TestPath)
	case c.Data.ModelPath == "":
		return errors.NewValidationError("data.model_path", "must not be empty", c.Data.ModelPath)
	}
	if err := c.Loader.Validate(); err != nil {
		return err
	}
	if c.Loader.TextColumn == "" || c.Loader.LabelColumn == "" {
		return errors.NewValidationError("loader", "text_column and label_column are required for training", c.Loader.Schema.Names())
	}
	if err := c.PipelineOptions().Validate(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// PipelineOptions returns the options passed to pipeline.Fit.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Featurizer: c.Featurizer,
		Trainer:    c.Trainer,
		Threshold:  c.Evaluation.Threshold,
	}
}

// Write encodes the configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	return nil
}
