package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	train, err := filepath.Abs(filepath.Join("..", "..", "testdata", "toxicity-train.tsv"))
	require.NoError(t, err)
	test, err := filepath.Abs(filepath.Join("..", "..", "testdata", "toxicity-test.tsv"))
	require.NoError(t, err)
	model := filepath.Join(dir, "Model.zip")

	content := fmt.Sprintf("data:\n  train_path: %q\n  test_path: %q\n  model_path: %q\ntrainer:\n  num_trees: 10\nlogging:\n  level: error\n", train, test, model)
	path := filepath.Join(dir, "sentiment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, model
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainAndPredict(t *testing.T) {
	cfgPath, modelPath := writeConfig(t)

	out, err := execute(t, "", "--config", cfgPath, "--no-wait", "train")
	require.NoError(t, err)
	assert.Contains(t, out, "Sentiment: This is a very rude movie | Prediction: Toxic")
	assert.Contains(t, out, "The model is saved to "+modelPath)
	assert.FileExists(t, modelPath)

	out, err = execute(t, "", "--config", cfgPath, "predict", "you rude troll", "Thanks for the fix")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "| Prediction: Toxic |")
	assert.Contains(t, lines[1], "| Prediction: Not Toxic |")

	out, err = execute(t, "so rude\n\nwelcome aboard\n", "--config", cfgPath, "predict", "--model", modelPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Sentiment: "))
}

func TestDefaultCommandTrains(t *testing.T) {
	cfgPath, modelPath := writeConfig(t)

	out, err := execute(t, "\n", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Completed Training")
	assert.FileExists(t, modelPath)
}

func TestPredictMissingModel(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "", "--config", cfgPath, "predict", "hello")
	assert.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	cfgPath, modelPath := writeConfig(t)

	out, err := execute(t, "", "--config", cfgPath, "--log-level", "warn", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "num_trees: 10")
	assert.Contains(t, out, modelPath)
	assert.Contains(t, out, "level: warn")
}

func TestInvalidLogLevel(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "", "--config", cfgPath, "--log-level", "loud", "config")
	assert.Error(t, err)
}
