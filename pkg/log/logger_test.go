package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestZerologProviderLevels(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(&buf, LevelInfo)
	logger := provider.GetLoggerWithName("fasttree.trainer")

	logger.Debug("hidden", IterationKey, 1)
	logger.Info("Training started", SamplesKey, 250, FeaturesKey, 4096)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Training started", entries[0]["message"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "fasttree.trainer", entries[0][ComponentKey])
	assert.Equal(t, 250.0, entries[0][SamplesKey])

	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), LevelWarn))

	provider.SetLevel(LevelDebug)
	buf.Reset()
	provider.GetLogger().Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestZerologLoggerWithAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProvider(&buf, LevelDebug).GetLogger().With(
		ModelNameKey, "FastTreeBinary",
		EstimatorIDKey, "model-001",
	)

	logger.Error("Save failed", errors.NewSaveError("Data/Model.zip", fmt.Errorf("read-only fs")), StageKey, "save")
	logger.Warn("dangling key is dropped", "orphan")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "FastTreeBinary", entries[0][ModelNameKey])
	assert.Equal(t, "save", entries[0][StageKey])
	assert.Contains(t, entries[0]["error"], "read-only fs")
	assert.NotContains(t, entries[1], "orphan")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				var valErr *errors.ValidationError
				assert.True(t, errors.As(err, &valErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupWritesRotatingFile(t *testing.T) {
	prev := defaultProvider
	defer SetProvider(prev)
	defer errors.SetZerologWarnFunc(nil)

	path := filepath.Join(t.TempDir(), "sentiment.log")
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.File = path

	closer, err := Setup(cfg)
	require.NoError(t, err)

	GetLoggerWithName("workflow").Info("Stage completed", StageKey, "load")
	errors.Warn(errors.NewUndefinedMetricWarning("auc", "only one class present", 0))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Stage completed")
	assert.Contains(t, string(data), "UndefinedMetricWarning")
}

func TestSetupRejectsUnknownFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "xml"
	_, err := Setup(cfg)
	assert.Error(t, err)
}

func TestTestLoggerCapturesFields(t *testing.T) {
	testLogger := NewTestLogger(LevelInfo)
	contextLogger := testLogger.With(ModelNameKey, "TextFeaturizer")

	contextLogger.Info("Vocabulary built", FeaturesKey, 42)
	contextLogger.Debug("below the level")
	testLogger.Error("Load failed", fmt.Errorf("missing file"), StageKey, "load")

	assert.True(t, testLogger.ContainsMessage("Vocabulary built"))
	assert.False(t, testLogger.ContainsMessage("below the level"))
	assert.True(t, testLogger.ContainsField(ModelNameKey, "TextFeaturizer"))
	assert.True(t, testLogger.ContainsField(FeaturesKey, 42.0))
	assert.True(t, testLogger.ContainsField("error", "missing file"))
	assert.True(t, testLogger.ContainsField(StageKey, "load"))

	entries := testLogger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, LevelInfo, entries[0].Level)
	assert.Equal(t, LevelError, entries[1].Level)
	assert.NotContains(t, entries[1].Fields, ModelNameKey)
}

func TestCaptureRoutesNamedLoggers(t *testing.T) {
	logs := Capture(t, LevelInfo)

	GetLoggerWithName("dataset.loader").Info("Loaded table", SamplesKey, 250)
	GetLoggerWithName("workflow").Debug("Stage completed")
	GetLogger().Warn("root record")

	require.Len(t, logs.Entries(), 2)
	loader := logs.EntriesFrom("dataset.loader")
	require.Len(t, loader, 1)
	assert.Equal(t, "Loaded table", loader[0].Message)
	assert.Equal(t, 250, loader[0].Fields[SamplesKey])
	assert.Empty(t, logs.EntriesFrom("workflow"))
	assert.Equal(t, "", logs.Entries()[1].Component())

	SetLevel(LevelDebug)
	GetLoggerWithName("workflow").Debug("Stage completed")
	assert.Len(t, logs.EntriesFrom("workflow"), 1)
}
