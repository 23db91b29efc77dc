package dataset

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFixture(t *testing.T) {
	table, err := Load(filepath.Join("..", "testdata", "toxicity-train.tsv"))
	require.NoError(t, err)

	assert.Equal(t, 60, table.Len())
	pos, neg := table.LabelCounts()
	assert.Equal(t, 30, pos)
	assert.Equal(t, 30, neg)

	first := table.Row(0)
	require.NotNil(t, first.Label)
	assert.True(t, *first.Label)
	assert.Equal(t, "You are a rude little troll", first.Text)
	assert.Len(t, table.Records(), 60)
	assert.Len(t, table.Texts(), 60)
	assert.Len(t, table.Labels(), 60)
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.tsv")
	_, err := Load(path)
	require.Error(t, err)

	var fnf *errors.FileNotFoundError
	require.True(t, errors.As(err, &fnf))
	assert.Equal(t, path, fnf.Path)
}

func TestReadRowCount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"header only", "Label\tSentimentText\n", 0},
		{"empty input", "", 0},
		{"no trailing newline", "Label\tSentimentText\n1\tbad\n0\tgood", 2},
		{"empty lines skipped", "Label\tSentimentText\n\n1\tbad\n\n0\tgood\n\n", 2},
		{"crlf line endings", "Label\tSentimentText\r\n1\tbad\r\n0\tgood\r\n", 2},
		{"extra columns ignored", "Label\tSentimentText\tExtra\n1\tbad\tx\ty\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, table.Len())
		})
	}
}

func TestReadBooleans(t *testing.T) {
	input := "Label\tSentimentText\n1\ta\n0\tb\ntrue\tc\nFALSE\td\n"
	table, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, false}, table.Labels())

	// 余分なフィールドは本文に含めない
	table, err = Read(strings.NewReader("Label\tSentimentText\n0\tgood\ttext\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, table.Texts())
}

func TestReadParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		row    int
		line   int
		column string
	}{
		{
			name:   "malformed label",
			input:  "Label\tSentimentText\n1\tok\n0\tfine\nmaybe\tbad\n",
			row:    2,
			line:   4,
			column: "Label",
		},
		{
			name:   "missing text field",
			input:  "Label\tSentimentText\n1\tok\n\n0\n",
			row:    1,
			line:   4,
			column: "SentimentText",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			require.Error(t, err)

			var pe *errors.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.row, pe.Row)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.column, pe.Column)
		})
	}
}

func TestLoaderConfigSeparators(t *testing.T) {
	cfg := DefaultLoaderConfig()
	cfg.Separator = "comma"
	table, err := cfg.Read(strings.NewReader("Label,SentimentText\n1,bad\n"))
	require.NoError(t, err)
	assert.Equal(t, "bad", table.Texts()[0])

	cfg.Separator = "|"
	table, err = cfg.Read(strings.NewReader("Label|SentimentText\n0|good\n"))
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, table.Labels())

	cfg.Separator = "::"
	_, err = cfg.Read(strings.NewReader(""))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestFloatColumns(t *testing.T) {
	cfg := LoaderConfig{
		Separator: "tab",
		HasHeader: false,
		Schema: Schema{
			{Name: "Score", Kind: Float, Index: 0},
			{Name: "Body", Kind: Text, Index: 1},
		},
		TextColumn: "Body",
	}
	table, err := cfg.Read(strings.NewReader("0.5\tx\n\ty\n"))
	require.NoError(t, err)

	scores, err := table.FloatColumn("Score")
	require.NoError(t, err)
	assert.Equal(t, 0.5, scores[0])
	assert.True(t, math.IsNaN(scores[1]))
	assert.False(t, table.HasLabels())
	assert.Nil(t, table.Labels())

	bodies, err := table.TextColumnValues("Body")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, bodies)

	_, err = table.BoolColumn("Score")
	var se *errors.SchemaError
	assert.True(t, errors.As(err, &se))
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr bool
	}{
		{"default", SentimentSchema(), false},
		{"empty", Schema{}, true},
		{"duplicate", Schema{{Name: "A", Kind: Text}, {Name: "A", Kind: Bool, Index: 1}}, true},
		{"negative index", Schema{{Name: "A", Kind: Text, Index: -1}}, true},
		{"unknown kind", Schema{{Name: "A", Kind: "date"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromRecords(t *testing.T) {
	yes, no := true, false
	table := FromRecords([]Record{{Text: "a", Label: &yes}, {Text: "b", Label: &no}})
	assert.True(t, table.HasLabels())
	assert.Equal(t, []bool{true, false}, table.Labels())

	unlabeled := FromTexts("x", "y")
	assert.False(t, unlabeled.HasLabels())
	assert.True(t, unlabeled.HasText())
	assert.Nil(t, unlabeled.Row(1).Label)
	assert.Equal(t, "y", unlabeled.Row(1).Text)

	empty := FromTexts()
	assert.Equal(t, 0, empty.Len())
	assert.True(t, empty.HasText())
}
