package dataset

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/YuminosukeSato/sentiment/pkg/log"
)

// LoaderConfig は区切り文字付きテキストファイルの読み込み設定
//
// Separator には "tab"、"comma"、"space"、"semicolon" のいずれか、
// または1文字の区切り文字そのものを指定する。
type LoaderConfig struct {
	Separator   string `yaml:"separator"`
	HasHeader   bool   `yaml:"has_header"`
	Schema      Schema `yaml:"columns"`
	LabelColumn string `yaml:"label_column"`
	TextColumn  string `yaml:"text_column"`
}

// DefaultLoaderConfig はヘッダー付きタブ区切りの感情データセット用設定を返す
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		Separator:   "tab",
		HasHeader:   true,
		Schema:      SentimentSchema(),
		LabelColumn: DefaultLabelColumn,
		TextColumn:  DefaultTextColumn,
	}
}

// separator は Separator を区切り文字に変換する
func (c LoaderConfig) separator() (string, error) {
	switch strings.ToLower(c.Separator) {
	case "tab", `\t`:
		return "\t", nil
	case "comma":
		return ",", nil
	case "space":
		return " ", nil
	case "semicolon":
		return ";", nil
	}
	if utf8.RuneCountInString(c.Separator) == 1 {
		return c.Separator, nil
	}
	return "", errors.NewValidationError("separator", "must be tab, comma, space, semicolon or a single character", c.Separator)
}

// Validate は設定の整合性を検証する
func (c LoaderConfig) Validate() error {
	if _, err := c.separator(); err != nil {
		return err
	}
	if err := c.Schema.Validate(); err != nil {
		return err
	}
	if c.TextColumn != "" {
		col, ok := c.Schema.Lookup(c.TextColumn)
		if !ok || col.Kind != Text {
			return errors.NewValidationError("text_column", "must name a text column of the schema", c.TextColumn)
		}
	}
	if c.LabelColumn != "" {
		col, ok := c.Schema.Lookup(c.LabelColumn)
		if !ok || col.Kind != Bool {
			return errors.NewValidationError("label_column", "must name a bool column of the schema", c.LabelColumn)
		}
	}
	return nil
}

// Load はファイルを読み込んで Table を返す
func (c LoaderConfig) Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError(path)
		}
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	t, err := c.read(f, path)
	if err != nil {
		return nil, err
	}

	pos, neg := t.LabelCounts()
	log.GetLoggerWithName("dataset.loader").Debug("Loaded table",
		log.PathKey, path,
		log.SamplesKey, t.Len(),
		log.PositivesKey, pos,
		"negatives", neg,
	)
	return t, nil
}

// Read は io.Reader から Table を読み込む
func (c LoaderConfig) Read(r io.Reader) (*Table, error) {
	return c.read(r, "")
}

func (c LoaderConfig) read(r io.Reader, source string) (*Table, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sep, _ := c.separator()
	need := c.Schema.minFields()

	t := newTable(c.Schema, c.TextColumn, c.LabelColumn)
	br := bufio.NewReader(r)

	line := 0
	headerPending := c.HasHeader
	for {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, errors.Wrapf(readErr, "failed to read %s", source)
		}
		if raw == "" && readErr == io.EOF {
			break
		}
		line++

		text := strings.TrimRight(raw, "\r\n")
		if headerPending {
			headerPending = false
		} else if strings.TrimSpace(text) != "" {
			if err := t.appendRow(strings.Split(text, sep), need, source, line); err != nil {
				return nil, err
			}
		}

		if readErr == io.EOF {
			break
		}
	}
	return t, nil
}

// appendRow は1行分のフィールドを変換して各列に追加する
func (t *Table) appendRow(fields []string, need int, source string, line int) error {
	row := t.n
	if len(fields) < need {
		missing := ""
		for _, col := range t.schema {
			if col.Index >= len(fields) {
				missing = col.Name
				break
			}
		}
		return errors.NewParseError(source, row, line, missing, "",
			"expected at least "+strconv.Itoa(need)+" fields, got "+strconv.Itoa(len(fields)))
	}

	// 全列の変換が成功してから追加する
	bools := make(map[string]bool)
	floats := make(map[string]float64)
	for _, col := range t.schema {
		value := fields[col.Index]
		switch col.Kind {
		case Bool:
			b, err := parseBool(value)
			if err != nil {
				return errors.NewParseError(source, row, line, col.Name, value, "not a boolean")
			}
			bools[col.Name] = b
		case Float:
			f, err := parseFloat(value)
			if err != nil {
				return errors.NewParseError(source, row, line, col.Name, value, "not a number")
			}
			floats[col.Name] = f
		}
	}

	for _, col := range t.schema {
		switch col.Kind {
		case Bool:
			t.bools[col.Name] = append(t.bools[col.Name], bools[col.Name])
		case Float:
			t.floats[col.Name] = append(t.floats[col.Name], floats[col.Name])
		case Text:
			t.texts[col.Name] = append(t.texts[col.Name], fields[col.Index])
		}
	}
	t.n++
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, errors.Newf("invalid boolean %q", s)
}

// parseFloat は空欄を欠損値（NaN）として扱う
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "?" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// Load は標準設定（ヘッダー付きタブ区切り、Label と SentimentText）でファイルを読み込む
func Load(path string) (*Table, error) {
	return DefaultLoaderConfig().Load(path)
}

// Read は標準設定で io.Reader から読み込む
func Read(r io.Reader) (*Table, error) {
	return DefaultLoaderConfig().Read(r)
}
