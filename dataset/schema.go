package dataset

import (
	"fmt"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
)

// Kind は列の型
type Kind string

const (
	// Bool は 0/1 または true/false の真偽値列
	Bool Kind = "bool"
	// Text は任意の文字列列
	Text Kind = "text"
	// Float は数値列
	Float Kind = "float"
)

// Column は入力ファイルの1列を表す。Index は区切り文字で分割したフィールドの位置。
type Column struct {
	Name  string `yaml:"name" json:"name"`
	Kind  Kind   `yaml:"kind" json:"kind"`
	Index int    `yaml:"index" json:"index"`
}

// Schema は列定義の並び
type Schema []Column

// DefaultLabelColumn と DefaultTextColumn は感情データセットの標準列名
const (
	DefaultLabelColumn = "Label"
	DefaultTextColumn  = "SentimentText"
)

// SentimentSchema はラベル（0列目）と本文（1列目）からなる標準スキーマを返す
func SentimentSchema() Schema {
	return Schema{
		{Name: DefaultLabelColumn, Kind: Bool, Index: 0},
		{Name: DefaultTextColumn, Kind: Text, Index: 1},
	}
}

// Validate は列名の重複、負のインデックス、未知の型を検出する
func (s Schema) Validate() error {
	if len(s) == 0 {
		return errors.NewValidationError("schema", "must define at least one column", 0)
	}
	seen := make(map[string]struct{}, len(s))
	for i, col := range s {
		if col.Name == "" {
			return errors.NewValidationError(fmt.Sprintf("schema[%d].name", i), "must not be empty", col.Name)
		}
		if _, dup := seen[col.Name]; dup {
			return errors.NewValidationError(fmt.Sprintf("schema[%d].name", i), "duplicate column name", col.Name)
		}
		seen[col.Name] = struct{}{}
		if col.Index < 0 {
			return errors.NewValidationError(fmt.Sprintf("schema[%d].index", i), "must be non-negative", col.Index)
		}
		switch col.Kind {
		case Bool, Text, Float:
		default:
			return errors.NewValidationError(fmt.Sprintf("schema[%d].kind", i), "must be one of bool, text, float", string(col.Kind))
		}
	}
	return nil
}

// Lookup は名前で列を探す
func (s Schema) Lookup(name string) (Column, bool) {
	for _, col := range s {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Names は列名を定義順に返す
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// minFields は全列を読むために必要なフィールド数
func (s Schema) minFields() int {
	n := 0
	for _, col := range s {
		if col.Index+1 > n {
			n = col.Index + 1
		}
	}
	return n
}
