package dataset

import (
	"github.com/YuminosukeSato/sentiment/pkg/errors"
)

// Record は1件の入力。推論用の入力では Label は nil。
type Record struct {
	Text  string
	Label *bool
}

// Table は読み込み済みの不変なデータ表
//
// 値は列ごとに保持する。Table を変更するメソッドはなく、
// 返すスライスはすべてコピー。
type Table struct {
	schema      Schema
	textColumn  string
	labelColumn string
	n           int

	bools  map[string][]bool
	texts  map[string][]string
	floats map[string][]float64
}

func newTable(schema Schema, textColumn, labelColumn string) *Table {
	t := &Table{
		schema:      append(Schema(nil), schema...),
		textColumn:  textColumn,
		labelColumn: labelColumn,
		bools:       make(map[string][]bool),
		texts:       make(map[string][]string),
		floats:      make(map[string][]float64),
	}
	for _, col := range schema {
		switch col.Kind {
		case Bool:
			t.bools[col.Name] = []bool{}
		case Text:
			t.texts[col.Name] = []string{}
		case Float:
			t.floats[col.Name] = []float64{}
		}
	}
	return t
}

// FromRecords は Record の並びから Table を作成する
//
// すべての Record にラベルがある場合のみラベル列を持つ。
func FromRecords(records []Record) *Table {
	labeled := len(records) > 0
	for _, r := range records {
		if r.Label == nil {
			labeled = false
			break
		}
	}

	schema := Schema{{Name: DefaultTextColumn, Kind: Text, Index: 0}}
	labelColumn := ""
	if labeled {
		schema = SentimentSchema()
		labelColumn = DefaultLabelColumn
	}

	t := newTable(schema, DefaultTextColumn, labelColumn)
	for _, r := range records {
		t.texts[DefaultTextColumn] = append(t.texts[DefaultTextColumn], r.Text)
		if labeled {
			t.bools[DefaultLabelColumn] = append(t.bools[DefaultLabelColumn], *r.Label)
		}
	}
	t.n = len(records)
	return t
}

// FromTexts はラベルなしの推論用 Table を作成する
func FromTexts(texts ...string) *Table {
	records := make([]Record, len(texts))
	for i, s := range texts {
		records[i] = Record{Text: s}
	}
	return FromRecords(records)
}

// Len は行数を返す
func (t *Table) Len() int { return t.n }

// Schema は列定義のコピーを返す
func (t *Table) Schema() Schema { return append(Schema(nil), t.schema...) }

// TextColumn は本文として扱う列名を返す
func (t *Table) TextColumn() string { return t.textColumn }

// LabelColumn はラベル列名を返す。ラベルがない場合は空文字列。
func (t *Table) LabelColumn() string { return t.labelColumn }

// HasLabels はラベル列を持つかどうか
func (t *Table) HasLabels() bool {
	_, ok := t.bools[t.labelColumn]
	return t.labelColumn != "" && ok
}

// HasText は本文列を持つかどうか
func (t *Table) HasText() bool {
	_, ok := t.texts[t.textColumn]
	return t.textColumn != "" && ok
}

// Row は i 行目を Record として返す
func (t *Table) Row(i int) Record {
	var r Record
	if t.HasText() {
		r.Text = t.texts[t.textColumn][i]
	}
	if t.HasLabels() {
		label := t.bools[t.labelColumn][i]
		r.Label = &label
	}
	return r
}

// Records は全行を Record として返す
func (t *Table) Records() []Record {
	records := make([]Record, t.n)
	for i := range records {
		records[i] = t.Row(i)
	}
	return records
}

// Texts は本文列のコピーを返す
func (t *Table) Texts() []string {
	if !t.HasText() {
		return nil
	}
	return append([]string(nil), t.texts[t.textColumn]...)
}

// Labels はラベル列のコピーを返す。ラベルがない場合は nil。
func (t *Table) Labels() []bool {
	if !t.HasLabels() {
		return nil
	}
	return append([]bool(nil), t.bools[t.labelColumn]...)
}

// LabelCounts は陽性と陰性の件数を返す
func (t *Table) LabelCounts() (positive, negative int) {
	for _, l := range t.bools[t.labelColumn] {
		if l {
			positive++
		} else {
			negative++
		}
	}
	return positive, negative
}

// BoolColumn は真偽値列のコピーを返す
func (t *Table) BoolColumn(name string) ([]bool, error) {
	v, ok := t.bools[name]
	if !ok {
		return nil, errors.NewSchemaError("BoolColumn", name, "no bool column with this name")
	}
	return append([]bool(nil), v...), nil
}

// TextColumnValues は文字列列のコピーを返す
func (t *Table) TextColumnValues(name string) ([]string, error) {
	v, ok := t.texts[name]
	if !ok {
		return nil, errors.NewSchemaError("TextColumnValues", name, "no text column with this name")
	}
	return append([]string(nil), v...), nil
}

// FloatColumn は数値列のコピーを返す
func (t *Table) FloatColumn(name string) ([]float64, error) {
	v, ok := t.floats[name]
	if !ok {
		return nil, errors.NewSchemaError("FloatColumn", name, "no float column with this name")
	}
	return append([]float64(nil), v...), nil
}
