package preprocessing

import (
	"encoding/json"
	"runtime"
	"sort"
	"strings"
	"unicode"

	"github.com/YuminosukeSato/sentiment/core/model"
	"github.com/YuminosukeSato/sentiment/core/parallel"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/YuminosukeSato/sentiment/pkg/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/mat"
)

// CaseMode は大文字小文字の正規化方法
type CaseMode string

const (
	CaseLower CaseMode = "lower"
	CaseUpper CaseMode = "upper"
	CaseNone  CaseMode = "none"
)

const (
	wordPrefix = "w:"
	charPrefix = "c:"

	// 文字n-gramの文頭・文末マーカー
	textStart = '\x02'
	textEnd   = '\x03'

	// この行数以下では並列化しない
	parallelThreshold = 256
)

// TextFeaturizerOptions はテキスト特徴量抽出の設定
type TextFeaturizerOptions struct {
	// WordNgramLength は単語n-gramの最大長（1からこの長さまで全て使う）。0で無効。
	WordNgramLength int `yaml:"word_ngram_length" json:"word_ngram_length"`
	// CharNgramLength は文字n-gramの長さ。0で無効。
	CharNgramLength int      `yaml:"char_ngram_length" json:"char_ngram_length"`
	CaseMode        CaseMode `yaml:"case_mode" json:"case_mode"`
	KeepDiacritics  bool     `yaml:"keep_diacritics" json:"keep_diacritics"`
	KeepPunctuation bool     `yaml:"keep_punctuation" json:"keep_punctuation"`
	KeepNumbers     bool     `yaml:"keep_numbers" json:"keep_numbers"`
	Norm            Norm     `yaml:"norm" json:"norm"`
	// MaxTerms は語彙の上限。0で無制限。
	MaxTerms int `yaml:"max_terms" json:"max_terms"`
}

// DefaultTextFeaturizerOptions は単語unigramと文字trigram、小文字化、
// ダイアクリティカルマーク除去、L2正規化の設定を返す
func DefaultTextFeaturizerOptions() TextFeaturizerOptions {
	return TextFeaturizerOptions{
		WordNgramLength: 1,
		CharNgramLength: 3,
		CaseMode:        CaseLower,
		KeepDiacritics:  false,
		KeepPunctuation: true,
		KeepNumbers:     true,
		Norm:            NormL2,
	}
}

// Validate は設定値を検証する
func (o TextFeaturizerOptions) Validate() error {
	if o.WordNgramLength < 0 {
		return errors.NewValidationError("word_ngram_length", "must be non-negative", o.WordNgramLength)
	}
	if o.CharNgramLength < 0 {
		return errors.NewValidationError("char_ngram_length", "must be non-negative", o.CharNgramLength)
	}
	if o.WordNgramLength == 0 && o.CharNgramLength == 0 {
		return errors.NewValidationError("word_ngram_length", "word or char n-grams must be enabled", 0)
	}
	switch o.CaseMode {
	case CaseLower, CaseUpper, CaseNone:
	default:
		return errors.NewValidationError("case_mode", "must be one of lower, upper, none", string(o.CaseMode))
	}
	if !o.Norm.Valid() {
		return errors.NewValidationError("norm", "must be one of none, l1, l2, max", string(o.Norm))
	}
	if o.MaxTerms < 0 {
		return errors.NewValidationError("max_terms", "must be non-negative", o.MaxTerms)
	}
	return nil
}

// TextFeaturizer はテキストを単語n-gramと文字n-gramの出現頻度ベクトルに変換する
//
// 語彙は Fit で決定し、辞書順に並べた位置が特徴量の列番号になる。
// 学習時に現れなかった語は Transform で無視される。
//
// 使用例:
//
//	f := preprocessing.NewTextFeaturizer(preprocessing.DefaultTextFeaturizerOptions())
//	if err := f.Fit(texts); err != nil {
//	    return err
//	}
//	X, err := f.Transform(texts)
type TextFeaturizer struct {
	model.BaseEstimator

	Options TextFeaturizerOptions `json:"options"`
	Terms   []string              `json:"terms"`

	index map[string]int
}

// NewTextFeaturizer は新しいTextFeaturizerを作成する
func NewTextFeaturizer(opts TextFeaturizerOptions) *TextFeaturizer {
	return &TextFeaturizer{Options: opts}
}

// Fit は語彙を学習する
func (f *TextFeaturizer) Fit(texts []string) error {
	if err := f.Options.Validate(); err != nil {
		return err
	}
	if len(texts) == 0 {
		return errors.NewValueError("TextFeaturizer.Fit", "no texts")
	}

	freq := make(map[string]int)
	for _, text := range texts {
		for _, term := range f.Analyze(text) {
			freq[term]++
		}
	}
	if len(freq) == 0 {
		return errors.NewValueError("TextFeaturizer.Fit", "empty vocabulary")
	}

	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	if f.Options.MaxTerms > 0 && len(terms) > f.Options.MaxTerms {
		sort.Slice(terms, func(i, j int) bool {
			if freq[terms[i]] != freq[terms[j]] {
				return freq[terms[i]] > freq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:f.Options.MaxTerms]
	}
	sort.Strings(terms)

	f.Terms = terms
	f.buildIndex()
	f.SetFitted()

	log.GetLoggerWithName("preprocessing.text").Debug("Vocabulary built",
		log.SamplesKey, len(texts),
		log.FeaturesKey, len(terms),
	)
	return nil
}

// Transform はテキストを n_samples × n_features の行列に変換する
func (f *TextFeaturizer) Transform(texts []string) (*mat.Dense, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError("TextFeaturizer", "Transform")
	}
	if len(texts) == 0 {
		return nil, errors.NewValueError("TextFeaturizer.Transform", "no texts")
	}

	X := mat.NewDense(len(texts), len(f.Terms), nil)
	parallel.ParallelizeWithThreshold(len(texts), parallelThreshold, runtime.NumCPU(), func(start, end int) {
		for i := start; i < end; i++ {
			row := X.RawRowView(i)
			for _, term := range f.Analyze(texts[i]) {
				if j, ok := f.index[term]; ok {
					row[j]++
				}
			}
		}
	})

	normalizer := &Normalizer{Norm: f.Options.Norm, NFeatures: len(f.Terms)}
	normalizer.normalizeRows(X)
	return X, nil
}

// FitTransform は学習と変換を同時に行う
func (f *TextFeaturizer) FitTransform(texts []string) (*mat.Dense, error) {
	if err := f.Fit(texts); err != nil {
		return nil, err
	}
	return f.Transform(texts)
}

// NumFeatures は語彙数を返す
func (f *TextFeaturizer) NumFeatures() int {
	return len(f.Terms)
}

// Analyze はテキストを正規化し、特徴量となる語（接頭辞付き）を出現順に返す
func (f *TextFeaturizer) Analyze(text string) []string {
	normalized := f.normalize(text)
	var terms []string

	if n := f.Options.WordNgramLength; n > 0 {
		words := strings.Fields(normalized)
		for size := 1; size <= n; size++ {
			for i := 0; i+size <= len(words); i++ {
				terms = append(terms, wordPrefix+strings.Join(words[i:i+size], " "))
			}
		}
	}

	if n := f.Options.CharNgramLength; n > 0 {
		chars := []rune(string(textStart) + strings.Join(strings.Fields(normalized), " ") + string(textEnd))
		for i := 0; i+n <= len(chars); i++ {
			terms = append(terms, charPrefix+string(chars[i:i+n]))
		}
	}
	return terms
}

// normalize はダイアクリティカルマーク、句読点、数字の除去と大文字小文字の変換を行う
func (f *TextFeaturizer) normalize(text string) string {
	var chain []transform.Transformer
	if !f.Options.KeepDiacritics {
		chain = append(chain, norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	}
	if !f.Options.KeepPunctuation {
		chain = append(chain, runes.Remove(runes.In(unicode.P)))
	}
	if !f.Options.KeepNumbers {
		chain = append(chain, runes.Remove(runes.In(unicode.Nd)))
	}
	switch f.Options.CaseMode {
	case CaseLower:
		chain = append(chain, cases.Lower(language.Und))
	case CaseUpper:
		chain = append(chain, cases.Upper(language.Und))
	}
	if len(chain) == 0 {
		return text
	}

	out, _, err := transform.String(transform.Chain(chain...), text)
	if err != nil {
		// 不正なUTF-8などで変換できない場合は元の文字列を使う
		return text
	}
	return out
}

func (f *TextFeaturizer) buildIndex() {
	f.index = make(map[string]int, len(f.Terms))
	for i, term := range f.Terms {
		f.index[term] = i
	}
}

// UnmarshalJSON は保存された語彙から検索用の索引を再構築する
func (f *TextFeaturizer) UnmarshalJSON(data []byte) error {
	type plain TextFeaturizer
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.Wrap(err, "failed to decode text featurizer")
	}
	*f = TextFeaturizer(p)
	f.buildIndex()
	return nil
}

var _ model.TextTransformer = (*TextFeaturizer)(nil)
