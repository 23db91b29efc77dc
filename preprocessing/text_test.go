package preprocessing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestAnalyzeDefaults(t *testing.T) {
	f := NewTextFeaturizer(DefaultTextFeaturizerOptions())

	terms := f.Analyze("Café  RUDE")
	assert.Contains(t, terms, "w:cafe")
	assert.Contains(t, terms, "w:rude")
	assert.Contains(t, terms, "c:\x02ca")
	assert.Contains(t, terms, "c:e r")
	assert.Contains(t, terms, "c:de\x03")
	assert.NotContains(t, terms, "w:café")
}

func TestAnalyzeOptions(t *testing.T) {
	opts := TextFeaturizerOptions{
		WordNgramLength: 2,
		CaseMode:        CaseNone,
		KeepDiacritics:  true,
		KeepPunctuation: false,
		KeepNumbers:     false,
		Norm:            NormNone,
	}
	f := NewTextFeaturizer(opts)

	terms := f.Analyze("Hello, World 42!")
	assert.Equal(t, []string{"w:Hello", "w:World", "w:Hello World"}, terms)
}

func TestFitTransform(t *testing.T) {
	texts := []string{"good movie", "bad movie", "good good film"}
	f := NewTextFeaturizer(DefaultTextFeaturizerOptions())

	X, err := f.FitTransform(texts)
	require.NoError(t, err)

	r, c := X.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, f.NumFeatures(), c)
	assert.True(t, sortedStrings(f.Terms))

	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, floats.Norm(X.RawRowView(i), 2), 1e-12)
	}

	// 未知語だけのテキストはゼロベクトル
	Y, err := f.Transform([]string{"zzzz"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, floats.Norm(Y.RawRowView(0), 2))
}

func TestFitDeterministic(t *testing.T) {
	texts := []string{"b a c", "c a", "a d e f"}
	f1 := NewTextFeaturizer(DefaultTextFeaturizerOptions())
	f2 := NewTextFeaturizer(DefaultTextFeaturizerOptions())
	require.NoError(t, f1.Fit(texts))
	require.NoError(t, f2.Fit(texts))
	assert.Equal(t, f1.Terms, f2.Terms)
}

func TestMaxTerms(t *testing.T) {
	opts := DefaultTextFeaturizerOptions()
	opts.CharNgramLength = 0
	opts.MaxTerms = 2
	f := NewTextFeaturizer(opts)

	require.NoError(t, f.Fit([]string{"a b c", "a b", "a c", "d"}))
	// a:3, b:2, c:2 -> b と c は辞書順で b を優先
	assert.Equal(t, []string{"w:a", "w:b"}, f.Terms)
}

func TestTransformErrors(t *testing.T) {
	f := NewTextFeaturizer(DefaultTextFeaturizerOptions())
	_, err := f.Transform([]string{"x"})
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	assert.Error(t, f.Fit(nil))

	bad := DefaultTextFeaturizerOptions()
	bad.CaseMode = "title"
	assert.Error(t, NewTextFeaturizer(bad).Fit([]string{"x"}))
}

func TestFeaturizerJSONRoundTrip(t *testing.T) {
	texts := []string{"you are rude", "thanks for the help"}
	f := NewTextFeaturizer(DefaultTextFeaturizerOptions())
	require.NoError(t, f.Fit(texts))

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var restored TextFeaturizer
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.True(t, restored.IsFitted())

	want, err := f.Transform([]string{"rude help"})
	require.NoError(t, err)
	got, err := restored.Transform([]string{"rude help"})
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestNormalizer(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{3, 4, 0, 0, -1, 1})

	tests := []struct {
		norm Norm
		want []float64
	}{
		{NormL2, []float64{0.6, 0.8, 0, 0, -1 / math.Sqrt2, 1 / math.Sqrt2}},
		{NormL1, []float64{3.0 / 7, 4.0 / 7, 0, 0, -0.5, 0.5}},
		{NormMax, []float64{0.75, 1, 0, 0, -1, 1}},
		{NormNone, []float64{3, 4, 0, 0, -1, 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.norm), func(t *testing.T) {
			got, err := NewNormalizer(tt.norm).FitTransform(X)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(mat.NewDense(3, 2, tt.want), got, 1e-12))
		})
	}

	n := NewNormalizer(NormL2)
	_, err := n.Transform(X)
	assert.Error(t, err)
	require.NoError(t, n.Fit(X))
	_, err = n.Transform(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
	assert.Error(t, NewNormalizer("l3").Fit(X))
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= s[i] {
			return false
		}
	}
	return true
}
