package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NumericalInstabilityError は学習中の損失が NaN / Inf になった場合のエラーです。
type NumericalInstabilityError struct {
	Quantity  string  // 監視していた量（例: "training_loss"）
	Value     float64 // 検出された非有限値
	Iteration int     // ブースティングの反復番号
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("sentiment: %s became %v at iteration %d", e.Quantity, e.Value, e.Iteration)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("quantity", e.Quantity).
		Str("value", fmt.Sprint(e.Value)).
		Int("iteration", e.Iteration).
		Str("type", "NumericalInstabilityError")
}

// CheckScalar は value が有限でなければ NumericalInstabilityError を返します。
func CheckScalar(quantity string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.WithStack(&NumericalInstabilityError{Quantity: quantity, Value: value, Iteration: iteration})
	}
	return nil
}

// SafeDivide は分母がほぼ0のとき0を返す除算です。
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}

// ClipValue は value を [lo, hi] に収めます。
func ClipValue(value, lo, hi float64) float64 {
	return math.Min(math.Max(value, lo), hi)
}
