package workflow

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/YuminosukeSato/sentiment/metrics"
	"github.com/YuminosukeSato/sentiment/pipeline"
)

const (
	evaluationFooter = "=============== End of model evaluation ==============="
	predictionHeader = "=============== Prediction Test of model with a single sample and test dataset ==============="
	predictionFooter = "=============== End of Predictions ==============="
)

// console writes the human-readable run report. The first write error
// is kept and later writes are skipped.
type console struct {
	w   io.Writer
	err error
}

func (c *console) println(a ...any) {
	if c.err != nil {
		return
	}
	_, c.err = fmt.Fprintln(c.w, a...)
}

func (c *console) printf(format string, a ...any) {
	if c.err != nil {
		return
	}
	_, c.err = fmt.Fprintf(c.w, format, a...)
}

func (c *console) metrics(report *metrics.BinaryReport) {
	c.println()
	c.println("Model quality metrics evaluation")
	c.println("--------------------------------")
	c.printf("Accuracy: %s\n", formatPercent(report.Accuracy))
	c.printf("Auc: %s\n", formatPercent(report.AUC))
	c.printf("F1Score: %s\n", formatPercent(report.F1Score))
	c.println(evaluationFooter)
}

func (c *console) prediction(p pipeline.Prediction) {
	c.println()
	c.println(predictionHeader)
	c.println()
	c.println(FormatPrediction(p))
	c.println(predictionFooter)
	c.println()
}

// FormatPrediction renders the one-line summary of a prediction
func FormatPrediction(p pipeline.Prediction) string {
	return fmt.Sprintf("Sentiment: %s | Prediction: %s | Probability: %s", p.Text, labelName(p.Label), formatProbability(p.Probability))
}

// formatPercent renders a ratio with two decimals, e.g. 0.9512 → "95.12%".
// An undefined metric is shown as NaN.
func formatPercent(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// formatProbability prints the shortest single precision representation
func formatProbability(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 32)
}

func labelName(toxic bool) string {
	if toxic {
		return "Toxic"
	}
	return "Not Toxic"
}
