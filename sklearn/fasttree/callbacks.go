package fasttree

import (
	"math"
	"time"

	"github.com/YuminosukeSato/sentiment/pkg/log"
)

// TrainingLossKey is the evaluation result name of the mean training loss
const TrainingLossKey = "training_loss"

// Round is what a Callback sees of one boosting round. Callbacks run twice
// per round: before the tree is grown (Metrics is nil) and after it has
// been added to the ensemble.
type Round struct {
	Index   int
	Model   *Model
	Metrics map[string]float64
	Elapsed time.Duration // since the first callback pass of this Fit
	stop    bool
}

// Stop ends boosting once the current callback pass returns.
func (r *Round) Stop() { r.stop = true }

// Callback observes boosting rounds. A non-nil error aborts Fit.
type Callback func(r *Round) error

// LogEvaluation logs the round metrics every period rounds
func LogEvaluation(logger log.Logger, period int) Callback {
	period = max(period, 1)
	return func(r *Round) error {
		if r.Metrics == nil || r.Index%period != 0 {
			return nil
		}
		fields := []any{log.IterationKey, r.Index}
		for name, value := range r.Metrics {
			fields = append(fields, name, value)
		}
		logger.Info("Training progress", fields...)
		return nil
	}
}

// RecordEvaluation appends every round's metrics to *history.
func RecordEvaluation(history *map[string][]float64) Callback {
	return func(r *Round) error {
		if r.Metrics == nil {
			return nil
		}
		if *history == nil {
			*history = make(map[string][]float64)
		}
		for name, value := range r.Metrics {
			(*history)[name] = append((*history)[name], value)
		}
		return nil
	}
}

// EarlyStopping stops once metric has gone rounds rounds without improving.
func EarlyStopping(rounds int, metric string, minimize bool) Callback {
	sign := 1.0
	if !minimize {
		sign = -1
	}
	best := math.Inf(1)
	stale := 0
	return func(r *Round) error {
		value, ok := r.Metrics[metric]
		if !ok {
			return nil
		}
		if v := sign * value; v < best {
			best, stale = v, 0
			return nil
		}
		if stale++; stale >= rounds {
			r.Stop()
		}
		return nil
	}
}

// TimeLimit stops boosting once d has elapsed.
func TimeLimit(d time.Duration) Callback {
	return func(r *Round) error {
		if r.Elapsed > d {
			r.Stop()
		}
		return nil
	}
}

// callbackRunner drives the callbacks of one Fit call
type callbackRunner struct {
	callbacks []Callback
	start     time.Time
	stopped   bool
}

func (c *callbackRunner) reset() {
	c.start = time.Time{}
	c.stopped = false
}

// run invokes every callback for one pass; it stops early once a callback
// asked to stop.
func (c *callbackRunner) run(index int, m *Model, metrics map[string]float64) error {
	if c.start.IsZero() {
		c.start = time.Now()
	}
	r := &Round{Index: index, Model: m, Metrics: metrics, Elapsed: time.Since(c.start)}
	for _, cb := range c.callbacks {
		if err := cb(r); err != nil {
			return err
		}
		if r.stop {
			c.stopped = true
			break
		}
	}
	return nil
}
