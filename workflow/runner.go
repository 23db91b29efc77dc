// Package workflow runs the train, evaluate, predict and save sequence and
// prints its console report.
package workflow

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/YuminosukeSato/sentiment/config"
	"github.com/YuminosukeSato/sentiment/dataset"
	"github.com/YuminosukeSato/sentiment/metrics"
	"github.com/YuminosukeSato/sentiment/pipeline"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/YuminosukeSato/sentiment/pkg/log"
	"github.com/YuminosukeSato/sentiment/sklearn/fasttree"
)

// progressPeriod is the number of boosting iterations between progress logs
const progressPeriod = 10

// Runner executes one training run.
type Runner struct {
	Config *config.Config
	Out    io.Writer // console report, os.Stdout when nil
	In     io.Reader // read once after Done when Config.Wait is set
	Logger log.Logger
}

// Result is what a run produced up to the stage it reached.
type Result struct {
	Stage      Stage                 `json:"stage"`
	Metrics    *metrics.BinaryReport `json:"metrics,omitempty"`
	Prediction pipeline.Prediction   `json:"prediction"`
	ModelPath  string                `json:"model_path,omitempty"`
	Model      *pipeline.Model       `json:"-"`
}

// step moves the run into a stage
type step struct {
	name string
	to   Stage
	run  func() error
}

// Run executes every stage in order. The first failing stage aborts the run
// and its error is returned wrapped with the stage name together with the
// partial result. No model file is written unless every earlier stage
// succeeded.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cfg := r.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return &Result{Stage: Idle}, err
	}

	logger := r.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("workflow")
	}
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	con := &console{w: out}

	res := &Result{Stage: Idle}
	var train *dataset.Table

	steps := []step{
		{log.OperationLoad, Loaded, func() error {
			var err error
			train, err = cfg.Loader.Load(cfg.Data.TrainPath)
			return err
		}},
		{log.OperationFit, Trained, func() error {
			con.println("Creating and training the model")
			opts := cfg.PipelineOptions()
			opts.Callbacks = []fasttree.Callback{fasttree.LogEvaluation(logger, progressPeriod)}
			m, err := pipeline.Fit(train, opts)
			if err != nil {
				return err
			}
			res.Model = m
			con.println("Completed Training")
			return nil
		}},
		{log.OperationEvaluate, Evaluated, func() error {
			test, err := cfg.Loader.Load(cfg.Data.TestPath)
			if err != nil {
				return err
			}
			con.println("Evaluating Model with test data")
			report, err := pipeline.Evaluate(res.Model, test)
			if err != nil {
				return err
			}
			res.Metrics = report
			con.metrics(report)
			if cfg.Evaluation.ROCPlotPath != "" {
				r.plotROC(logger, res.Model, test, cfg.Evaluation.ROCPlotPath)
			}
			return nil
		}},
		{log.OperationPredict, Predicted, func() error {
			p, err := res.Model.Predict(dataset.Record{Text: cfg.Prediction.SampleText})
			if err != nil {
				return err
			}
			res.Prediction = p
			con.prediction(p)
			return nil
		}},
		{log.OperationSave, Saved, func() error {
			if err := pipeline.Save(res.Model, cfg.Data.ModelPath); err != nil {
				return err
			}
			res.ModelPath = cfg.Data.ModelPath
			con.printf("The model is saved to %s\n", cfg.Data.ModelPath)
			return nil
		}},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return res, errors.Wrapf(err, "%s stage cancelled", s.name)
		}
		start := time.Now()
		if err := errors.SafeExecute(s.name, s.run); err != nil {
			logger.Error("Stage failed", err, log.StageKey, s.name)
			return res, errors.Wrapf(err, "%s stage failed", s.name)
		}
		if con.err != nil {
			return res, errors.Wrap(con.err, "failed to write report")
		}
		res.Stage = s.to
		logger.Debug("Stage completed",
			log.StageKey, s.name,
			"state", s.to.String(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}

	res.Stage = Done
	if cfg.Wait && r.In != nil {
		// Any line, or the end of input, ends the run.
		if _, err := bufio.NewReader(r.In).ReadString('\n'); err != nil && err != io.EOF {
			return res, errors.Wrap(err, "failed to read from stdin")
		}
	}
	return res, nil
}

// plotROC renders the ROC curve. Failures are logged and do not stop the run.
func (r *Runner) plotROC(logger log.Logger, m *pipeline.Model, test *dataset.Table, path string) {
	roc, err := pipeline.ROCCurve(m, test)
	if err == nil {
		err = metrics.SaveROCPlot(roc, path, "Toxicity classifier ROC")
	}
	if err != nil {
		logger.Warn("ROC plot skipped", err, log.PathKey, path)
		return
	}
	logger.Info("ROC plot saved", log.PathKey, path)
}
