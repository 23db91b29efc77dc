// Package log defines standard attribute keys for the training workflow.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so that JSON log output can be filtered per concern.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator or transformer.
	// Examples: "TextFeaturizer", "FastTreeBinary"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies a fitted model instance (a UUID string).
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"

	// StageKey names the workflow stage (load, train, evaluate, predict, save).
	StageKey = "workflow.stage"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) after featurization.
	FeaturesKey = "data.features"

	// PositivesKey indicates the number of positive labels in the dataset.
	PositivesKey = "data.positives"

	// PathKey records an input or output file path.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// AUCKey records the area under the ROC curve.
	AUCKey = "metrics.auc"

	// F1ScoreKey records the F1 score at the decision threshold.
	F1ScoreKey = "metrics.f1"

	// LossKey records loss value during training or evaluation.
	LossKey = "metrics.loss"

	// IterationKey records the current boosting iteration.
	IterationKey = "training.iteration"
)

// Prediction and Output Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// ConfidenceKey records prediction probability.
	ConfidenceKey = "preds.confidence"

	// ThresholdKey records decision thresholds used for classification.
	ThresholdKey = "preds.threshold"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// LearningRateKey records the shrinkage applied to each tree.
	LearningRateKey = "hyperparams.learning_rate"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationEvaluate  = "evaluate"
	OperationSave      = "save"
	OperationLoad      = "load"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
