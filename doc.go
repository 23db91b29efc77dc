// Package sentiment trains a binary text classifier that tells toxic
// comments from clean ones.
//
// The model is a text featurizer (word and character n-gram frequencies,
// L2 normalized) followed by an ensemble of gradient boosted trees grown
// leaf-wise on histogram bins. Everything runs in-process on gonum
// matrices; there is no external ML runtime.
//
// # Quick Start
//
// The sentiment command runs the whole workflow with the default
// configuration:
//
//	go run ./cmd/sentiment --config sentiment.example.yaml
//
// The same steps from Go code:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/sentiment/dataset"
//	    "github.com/YuminosukeSato/sentiment/pipeline"
//	)
//
//	func main() {
//	    train, err := dataset.Load("Data/wikipedia-detox-250-line-data.tsv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    model, err := pipeline.Fit(train, pipeline.DefaultOptions())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    p, err := model.Predict(dataset.Record{Text: "This is a very rude movie"})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(p.Label, p.Probability)
//
//	    if err := pipeline.Save(model, "Data/Model.zip"); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Packages
//
//   - dataset: schema, delimited text loader and the immutable Table
//   - preprocessing: TextFeaturizer and row Normalizer
//   - sklearn/fasttree: boosted tree trainer, Model and Classifier
//   - metrics: accuracy, F1, AUC, log-loss, confusion matrix, ROC plots
//   - pipeline: featurize then train, Predict/Transform, Evaluate, Save/Load
//   - workflow: the staged console run
//   - config: YAML configuration
//   - core/model: estimator state, interfaces and zip archive persistence
//   - core/parallel: row range parallelism
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// # Determinism
//
// Training with the same data, options and seed yields the same trees,
// regardless of the number of threads. A saved and reloaded model makes
// bit-identical predictions.
package sentiment
