// Command sentiment trains, evaluates and applies the toxicity classifier.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/YuminosukeSato/sentiment/config"
	"github.com/YuminosukeSato/sentiment/dataset"
	"github.com/YuminosukeSato/sentiment/pipeline"
	"github.com/YuminosukeSato/sentiment/pkg/log"
	"github.com/YuminosukeSato/sentiment/workflow"
	"github.com/spf13/cobra"
)

// cli holds the flag values and the state shared by the subcommands
type cli struct {
	configPath string
	logLevel   string
	noWait     bool
	modelPath  string

	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Toxic comment classifier",
		Long: `sentiment trains a binary toxicity classifier on a tab-separated file of
labeled comments, reports its quality on a held-out file, scores a sample
statement and saves the model as a zip archive.

Run without a subcommand to train.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logCloser != nil {
				_ = c.logCloser.Close()
			}
		},
		RunE: c.runTrain,
	}

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train, evaluate, predict the sample and save the model",
		Args:  cobra.NoArgs,
		RunE:  c.runTrain,
	}

	predictCmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Score texts with a saved model",
		Long: `Loads a model written by train and prints one prediction line per text.
Texts are taken from the arguments, or one per line from stdin when none
are given.`,
		RunE: c.runPredict,
	}
	predictCmd.Flags().StringVar(&c.modelPath, "model", "", "Model archive (default: data.model_path)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.cfg.Write(cmd.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&c.noWait, "no-wait", false, "Exit without waiting for a line on stdin")

	rootCmd.AddCommand(trainCmd, predictCmd, configCmd)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and installs the logger
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.noWait {
		cfg.Wait = false
	}

	closer, err := log.Setup(cfg.Logging)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logCloser = closer
	return nil
}

func (c *cli) runTrain(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := &workflow.Runner{
		Config: c.cfg,
		Out:    cmd.OutOrStdout(),
		In:     cmd.InOrStdin(),
		Logger: log.GetLoggerWithName("workflow"),
	}
	_, err := runner.Run(ctx)
	return err
}

func (c *cli) runPredict(cmd *cobra.Command, args []string) error {
	path := c.modelPath
	if path == "" {
		path = c.cfg.Data.ModelPath
	}
	m, err := pipeline.Load(path)
	if err != nil {
		return err
	}

	texts := args
	if len(texts) == 0 {
		texts, err = readLines(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	predictions, err := m.Transform(dataset.FromTexts(texts...))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range predictions {
		if _, err := fmt.Fprintln(out, workflow.FormatPrediction(p)); err != nil {
			return err
		}
	}
	return nil
}

// readLines returns the non-blank lines of r
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
