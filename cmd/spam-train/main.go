package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/adapters/statistical"
	"github.com/mikey/mail-clarity/internal/logging"
	"github.com/mikey/mail-clarity/internal/normalize"
)

func main() {
	fs := flag.NewFlagSet("spam-train", flag.ContinueOnError)
	data := fs.String("data", "", "CSV dataset with message and label columns")
	out := fs.String("out", "./models/spam_model.json", "Path to write the model artifact")
	alpha := fs.Float64("alpha", 1, "Additive smoothing")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	jsonLog := fs.Bool("json-log", false, "Log in JSON format")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if *data == "" {
		fmt.Fprintln(os.Stderr, "-data is required")
		fs.Usage()
		os.Exit(2)
	}

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := train(logger, *data, *out, *alpha); err != nil {
		logger.Error("Training failed", zap.Error(err))
		os.Exit(1)
	}
}

func train(logger *zap.Logger, dataPath, outPath string, alpha float64) error {
	file, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	examples, err := statistical.ReadExamples(file)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}

	var spam int
	for _, ex := range examples {
		if ex.Spam {
			spam++
		}
	}
	logger.Info("Loaded dataset",
		zap.String("path", dataPath),
		zap.Int("examples", len(examples)),
		zap.Int("spam", spam))

	artifact, err := statistical.TrainNaiveBayes(examples, normalize.New(), alpha)
	if err != nil {
		return err
	}
	if err := artifact.Save(outPath); err != nil {
		return err
	}

	logger.Info("Wrote model artifact",
		zap.String("path", outPath),
		zap.Int("vocabulary", len(artifact.Vectorizer.Vocabulary)))
	return nil
}
