package statistical

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

// Classifier labels normalized text with the loaded artifact.
// The artifact is never mutated, so one Classifier serves all goroutines.
type Classifier struct {
	artifact *Artifact
	logger   *zap.Logger
}

// NewClassifier wraps an already loaded artifact
func NewClassifier(artifact *Artifact, logger *zap.Logger) *Classifier {
	return &Classifier{
		artifact: artifact,
		logger:   logger,
	}
}

// Load reads the artifact at path and builds a Classifier from it
func Load(path string, logger *zap.Logger) (*Classifier, error) {
	artifact, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}

	logger.Info("Statistical model loaded",
		zap.String("path", path),
		zap.String("vectorizer", artifact.Vectorizer.Kind),
		zap.String("classifier", artifact.Classifier.Kind),
		zap.Int("features", len(artifact.Vectorizer.Vocabulary)))

	return NewClassifier(artifact, logger), nil
}

// Classify labels already normalized text. Empty text is valid and still yields a label.
func (c *Classifier) Classify(_ context.Context, normalized string) (core.Label, error) {
	vec := c.artifact.Vectorize(normalized)
	class := c.artifact.Predict(vec)

	c.logger.Debug("Statistical prediction",
		zap.Int("features", len(vec.Indices)),
		zap.Int("class", class))

	if class == spamClass {
		return core.LabelSpam, nil
	}
	return core.LabelNotSpam, nil
}
