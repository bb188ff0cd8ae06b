// Package statistical applies a pre-trained bag-of-words spam model to normalized text.
package statistical

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mikey/mail-clarity/internal/core"
)

// FormatVersion is the only artifact layout this package understands
const FormatVersion = 1

// Vectorizer kinds
const (
	VectorizerCount = "count"
	VectorizerTFIDF = "tfidf"
)

// Classifier kinds
const (
	KindMultinomialNB      = "multinomial_nb"
	KindLogisticRegression = "logistic_regression"
)

// spamClass is the class value the model was trained to emit for spam
const spamClass = 1

// defaultMinTokenLength drops single-character tokens when the artifact sets no minimum
const defaultMinTokenLength = 2

// Artifact is the on-disk model: a fitted vectorizer plus a fitted binary classifier
type Artifact struct {
	FormatVersion int              `json:"format_version"`
	Vectorizer    VectorizerParams `json:"vectorizer"`
	Classifier    ClassifierParams `json:"classifier"`
}

// VectorizerParams describes the fixed feature space
type VectorizerParams struct {
	Kind           string         `json:"kind"`
	Vocabulary     map[string]int `json:"vocabulary"`
	IDF            []float64      `json:"idf,omitempty"`
	Norm           string         `json:"norm,omitempty"`
	SublinearTF    bool           `json:"sublinear_tf,omitempty"`
	Binary         bool           `json:"binary,omitempty"`
	MinTokenLength int            `json:"min_token_length,omitempty"`
}

// ClassifierParams holds the fitted parameters. Which fields are set depends on Kind.
type ClassifierParams struct {
	Kind           string      `json:"kind"`
	Classes        []int       `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior,omitempty"`
	FeatureLogProb [][]float64 `json:"feature_log_prob,omitempty"`
	Coef           [][]float64 `json:"coef,omitempty"`
	Intercept      []float64   `json:"intercept,omitempty"`
}

// SparseVector holds the non-zero features of one document, sorted by index
type SparseVector struct {
	Indices []int
	Values  []float64
}

// LoadArtifact reads and validates the artifact at path
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ArtifactLoadError{Path: path, Err: err}
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &core.ArtifactLoadError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	if err := a.Validate(); err != nil {
		return nil, &core.ArtifactLoadError{Path: path, Err: err}
	}
	return &a, nil
}

// Validate checks the artifact is internally consistent
func (a *Artifact) Validate() error {
	if a.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported format version %d", a.FormatVersion)
	}

	v := &a.Vectorizer
	n := len(v.Vocabulary)
	if n == 0 {
		return errors.New("vectorizer vocabulary is empty")
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= n {
			return fmt.Errorf("vocabulary index %d for %q out of range", idx, term)
		}
	}
	switch v.Kind {
	case VectorizerCount:
	case VectorizerTFIDF:
		if len(v.IDF) != n {
			return fmt.Errorf("idf has %d entries, vocabulary has %d", len(v.IDF), n)
		}
	default:
		return fmt.Errorf("unknown vectorizer kind %q", v.Kind)
	}
	if v.Norm != "" && v.Norm != "l2" {
		return fmt.Errorf("unsupported norm %q", v.Norm)
	}

	c := &a.Classifier
	if len(c.Classes) != 2 {
		return fmt.Errorf("expected 2 classes, got %d", len(c.Classes))
	}
	switch c.Kind {
	case KindMultinomialNB:
		if len(c.ClassLogPrior) != 2 || len(c.FeatureLogProb) != 2 {
			return errors.New("multinomial_nb needs one prior and one feature row per class")
		}
		for i, row := range c.FeatureLogProb {
			if len(row) != n {
				return fmt.Errorf("feature_log_prob row %d has %d entries, vocabulary has %d", i, len(row), n)
			}
		}
	case KindLogisticRegression:
		if len(c.Coef) != 1 || len(c.Intercept) != 1 {
			return errors.New("logistic_regression needs a single coefficient row and intercept")
		}
		if len(c.Coef[0]) != n {
			return fmt.Errorf("coef has %d entries, vocabulary has %d", len(c.Coef[0]), n)
		}
	default:
		return fmt.Errorf("unknown classifier kind %q", c.Kind)
	}
	return nil
}

// Vectorize maps normalized text into the artifact's feature space.
// Terms outside the vocabulary are ignored.
func (a *Artifact) Vectorize(normalized string) SparseVector {
	v := &a.Vectorizer
	minLen := v.MinTokenLength
	if minLen <= 0 {
		minLen = defaultMinTokenLength
	}

	counts := make(map[int]float64)
	for _, tok := range strings.Fields(normalized) {
		if utf8.RuneCountInString(tok) < minLen {
			continue
		}
		if idx, ok := v.Vocabulary[tok]; ok {
			counts[idx]++
		}
	}

	vec := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)

	for _, idx := range vec.Indices {
		tf := counts[idx]
		switch {
		case v.Binary:
			tf = 1
		case v.SublinearTF:
			tf = 1 + math.Log(tf)
		}
		if v.Kind == VectorizerTFIDF {
			tf *= v.IDF[idx]
		}
		vec.Values = append(vec.Values, tf)
	}

	if v.Norm == "l2" {
		var sum float64
		for _, x := range vec.Values {
			sum += x * x
		}
		if sum > 0 {
			norm := math.Sqrt(sum)
			for i := range vec.Values {
				vec.Values[i] /= norm
			}
		}
	}
	return vec
}

// Predict returns the predicted class. Ties go to the first class.
func (a *Artifact) Predict(vec SparseVector) int {
	c := &a.Classifier
	switch c.Kind {
	case KindLogisticRegression:
		score := c.Intercept[0] + dot(c.Coef[0], vec)
		if score > 0 {
			return c.Classes[1]
		}
		return c.Classes[0]
	default:
		best, bestScore := 0, math.Inf(-1)
		for k := range c.Classes {
			score := c.ClassLogPrior[k] + dot(c.FeatureLogProb[k], vec)
			if score > bestScore {
				best, bestScore = k, score
			}
		}
		return c.Classes[best]
	}
}

func dot(weights []float64, vec SparseVector) float64 {
	var sum float64
	for i, idx := range vec.Indices {
		sum += weights[idx] * vec.Values[i]
	}
	return sum
}
