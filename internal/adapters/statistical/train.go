package statistical

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mikey/mail-clarity/internal/core"
)

// Example is one labelled training message
type Example struct {
	Text string
	Spam bool
}

// ReadExamples reads a CSV dataset with a header row naming a "message" and a "label"
// column, the layout of the legacy history file. Labels are "spam", "not spam" or "ham".
func ReadExamples(r io.Reader) ([]Example, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	msgCol, labelCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "message":
			msgCol = i
		case "label":
			labelCol = i
		}
	}
	if msgCol < 0 || labelCol < 0 {
		return nil, errors.New(`dataset header must contain "message" and "label"`)
	}

	var examples []Example
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if msgCol >= len(row) || labelCol >= len(row) {
			return nil, fmt.Errorf("line %d: expected at least %d columns", line, max(msgCol, labelCol)+1)
		}

		raw := strings.ToLower(strings.TrimSpace(row[labelCol]))
		if raw == "ham" {
			raw = string(core.LabelNotSpam)
		}
		label, ok := core.ParseLabel(raw)
		if !ok {
			return nil, fmt.Errorf("line %d: unknown label %q", line, row[labelCol])
		}
		examples = append(examples, Example{Text: row[msgCol], Spam: label == core.LabelSpam})
	}
	return examples, nil
}

// TrainNaiveBayes fits a count vectorizer and a multinomial naive Bayes model with
// additive smoothing alpha. Texts go through normalizer exactly as they will at
// classification time, so the vocabulary matches what Vectorize sees.
func TrainNaiveBayes(examples []Example, normalizer core.Normalizer, alpha float64) (*Artifact, error) {
	if alpha <= 0 {
		return nil, fmt.Errorf("alpha must be positive, got %g", alpha)
	}

	var docs [2][][]string
	terms := map[string]struct{}{}
	for _, ex := range examples {
		class := 0
		if ex.Spam {
			class = spamClass
		}
		var toks []string
		for _, tok := range strings.Fields(normalizer.Normalize(ex.Text)) {
			if utf8.RuneCountInString(tok) < defaultMinTokenLength {
				continue
			}
			toks = append(toks, tok)
			terms[tok] = struct{}{}
		}
		docs[class] = append(docs[class], toks)
	}
	if len(docs[0]) == 0 || len(docs[1]) == 0 {
		return nil, errors.New("training needs at least one spam and one non-spam example")
	}
	if len(terms) == 0 {
		return nil, errors.New("no terms survived normalization")
	}

	sorted := make([]string, 0, len(terms))
	for term := range terms {
		sorted = append(sorted, term)
	}
	sort.Strings(sorted)
	vocab := make(map[string]int, len(sorted))
	for i, term := range sorted {
		vocab[term] = i
	}

	total := float64(len(docs[0]) + len(docs[1]))
	a := &Artifact{
		FormatVersion: FormatVersion,
		Vectorizer: VectorizerParams{
			Kind:           VectorizerCount,
			Vocabulary:     vocab,
			MinTokenLength: defaultMinTokenLength,
		},
		Classifier: ClassifierParams{
			Kind:           KindMultinomialNB,
			Classes:        []int{0, 1},
			ClassLogPrior:  make([]float64, 2),
			FeatureLogProb: make([][]float64, 2),
		},
	}

	for class := 0; class < 2; class++ {
		counts := make([]float64, len(vocab))
		var sum float64
		for _, toks := range docs[class] {
			for _, tok := range toks {
				counts[vocab[tok]]++
				sum++
			}
		}
		row := make([]float64, len(vocab))
		denom := sum + alpha*float64(len(vocab))
		for i := range row {
			row[i] = math.Log((counts[i] + alpha) / denom)
		}
		a.Classifier.ClassLogPrior[class] = math.Log(float64(len(docs[class])) / total)
		a.Classifier.FeatureLogProb[class] = row
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Save writes the artifact as indented JSON, creating the parent directory
func (a *Artifact) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
