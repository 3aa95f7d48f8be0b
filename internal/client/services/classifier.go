package services

import (
	"context"
	"strings"

	"phishvault/internal/client/models"
)

// Classifier produces a phishing verdict for captured content. The real
// classification model lives behind its own service; this interface is the
// seam the capture flow calls through.
type Classifier interface {
	Classify(ctx context.Context, kind models.InputKind, content string) (*models.MLResult, error)
}

// keywordClassifier is the built-in stand-in used when no model endpoint is
// configured: a handful of keyword signals mapped to a coarse probability.
// Good enough to exercise the capture flow, not a real detector.
type keywordClassifier struct{}

func NewKeywordClassifier() Classifier { return &keywordClassifier{} }

var phishingSignals = []string{
	"verify your account",
	"password expired",
	"urgent action required",
	"suspended",
	"confirm your identity",
	"click here immediately",
	"unusual sign-in",
	"wire transfer",
}

func (keywordClassifier) Classify(_ context.Context, _ models.InputKind, content string) (*models.MLResult, error) {
	lowered := strings.ToLower(content)

	hits := 0
	for _, signal := range phishingSignals {
		if strings.Contains(lowered, signal) {
			hits++
		}
	}

	probability := 0.05 + 0.3*float64(hits)
	if probability > 0.99 {
		probability = 0.99
	}

	return &models.MLResult{
		IsPhishing:          hits > 0,
		PhishingProbability: probability,
		ModelVersion:        "keyword-fallback-1",
	}, nil
}
