// Package guard decides whether a message is part of a scam. The
// decision pipeline depends only on the Classifier contract; concrete
// strategies (keyword, local ONNX model, embedding similarity) are
// injected at startup and can be swapped without touching the pipeline.
package guard

import (
	"context"
	"log"
	"math"
	"strings"
)

// Classifier is the scam detection contract: a boolean verdict plus a
// confidence in [0,1]. Implementations must never panic through
// Predict; external failures degrade to (false, 0).
type Classifier interface {
	// Name identifies the strategy for logging and startup banners.
	Name() string

	// Predict reports whether text looks like a scam and how confident
	// the strategy is.
	Predict(ctx context.Context, text string) (bool, float64)
}

// DefaultScamPhrases is the fixed list of scam-indicative phrases used
// by the keyword strategy. Case-insensitive substring matching.
var DefaultScamPhrases = []string{
	"urgent", "verify your account", "bank", "password",
	"credit card", "social security", "immediately",
	"suspended", "winner", "lottery", "prize", "wire transfer",
	"gift card", "refund",
}

// Keyword is the dependency-free fallback strategy: count phrase hits,
// confidence = min(0.5 + 0.1*hits, 0.99). Deterministic and total.
type Keyword struct {
	phrases []string
}

// NewKeyword creates the keyword strategy. A nil or empty phrase list
// falls back to DefaultScamPhrases.
func NewKeyword(phrases []string) *Keyword {
	if len(phrases) == 0 {
		phrases = DefaultScamPhrases
	}
	return &Keyword{phrases: phrases}
}

func (k *Keyword) Name() string { return "keyword" }

func (k *Keyword) Predict(_ context.Context, text string) (bool, float64) {
	lower := strings.ToLower(text)

	matches := 0
	for _, phrase := range k.phrases {
		if strings.Contains(lower, phrase) {
			matches++
		}
	}
	if matches == 0 {
		return false, 0.0
	}
	return true, math.Min(0.5+0.1*float64(matches), 0.99)
}

// Failsafe wraps any Classifier so that a panic inside the strategy
// collapses to the safe default instead of erroring the request. The
// pipeline then proceeds to a clean verdict.
type Failsafe struct {
	inner Classifier
}

// NewFailsafe wraps c. Wrapping is idempotent; a nil classifier gets a
// no-op inner that always reports clean.
func NewFailsafe(c Classifier) *Failsafe {
	if f, ok := c.(*Failsafe); ok {
		return f
	}
	if c == nil {
		log.Printf("[GUARD] no classifier configured, guard tier reports clean")
		c = noopClassifier{}
	}
	return &Failsafe{inner: c}
}

func (f *Failsafe) Name() string { return f.inner.Name() }

func (f *Failsafe) Predict(ctx context.Context, text string) (isScam bool, confidence float64) {
	// Resolve the name up front; the recovery path must not call back
	// into the strategy that just panicked.
	name := f.inner.Name()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[GUARD] %s classifier panicked, degrading to clean: %v", name, r)
			isScam, confidence = false, 0.0
		}
	}()
	return f.inner.Predict(ctx, text)
}

type noopClassifier struct{}

func (noopClassifier) Name() string { return "none" }

func (noopClassifier) Predict(context.Context, string) (bool, float64) {
	return false, 0.0
}
