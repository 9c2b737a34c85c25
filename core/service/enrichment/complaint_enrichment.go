// Package enrichment fans a complaint out to the three signal
// classifiers and joins the results into an enriched draft.
package enrichment

import (
	"context"
	"sync"

	"complaint_server/core/domain"
	"complaint_server/core/port/out"
	"complaint_server/pkg/logger"
)

// Enricher resolves the three enrichment signals concurrently. The
// classifier adapters absorb their own failures, so the only error
// handling here is a recover guard against a misbehaving adapter; in
// every case each signal resolves to a valid label.
type Enricher struct {
	sentiment out.SentimentClassifier
	spam      out.SpamClassifier
	category  out.CategoryClassifier
}

// NewEnricher creates an Enricher.
func NewEnricher(sentiment out.SentimentClassifier, spam out.SpamClassifier, category out.CategoryClassifier) *Enricher {
	return &Enricher{
		sentiment: sentiment,
		spam:      spam,
		category:  category,
	}
}

// Enrich classifies the text on all three signals. The calls are
// independent and run concurrently, so total latency is the max of the
// three classifier budgets, not their sum. Each goroutine writes only
// its own result slot before the join point.
func (e *Enricher) Enrich(ctx context.Context, text string) *domain.EnrichedDraft {
	draft := &domain.EnrichedDraft{
		Text:      text,
		Sentiment: domain.SentimentUnknown,
		Category:  domain.CategoryOther,
		IsSpam:    false,
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		defer recoverSignal("sentiment")
		draft.Sentiment = e.sentiment.Classify(ctx, text)
	}()

	go func() {
		defer wg.Done()
		defer recoverSignal("spam")
		draft.IsSpam = e.spam.Classify(ctx, text)
	}()

	go func() {
		defer wg.Done()
		defer recoverSignal("category")
		draft.Category = e.category.Classify(ctx, text)
	}()

	wg.Wait()

	return draft
}

// recoverSignal keeps a panicking classifier adapter from taking down
// the request; the signal keeps its fallback value.
func recoverSignal(signal string) {
	if r := recover(); r != nil {
		logger.WithField("signal", signal).
			WithField("panic", r).
			Error("classifier panicked, keeping fallback label")
	}
}
