package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxComplaintTextLen is the maximum accepted complaint length in characters.
const MaxComplaintTextLen = 2000

// ComplaintStatus is the lifecycle state of a complaint.
type ComplaintStatus string

const (
	StatusOpen   ComplaintStatus = "open"
	StatusClosed ComplaintStatus = "closed"
)

// ValidStatus reports whether s is a known complaint status.
func ValidStatus(s string) bool {
	return s == string(StatusOpen) || s == string(StatusClosed)
}

// Sentiment is the emotional tone label assigned by the sentiment classifier.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentUnknown  Sentiment = "unknown" // fallback when classification fails
)

// ValidSentiment reports whether s is a known sentiment label.
func ValidSentiment(s string) bool {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentUnknown:
		return true
	}
	return false
}

// Category is the topic label assigned by the category classifier.
// The Russian labels are part of the wire contract consumed by the
// downstream automation workflows.
type Category string

const (
	CategoryTechnical Category = "техническая"
	CategoryBilling   Category = "оплата"
	CategoryOther     Category = "другое" // fallback when classification fails
)

// ValidCategory reports whether s is a known category label.
func ValidCategory(s string) bool {
	switch Category(s) {
	case CategoryTechnical, CategoryBilling, CategoryOther:
		return true
	}
	return false
}

// Complaint is the persisted complaint record.
type Complaint struct {
	ID         int64
	Text       string
	Status     ComplaintStatus
	CreatedAt  time.Time
	Sentiment  Sentiment
	Category   Category
	IsSpam     *bool
	IPLocation *string
}

// EnrichedDraft is an in-flight complaint after classification but before
// the first store write. Each signal is resolved independently and always
// holds a valid label, never an error state.
type EnrichedDraft struct {
	Text       string
	Sentiment  Sentiment
	Category   Category
	IsSpam     bool
	IPLocation *string
}

// ComplaintFilter is the conjunction of list filters. Nil fields are
// not applied.
type ComplaintFilter struct {
	Status     *ComplaintStatus
	Category   *Category
	Sentiment  *Sentiment
	SinceHours *int
	Limit      int
	Offset     int
}

// NormalizeText trims the submitted complaint text and reports whether it
// is acceptable: non-blank and within the length limit.
func NormalizeText(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	if utf8.RuneCountInString(trimmed) > MaxComplaintTextLen {
		return "", false
	}
	return trimmed, true
}
