package out

import (
	"context"

	"complaint_server/core/domain"
)

// ComplaintRepository persists complaints.
type ComplaintRepository interface {
	// Create assigns id and timestamp, persists the draft as an open
	// complaint and returns the full record.
	Create(ctx context.Context, draft *domain.EnrichedDraft) (*domain.Complaint, error)

	// GetByID returns nil without error when the id is absent.
	GetByID(ctx context.Context, id int64) (*domain.Complaint, error)

	// UpdateStatus atomically transitions the status. Returns false when
	// the id is absent.
	UpdateStatus(ctx context.Context, id int64, status domain.ComplaintStatus) (bool, error)

	// UpdateSpam overwrites the is_spam field. Returns false when the id
	// is absent. Used exclusively by spam reconciliation.
	UpdateSpam(ctx context.Context, id int64, isSpam bool) (bool, error)

	// List applies the filter conjunction and returns one page ordered by
	// timestamp descending, plus the total count of the filtered set.
	List(ctx context.Context, filter *domain.ComplaintFilter) ([]*domain.Complaint, int, error)

	// RecentByCategory returns open complaints in the category within the
	// last N hours, newest first.
	RecentByCategory(ctx context.Context, category domain.Category, hours int) ([]*domain.Complaint, error)
}

// SentimentClassifier resolves the sentiment signal. Implementations
// absorb every failure mode and return the fallback label instead, so
// Classify never fails from the caller's point of view.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) domain.Sentiment

	// Ping performs a probe classification against the live dependency.
	Ping(ctx context.Context) error
}

// SpamClassifier resolves the spam signal, falling back to false on any
// failure.
type SpamClassifier interface {
	Classify(ctx context.Context, text string) bool
	Ping(ctx context.Context) error
}

// CategoryClassifier resolves the topic category, falling back to
// domain.CategoryOther on any failure.
type CategoryClassifier interface {
	Classify(ctx context.Context, text string) domain.Category
	Ping(ctx context.Context) error
}

// GeoResolver maps a client IP to a human-readable location. A false
// return means the location could not be resolved; that is never an
// error condition for the caller.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (string, bool)
	Ping(ctx context.Context) error
}

// ReconcileScheduler accepts fire-and-forget spam re-check jobs. Submit
// returns false when the job could not be accepted; the caller logs and
// moves on.
type ReconcileScheduler interface {
	Schedule(complaintID int64, text string) bool
}
