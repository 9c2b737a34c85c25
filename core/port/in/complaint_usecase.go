package in

import (
	"context"

	"complaint_server/core/domain"
)

// ComplaintUseCase is the inbound port for complaint operations.
type ComplaintUseCase interface {
	// Create validates the text, resolves geolocation, runs the
	// enrichment pipeline, persists the record and schedules the spam
	// reconciliation re-check.
	Create(ctx context.Context, text, clientIP string) (*domain.Complaint, error)

	Get(ctx context.Context, id int64) (*domain.Complaint, error)

	List(ctx context.Context, filter *domain.ComplaintFilter) ([]*domain.Complaint, int, error)

	UpdateStatus(ctx context.Context, id int64, status domain.ComplaintStatus) error

	// RecentByCategory returns open complaints for downstream automation
	// routing.
	RecentByCategory(ctx context.Context, category domain.Category, hours int) ([]*domain.Complaint, error)
}

// SpamReconciler re-checks the spam signal for an already persisted
// complaint and overwrites the stored value.
type SpamReconciler interface {
	Reconcile(ctx context.Context, complaintID int64, text string) error
}
