// Package complaint implements the complaint use cases: creation with
// enrichment, queries, status transitions and spam reconciliation.
package complaint

import (
	"context"
	"fmt"

	"complaint_server/core/domain"
	"complaint_server/core/port/out"
	"complaint_server/core/service/enrichment"
	"complaint_server/pkg/apperr"
	"complaint_server/pkg/logger"
)

// Service implements in.ComplaintUseCase and in.SpamReconciler.
type Service struct {
	repo      out.ComplaintRepository
	enricher  *enrichment.Enricher
	spam      out.SpamClassifier
	geo       out.GeoResolver
	scheduler out.ReconcileScheduler
}

// NewService creates the complaint service. geo may be nil when
// geolocation is not configured. The reconcile scheduler is attached
// later via SetScheduler because the worker pool needs the service as
// its reconciler first.
func NewService(repo out.ComplaintRepository, enricher *enrichment.Enricher, spam out.SpamClassifier, geo out.GeoResolver) *Service {
	return &Service{
		repo:     repo,
		enricher: enricher,
		spam:     spam,
		geo:      geo,
	}
}

// SetScheduler attaches the reconciliation scheduler. Must be called
// before the service handles requests.
func (s *Service) SetScheduler(scheduler out.ReconcileScheduler) {
	s.scheduler = scheduler
}

// Create validates the text, resolves geolocation, enriches the
// complaint and persists it. Only a store failure aborts the request;
// every dependency failure degrades to a fallback value. After the
// record is durable, a spam re-check is scheduled fire-and-forget.
func (s *Service) Create(ctx context.Context, text, clientIP string) (*domain.Complaint, error) {
	trimmed, ok := domain.NormalizeText(text)
	if !ok {
		return nil, apperr.ValidationFailed(
			fmt.Sprintf("text must be non-blank and at most %d characters", domain.MaxComplaintTextLen))
	}

	draft := s.enricher.Enrich(ctx, trimmed)

	if s.geo != nil && clientIP != "" {
		if location, found := s.geo.Resolve(ctx, clientIP); found {
			draft.IPLocation = &location
		}
	}

	complaint, err := s.repo.Create(ctx, draft)
	if err != nil {
		return nil, apperr.DatabaseError("create complaint", err)
	}

	logger.WithContext(ctx).
		WithFields(map[string]any{
			"complaint_id": complaint.ID,
			"sentiment":    string(complaint.Sentiment),
			"category":     string(complaint.Category),
		}).
		Info("complaint created")

	if s.scheduler != nil {
		if !s.scheduler.Schedule(complaint.ID, trimmed) {
			logger.WithField("complaint_id", complaint.ID).
				Warn("spam reconciliation not scheduled, queue rejected the job")
		}
	}

	return complaint, nil
}

// Get returns the complaint or a not-found error.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Complaint, error) {
	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.DatabaseError("get complaint", err)
	}
	if complaint == nil {
		return nil, apperr.NotFound("complaint")
	}
	return complaint, nil
}

// List applies the filter conjunction and returns one page plus the
// total count of the filtered set.
func (s *Service) List(ctx context.Context, filter *domain.ComplaintFilter) ([]*domain.Complaint, int, error) {
	complaints, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.DatabaseError("list complaints", err)
	}
	return complaints, total, nil
}

// UpdateStatus transitions the status. Both directions are allowed;
// nothing system-internal ever closes a complaint on its own.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.ComplaintStatus) error {
	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return apperr.DatabaseError("update complaint status", err)
	}
	if !updated {
		return apperr.NotFound("complaint")
	}

	logger.WithContext(ctx).
		WithFields(map[string]any{"complaint_id": id, "status": string(status)}).
		Info("complaint status updated")

	return nil
}

// RecentByCategory returns open complaints for automation routing.
func (s *Service) RecentByCategory(ctx context.Context, category domain.Category, hours int) ([]*domain.Complaint, error) {
	complaints, err := s.repo.RecentByCategory(ctx, category, hours)
	if err != nil {
		return nil, apperr.DatabaseError("list recent complaints", err)
	}
	return complaints, nil
}

// Reconcile re-runs the spam classification for a persisted complaint
// and overwrites the stored value. This is a distinct invocation, not a
// retry: it may legitimately disagree with the synchronous answer taken
// moments earlier. Failures here are terminal for the record and
// non-fatal for the system.
func (s *Service) Reconcile(ctx context.Context, complaintID int64, text string) error {
	isSpam := s.spam.Classify(ctx, text)

	updated, err := s.repo.UpdateSpam(ctx, complaintID, isSpam)
	if err != nil {
		return apperr.ReconciliationFailed(complaintID, err)
	}
	if !updated {
		return apperr.ReconciliationFailed(complaintID, fmt.Errorf("complaint no longer exists"))
	}

	logger.WithFields(map[string]any{"complaint_id": complaintID, "is_spam": isSpam}).
		Info("spam reconciliation completed")

	return nil
}
