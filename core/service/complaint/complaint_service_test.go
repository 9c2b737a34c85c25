package complaint

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"complaint_server/core/domain"
	"complaint_server/core/port/out"
	"complaint_server/core/service/enrichment"
	"complaint_server/pkg/apperr"
)

// =============================================================================
// Stubs
// =============================================================================

type fakeRepo struct {
	complaints map[int64]*domain.Complaint
	nextID     int64
	createErr  error
	updateErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{complaints: make(map[int64]*domain.Complaint), nextID: 1}
}

func (r *fakeRepo) Create(ctx context.Context, draft *domain.EnrichedDraft) (*domain.Complaint, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	isSpam := draft.IsSpam
	c := &domain.Complaint{
		ID:         r.nextID,
		Text:       draft.Text,
		Status:     domain.StatusOpen,
		CreatedAt:  time.Now(),
		Sentiment:  draft.Sentiment,
		Category:   draft.Category,
		IsSpam:     &isSpam,
		IPLocation: draft.IPLocation,
	}
	r.complaints[r.nextID] = c
	r.nextID++
	return c, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*domain.Complaint, error) {
	return r.complaints[id], nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id int64, status domain.ComplaintStatus) (bool, error) {
	if r.updateErr != nil {
		return false, r.updateErr
	}
	c, ok := r.complaints[id]
	if !ok {
		return false, nil
	}
	c.Status = status
	return true, nil
}

func (r *fakeRepo) UpdateSpam(ctx context.Context, id int64, isSpam bool) (bool, error) {
	if r.updateErr != nil {
		return false, r.updateErr
	}
	c, ok := r.complaints[id]
	if !ok {
		return false, nil
	}
	c.IsSpam = &isSpam
	return true, nil
}

func (r *fakeRepo) List(ctx context.Context, filter *domain.ComplaintFilter) ([]*domain.Complaint, int, error) {
	var all []*domain.Complaint
	for _, c := range r.complaints {
		all = append(all, c)
	}
	return all, len(all), nil
}

func (r *fakeRepo) RecentByCategory(ctx context.Context, category domain.Category, hours int) ([]*domain.Complaint, error) {
	var matched []*domain.Complaint
	for _, c := range r.complaints {
		if c.Category == category && c.Status == domain.StatusOpen {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

type fixedSentiment struct{ label domain.Sentiment }

func (s *fixedSentiment) Classify(ctx context.Context, text string) domain.Sentiment { return s.label }
func (s *fixedSentiment) Ping(ctx context.Context) error                             { return nil }

type fixedSpam struct{ result bool }

func (s *fixedSpam) Classify(ctx context.Context, text string) bool { return s.result }
func (s *fixedSpam) Ping(ctx context.Context) error                 { return nil }

type fixedCategory struct{ label domain.Category }

func (s *fixedCategory) Classify(ctx context.Context, text string) domain.Category { return s.label }
func (s *fixedCategory) Ping(ctx context.Context) error                            { return nil }

type fixedGeo struct {
	location string
	found    bool
}

func (g *fixedGeo) Resolve(ctx context.Context, ip string) (string, bool) {
	return g.location, g.found
}
func (g *fixedGeo) Ping(ctx context.Context) error { return nil }

type recordingScheduler struct {
	jobs   []int64
	accept bool
}

func (s *recordingScheduler) Schedule(complaintID int64, text string) bool {
	if !s.accept {
		return false
	}
	s.jobs = append(s.jobs, complaintID)
	return true
}

func newTestService(repo *fakeRepo, spam *fixedSpam, geo *fixedGeo) (*Service, *recordingScheduler) {
	enricher := enrichment.NewEnricher(
		&fixedSentiment{label: domain.SentimentNegative},
		spam,
		&fixedCategory{label: domain.CategoryTechnical},
	)
	// A typed nil pointer would still make the interface non-nil.
	var geoPort out.GeoResolver
	if geo != nil {
		geoPort = geo
	}
	svc := NewService(repo, enricher, spam, geoPort)
	scheduler := &recordingScheduler{accept: true}
	svc.SetScheduler(scheduler)
	return svc, scheduler
}

// =============================================================================
// Create
// =============================================================================

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(), &fixedSpam{}, nil)

	tests := []struct {
		name string
		text string
	}{
		{name: "empty text", text: ""},
		{name: "blank after trim", text: "   \n\t  "},
		{name: "over length limit", text: strings.Repeat("ж", domain.MaxComplaintTextLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.text, "")
			if !apperr.IsCode(err, apperr.CodeValidationFailed) {
				t.Errorf("error = %v, want VALIDATION_FAILED", err)
			}
		})
	}
}

func TestCreatePersistsEnrichedComplaint(t *testing.T) {
	repo := newFakeRepo()
	svc, scheduler := newTestService(repo, &fixedSpam{result: false}, &fixedGeo{location: "Moscow, Moscow, Russia", found: true})

	complaint, err := svc.Create(context.Background(), "  Не приходит SMS-код  ", "93.158.134.3")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if complaint.ID != 1 {
		t.Errorf("id = %d, want 1", complaint.ID)
	}
	if complaint.Status != domain.StatusOpen {
		t.Errorf("status = %q, want open", complaint.Status)
	}
	if complaint.Text != "Не приходит SMS-код" {
		t.Errorf("text = %q, want trimmed text", complaint.Text)
	}
	if complaint.Sentiment != domain.SentimentNegative {
		t.Errorf("sentiment = %q, want negative", complaint.Sentiment)
	}
	if complaint.Category != domain.CategoryTechnical {
		t.Errorf("category = %q, want %q", complaint.Category, domain.CategoryTechnical)
	}
	if complaint.IsSpam == nil || *complaint.IsSpam {
		t.Errorf("is_spam = %v, want false", complaint.IsSpam)
	}
	if complaint.IPLocation == nil || *complaint.IPLocation != "Moscow, Moscow, Russia" {
		t.Errorf("ip_location = %v, want resolved location", complaint.IPLocation)
	}

	if len(scheduler.jobs) != 1 || scheduler.jobs[0] != complaint.ID {
		t.Errorf("scheduled jobs = %v, want [%d]", scheduler.jobs, complaint.ID)
	}
}

func TestCreateGeoFailureYieldsAbsentLocation(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fixedSpam{}, &fixedGeo{found: false})

	complaint, err := svc.Create(context.Background(), "сайт не открывается", "10.0.0.1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if complaint.IPLocation != nil {
		t.Errorf("ip_location = %v, want nil", complaint.IPLocation)
	}
}

func TestCreatePersistenceFailureAborts(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("connection refused")
	svc, scheduler := newTestService(repo, &fixedSpam{}, nil)

	_, err := svc.Create(context.Background(), "valid complaint", "")
	if !apperr.IsCode(err, apperr.CodeDatabaseError) {
		t.Fatalf("error = %v, want DATABASE_ERROR", err)
	}
	if apperr.GetHTTPStatus(err) != 500 {
		t.Errorf("status = %d, want 500", apperr.GetHTTPStatus(err))
	}
	if len(scheduler.jobs) != 0 {
		t.Error("reconciliation scheduled despite failed persistence")
	}
}

func TestCreateSucceedsWhenSchedulerRejects(t *testing.T) {
	repo := newFakeRepo()
	svc, scheduler := newTestService(repo, &fixedSpam{}, nil)
	scheduler.accept = false

	complaint, err := svc.Create(context.Background(), "valid complaint", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if complaint.ID == 0 {
		t.Error("complaint not persisted")
	}
}

// =============================================================================
// Queries and status
// =============================================================================

func TestGetNotFound(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(), &fixedSpam{}, nil)

	_, err := svc.Get(context.Background(), 42)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestUpdateStatusRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo, &fixedSpam{}, nil)

	created, err := svc.Create(context.Background(), "не работает оплата", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	before := *created

	if err := svc.UpdateStatus(context.Background(), created.ID, domain.StatusClosed); err != nil {
		t.Fatalf("UpdateStatus(closed) error = %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), created.ID, domain.StatusOpen); err != nil {
		t.Fatalf("UpdateStatus(open) error = %v", err)
	}

	after, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if after.Status != domain.StatusOpen {
		t.Errorf("status = %q, want open after round trip", after.Status)
	}
	if after.Text != before.Text || after.Sentiment != before.Sentiment || after.Category != before.Category {
		t.Error("status round trip mutated unrelated fields")
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc, _ := newTestService(newFakeRepo(), &fixedSpam{}, nil)

	err := svc.UpdateStatus(context.Background(), 99, domain.StatusClosed)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

// =============================================================================
// Reconciliation
// =============================================================================

func TestReconcileOverwritesSpamOnly(t *testing.T) {
	repo := newFakeRepo()
	spam := &fixedSpam{result: false}
	svc, _ := newTestService(repo, spam, nil)

	created, err := svc.Create(context.Background(), "Не приходит SMS-код", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.IsSpam == nil || *created.IsSpam {
		t.Fatalf("synchronous is_spam = %v, want false", created.IsSpam)
	}

	// The deferred re-check is a distinct invocation and may disagree
	// with the synchronous answer.
	spam.result = true
	if err := svc.Reconcile(context.Background(), created.ID, created.Text); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	stored := repo.complaints[created.ID]
	if stored.IsSpam == nil || !*stored.IsSpam {
		t.Errorf("is_spam = %v, want true after reconciliation", stored.IsSpam)
	}
	if stored.Status != domain.StatusOpen || stored.Sentiment != domain.SentimentNegative || stored.Category != domain.CategoryTechnical {
		t.Error("reconciliation mutated fields other than is_spam")
	}
}

func TestReconcileFailures(t *testing.T) {
	t.Run("store update error", func(t *testing.T) {
		repo := newFakeRepo()
		svc, _ := newTestService(repo, &fixedSpam{}, nil)
		created, _ := svc.Create(context.Background(), "test complaint", "")

		repo.updateErr = errors.New("connection reset")
		err := svc.Reconcile(context.Background(), created.ID, created.Text)
		if !apperr.IsCode(err, apperr.CodeReconciliationFailed) {
			t.Errorf("error = %v, want RECONCILIATION_FAILED", err)
		}
	})

	t.Run("record no longer exists", func(t *testing.T) {
		svc, _ := newTestService(newFakeRepo(), &fixedSpam{}, nil)
		err := svc.Reconcile(context.Background(), 404, "gone")
		if !apperr.IsCode(err, apperr.CodeReconciliationFailed) {
			t.Errorf("error = %v, want RECONCILIATION_FAILED", err)
		}
	})
}
