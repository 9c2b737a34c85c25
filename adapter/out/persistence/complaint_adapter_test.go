package persistence

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"complaint_server/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockRepo(t *testing.T) (*ComplaintRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "pgx")
	return NewComplaintRepository(sqlxDB).(*ComplaintRepository), mock
}

func complaintRows(ids ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "text", "status", "sentiment", "category", "is_spam", "ip_location", "created_at"})
	for _, id := range ids {
		rows.AddRow(id, "Не приходит SMS-код", "open", "negative", "техническая", false, "Moscow, Moscow, Russia", time.Now())
	}
	return rows
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	location := "Moscow, Moscow, Russia"
	draft := &domain.EnrichedDraft{
		Text:       "Не приходит SMS-код",
		Sentiment:  domain.SentimentNegative,
		Category:   domain.CategoryTechnical,
		IsSpam:     false,
		IPLocation: &location,
	}

	mock.ExpectQuery(`INSERT INTO complaints`).
		WithArgs(draft.Text, string(domain.StatusOpen), string(domain.SentimentNegative), "техническая", false, location).
		WillReturnRows(complaintRows(1))

	complaint, err := repo.Create(context.Background(), draft)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if complaint.ID != 1 {
		t.Errorf("id = %d, want 1", complaint.ID)
	}
	if complaint.Status != domain.StatusOpen {
		t.Errorf("status = %q, want open", complaint.Status)
	}
	if complaint.IsSpam == nil || *complaint.IsSpam {
		t.Errorf("is_spam = %v, want false", complaint.IsSpam)
	}
	if complaint.IPLocation == nil || *complaint.IPLocation != location {
		t.Errorf("ip_location = %v, want %q", complaint.IPLocation, location)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT .+ FROM complaints WHERE id = \$1`).
			WithArgs(int64(7)).
			WillReturnRows(complaintRows(7))

		complaint, err := repo.GetByID(context.Background(), 7)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if complaint == nil || complaint.ID != 7 {
			t.Errorf("complaint = %+v, want id 7", complaint)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT .+ FROM complaints WHERE id = \$1`).
			WithArgs(int64(404)).
			WillReturnRows(complaintRows())

		complaint, err := repo.GetByID(context.Background(), 404)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if complaint != nil {
			t.Errorf("complaint = %+v, want nil for absent row", complaint)
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("row updated", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE complaints SET status = \$2 WHERE id = \$1`).
			WithArgs(int64(1), string(domain.StatusClosed)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		updated, err := repo.UpdateStatus(context.Background(), 1, domain.StatusClosed)
		if err != nil {
			t.Fatalf("UpdateStatus() error = %v", err)
		}
		if !updated {
			t.Error("updated = false, want true")
		}
	})

	t.Run("no such row", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE complaints SET status = \$2 WHERE id = \$1`).
			WithArgs(int64(99), string(domain.StatusClosed)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		updated, err := repo.UpdateStatus(context.Background(), 99, domain.StatusClosed)
		if err != nil {
			t.Fatalf("UpdateStatus() error = %v", err)
		}
		if updated {
			t.Error("updated = true, want false")
		}
	})
}

func TestUpdateSpam(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE complaints SET is_spam = \$2 WHERE id = \$1`).
		WithArgs(int64(3), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateSpam(context.Background(), 3, true)
	if err != nil {
		t.Fatalf("UpdateSpam() error = %v", err)
	}
	if !updated {
		t.Error("updated = false, want true")
	}
}

func TestList(t *testing.T) {
	statusOpen := domain.StatusOpen
	categoryTech := domain.CategoryTechnical
	since := 24

	tests := []struct {
		name      string
		filter    *domain.ComplaintFilter
		wantWhere string
		wantArgs  []driver.Value
	}{
		{
			name:      "no filters",
			filter:    &domain.ComplaintFilter{Limit: 20, Offset: 0},
			wantWhere: `WHERE TRUE`,
			wantArgs:  nil,
		},
		{
			name: "all filters combined",
			filter: &domain.ComplaintFilter{
				Status:     &statusOpen,
				Category:   &categoryTech,
				SinceHours: &since,
				Limit:      10,
				Offset:     20,
			},
			wantWhere: `WHERE TRUE AND status = \$1 AND category = \$2 AND created_at >= NOW\(\) - \$3 \* INTERVAL '1 hour'`,
			wantArgs:  []driver.Value{string(statusOpen), "техническая", since},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectQuery(`SELECT COUNT\(\*\) FROM complaints ` + tt.wantWhere).
				WithArgs(tt.wantArgs...).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

			pageArgs := append(append([]driver.Value{}, tt.wantArgs...),
				tt.filter.Limit, tt.filter.Offset)
			mock.ExpectQuery(`SELECT .+ FROM complaints\s+` + tt.wantWhere + `\s+ORDER BY created_at DESC`).
				WithArgs(pageArgs...).
				WillReturnRows(complaintRows(1, 2))

			complaints, total, err := repo.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != 42 {
				t.Errorf("total = %d, want 42", total)
			}
			if len(complaints) != 2 {
				t.Errorf("len(complaints) = %d, want 2", len(complaints))
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestListDefaultsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM complaints`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .+ FROM complaints`).
		WithArgs(20, 0).
		WillReturnRows(complaintRows())

	if _, _, err := repo.List(context.Background(), &domain.ComplaintFilter{}); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecentByCategory(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM complaints\s+WHERE category = \$1\s+AND status = \$2\s+AND created_at >= NOW\(\) - \$3 \* INTERVAL '1 hour'`).
		WithArgs("техническая", string(domain.StatusOpen), 2).
		WillReturnRows(complaintRows(5, 4))

	complaints, err := repo.RecentByCategory(context.Background(), domain.CategoryTechnical, 2)
	if err != nil {
		t.Fatalf("RecentByCategory() error = %v", err)
	}
	if len(complaints) != 2 {
		t.Errorf("len(complaints) = %d, want 2", len(complaints))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
