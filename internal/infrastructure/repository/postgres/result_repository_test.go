package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

func TestResultRepositorySaveIsIdempotentOnJobID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewResultRepository(db)
	score := 0.8
	result := &domain.Result{
		JobID:  "job-1",
		Prompt: "how do I fix it",
		Answer: "like this [1]",
		Citations: []domain.Citation{
			{Ref: 1, Title: "Guide", URL: "https://kb/guide", Score: &score},
		},
		Mode:       domain.ModeRetrieval,
		TopK:       8,
		ScoreFloor: 0.4,
		TS:         1724600000,
	}

	mock.ExpectExec("INSERT INTO query_results").
		WithArgs(
			"job-1",
			"how do I fix it",
			"like this [1]",
			sqlmock.AnyArg(),
			string(domain.ModeRetrieval),
			8,
			0.4,
			int64(1724600000),
			nil,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), result); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResultRepositoryGetByJobIDRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewResultRepository(db)
	rows := sqlmock.NewRows([]string{
		"job_id", "prompt", "answer", "citations", "mode", "top_k", "score_floor", "ts", "callback_error",
	}).AddRow(
		"job-1", "q", "a [1]", []byte(`[{"ref":1,"title":"Guide"}]`), "rag", 8, 0.0, int64(1724600000), "post failed",
	)

	mock.ExpectQuery("FROM query_results").
		WithArgs("job-1").
		WillReturnRows(rows)

	result, err := repo.GetByJobID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByJobID() error = %v", err)
	}
	if result.Mode != domain.ModeRAG {
		t.Fatalf("mode not restored: %q", result.Mode)
	}
	if len(result.Citations) != 1 || result.Citations[0].Title != "Guide" {
		t.Fatalf("citations not restored: %+v", result.Citations)
	}
	if result.CallbackError != "post failed" {
		t.Fatalf("callback error not restored: %q", result.CallbackError)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResultRepositoryGetByJobIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewResultRepository(db)
	mock.ExpectQuery("FROM query_results").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"job_id", "prompt", "answer", "citations", "mode", "top_k", "score_floor", "ts", "callback_error",
		}))

	_, err = repo.GetByJobID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
