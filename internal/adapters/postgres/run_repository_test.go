package postgres

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/domain/models"
)

func newRunRepo() *RunRepository {
	return &RunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}
}

func testRun() *models.Run {
	return models.NewRun(
		"run_abc",
		"Can I apply from Bali?",
		[]models.ChatMessage{{Role: models.ChatRoleClient, Message: "hi"}},
		"Yes, book soon.",
		18.5,
		"best prompt text",
		[]models.IterationRecord{{Iteration: 1, AvgDelta: 18.5, PromptBefore: "p", PromptAfter: "p"}},
	)
}

func TestRunRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := newRunRepo()
	run := testRun()

	mock.ExpectExec("INSERT INTO prompt_runs").
		WithArgs(
			run.ID, run.InputClientSequence, pgxmock.AnyArg(), run.ReferenceReply,
			run.Iterations, run.BestDelta, run.BestPrompt, pgxmock.AnyArg(), run.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, run); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := newRunRepo()
	run := testRun()
	history, _ := json.Marshal(run.InputChatHistory)
	runLog, _ := json.Marshal(run.RunLog)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "input_client_sequence", "input_chat_history", "reference_reply",
		"iterations", "best_delta", "best_prompt", "run_log", "created_at",
	}).AddRow(
		run.ID, run.InputClientSequence, history, run.ReferenceReply,
		run.Iterations, run.BestDelta, run.BestPrompt, runLog, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM prompt_runs").
		WithArgs(run.ID).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	got, err := repo.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != run.ID {
		t.Errorf("expected run %s, got %s", run.ID, got.ID)
	}
	if len(got.RunLog) != 1 || got.RunLog[0].Iteration != 1 {
		t.Errorf("run log not restored: %+v", got.RunLog)
	}
	if len(got.InputChatHistory) != 1 || got.InputChatHistory[0].Role != models.ChatRoleClient {
		t.Errorf("chat history not restored: %+v", got.InputChatHistory)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunRepository_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := newRunRepo()

	mock.ExpectQuery("SELECT (.+) FROM prompt_runs").
		WithArgs("run_missing").
		WillReturnError(pgx.ErrNoRows)

	ctx := setupMockContext(mock)
	if _, err := repo.Get(ctx, "run_missing"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := newRunRepo()
	run := testRun()
	history, _ := json.Marshal(run.InputChatHistory)
	runLog, _ := json.Marshal(run.RunLog)
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "input_client_sequence", "input_chat_history", "reference_reply",
		"iterations", "best_delta", "best_prompt", "run_log", "created_at",
	}).
		AddRow("run_1", run.InputClientSequence, history, run.ReferenceReply,
			run.Iterations, run.BestDelta, run.BestPrompt, runLog, now).
		AddRow("run_2", run.InputClientSequence, history, run.ReferenceReply,
			run.Iterations, run.BestDelta, run.BestPrompt, runLog, now)

	mock.ExpectQuery("SELECT (.+) FROM prompt_runs").
		WithArgs(20, 0).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	runs, err := repo.List(ctx, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunRepository_List_DefaultLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := newRunRepo()

	mock.ExpectQuery("SELECT (.+) FROM prompt_runs").
		WithArgs(defaultRunListLimit, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "input_client_sequence", "input_chat_history", "reference_reply",
			"iterations", "best_delta", "best_prompt", "run_log", "created_at",
		}))

	ctx := setupMockContext(mock)
	runs, err := repo.List(ctx, 0, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
