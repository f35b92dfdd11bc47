package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/domain/models"
	"github.com/issacompass/promptloop/internal/ports"
)

const defaultRunListLimit = 50

// RunRepository implements ports.RunRepository on the append-only
// prompt_runs table.
type RunRepository struct {
	BaseRepository
}

var _ ports.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

// Create persists a completed optimization run
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	history, err := json.Marshal(run.InputChatHistory)
	if err != nil {
		return err
	}
	runLog, err := json.Marshal(run.RunLog)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO prompt_runs (
			id, input_client_sequence, input_chat_history, reference_reply,
			iterations, best_delta, best_prompt, run_log, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		run.ID,
		run.InputClientSequence,
		history,
		run.ReferenceReply,
		run.Iterations,
		run.BestDelta,
		run.BestPrompt,
		runLog,
		run.CreatedAt,
	)

	return err
}

// Get retrieves a run by ID
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, input_client_sequence, input_chat_history, reference_reply,
			iterations, best_delta, best_prompt, run_log, created_at
		FROM prompt_runs
		WHERE id = $1`

	run, err := r.scanRun(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves runs newest-first with pagination
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = defaultRunListLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, input_client_sequence, input_chat_history, reference_reply,
			iterations, best_delta, best_prompt, run_log, created_at
		FROM prompt_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *RunRepository) scanRun(row pgx.Row) (*models.Run, error) {
	var run models.Run
	var history, runLog []byte

	err := row.Scan(
		&run.ID,
		&run.InputClientSequence,
		&history,
		&run.ReferenceReply,
		&run.Iterations,
		&run.BestDelta,
		&run.BestPrompt,
		&runLog,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if run.InputChatHistory, err = unmarshalJSONSlice[models.ChatMessage](history); err != nil {
		return nil, err
	}
	if run.RunLog, err = unmarshalJSONSlice[models.IterationRecord](runLog); err != nil {
		return nil, err
	}
	return &run, nil
}
