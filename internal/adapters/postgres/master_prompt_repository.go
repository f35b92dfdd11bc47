package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/issacompass/promptloop/internal/domain/models"
	"github.com/issacompass/promptloop/internal/ports"
)

// MasterPromptRepository implements ports.MasterPromptRepository on the
// singleton master_prompt row.
type MasterPromptRepository struct {
	BaseRepository
	defaultPrompt string
}

var _ ports.MasterPromptRepository = (*MasterPromptRepository)(nil)

// NewMasterPromptRepository creates a new master prompt repository.
// defaultPrompt seeds the singleton row on first access.
func NewMasterPromptRepository(pool *pgxpool.Pool, defaultPrompt string) *MasterPromptRepository {
	return &MasterPromptRepository{
		BaseRepository: NewBaseRepository(pool),
		defaultPrompt:  defaultPrompt,
	}
}

// GetOrCreate returns the current master prompt, inserting the default seed
// if the singleton row does not exist yet. A concurrent seed loses the
// insert race harmlessly via ON CONFLICT DO NOTHING.
func (r *MasterPromptRepository) GetOrCreate(ctx context.Context) (*models.MasterPrompt, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	selectQuery := `
		SELECT prompt, created_at, updated_at
		FROM master_prompt
		WHERE id = $1`

	var mp models.MasterPrompt
	err := r.conn(ctx).QueryRow(ctx, selectQuery, models.MasterPromptID).
		Scan(&mp.Prompt, &mp.CreatedAt, &mp.UpdatedAt)
	if err == nil {
		return &mp, nil
	}
	if !checkNoRows(err) {
		return nil, err
	}

	insertQuery := `
		INSERT INTO master_prompt (id, prompt)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.conn(ctx).Exec(ctx, insertQuery, models.MasterPromptID, r.defaultPrompt); err != nil {
		return nil, err
	}

	err = r.conn(ctx).QueryRow(ctx, selectQuery, models.MasterPromptID).
		Scan(&mp.Prompt, &mp.CreatedAt, &mp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

// Set overwrites the master prompt text and bumps updated_at. The upsert
// covers the fresh-database case where the row was never seeded.
func (r *MasterPromptRepository) Set(ctx context.Context, prompt string) (*models.MasterPrompt, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO master_prompt (id, prompt)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			prompt = excluded.prompt,
			updated_at = now()
		RETURNING prompt, created_at, updated_at`

	var mp models.MasterPrompt
	err := r.conn(ctx).QueryRow(ctx, query, models.MasterPromptID, prompt).
		Scan(&mp.Prompt, &mp.CreatedAt, &mp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &mp, nil
}
