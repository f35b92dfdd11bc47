package ports

import (
	"context"

	"github.com/issacompass/promptloop/internal/domain/models"
)

// MasterPromptRepository manages the singleton master prompt row.
// Each call is atomic; there is no cross-call transaction in the optimizer.
// Concurrent finalizing runs are last-write-wins on the singleton.
type MasterPromptRepository interface {
	// GetOrCreate returns the current master prompt, seeding the singleton
	// row with the default prompt if it does not exist yet.
	GetOrCreate(ctx context.Context) (*models.MasterPrompt, error)

	// Set overwrites the master prompt text and bumps updated_at.
	Set(ctx context.Context, prompt string) (*models.MasterPrompt, error)
}

// RunRepository persists completed optimization runs. Append-only.
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	Get(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, limit, offset int) ([]*models.Run, error)
}

// TransactionManager executes a function within a database transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator produces unique IDs for domain entities.
type IDGenerator interface {
	GenerateRunID() string
}
