package repositories

import (
	"context"

	"github.com/upb/voiceme/models"
)

// OutcomeRepository persists answer outcomes
type OutcomeRepository interface {
	// Insert stores one outcome record
	Insert(ctx context.Context, outcome *models.OutcomeLog) error
}
