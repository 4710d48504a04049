package postgres

import (
	"context"
	"fmt"

	"github.com/upb/voiceme/models"
	"github.com/upb/voiceme/repositories"
	"go.uber.org/zap"
)

// OutcomeRepository implements the repositories.OutcomeRepository interface
type OutcomeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOutcomeRepository creates a new outcome repository
func NewOutcomeRepository(db *DB, logger *zap.Logger) repositories.OutcomeRepository {
	return &OutcomeRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new outcome record
func (r *OutcomeRepository) Insert(ctx context.Context, outcome *models.OutcomeLog) error {
	query := `
		INSERT INTO answer_outcomes (
			id, request_id, status, provider, total_attempts, failures, latency_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	// JSONB rejects an empty byte slice; send NULL instead
	var failures interface{}
	if len(outcome.Failures) > 0 {
		failures = []byte(outcome.Failures)
	}

	_, err := r.db.ExecContext(ctx, query,
		outcome.ID,
		outcome.RequestID,
		outcome.Status,
		outcome.Provider,
		outcome.TotalAttempts,
		failures,
		outcome.LatencyMs,
		outcome.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}

	r.logger.Debug("outcome inserted",
		zap.String("id", outcome.ID.String()),
		zap.String("status", string(outcome.Status)))
	return nil
}
