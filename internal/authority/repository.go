package authority

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"authlinks/pkg/metrics"
)

type Repository interface {
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

// DeleteByIDs hard-deletes authority rows. Called by the delete
// handler after correction events have been built from live data.
func (r *PostgresRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM authority WHERE id = ANY($1)`

	_, err := r.db.ExecContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		metrics.IncDatabaseQuery("propagation-service", "postgres", "delete_authorities", "error")
		return fmt.Errorf("failed to delete authorities: %w", err)
	}
	metrics.IncDatabaseQuery("propagation-service", "postgres", "delete_authorities", "success")

	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
