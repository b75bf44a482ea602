package stats

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"authlinks/pkg/metrics"
)

type Repository interface {
	InsertBulk(ctx context.Context, rows []DataStat) ([]DataStat, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

// InsertBulk inserts audit rows in one statement and returns them with
// generated ids. When the bulk statement fails it degrades to per-row
// inserts; a row that still fails is returned without an id so its
// propagation proceeds uncorrelated rather than being dropped.
func (r *PostgresRepository) InsertBulk(ctx context.Context, rows []DataStat) ([]DataStat, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	inserted, err := r.insertAll(ctx, rows)
	if err == nil {
		metrics.IncDatabaseQuery("propagation-service", "postgres", "insert_stats", "success")
		return inserted, nil
	}
	metrics.IncDatabaseQuery("propagation-service", "postgres", "insert_stats", "error")

	result := make([]DataStat, 0, len(rows))
	for _, row := range rows {
		single, singleErr := r.insertAll(ctx, []DataStat{row})
		if singleErr != nil {
			row.ID = uuid.Nil
			result = append(result, row)
			continue
		}
		result = append(result, single[0])
	}

	return result, nil
}

func (r *PostgresRepository) insertAll(ctx context.Context, rows []DataStat) ([]DataStat, error) {
	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO authority_data_stat
			(id, authority_id, action, natural_id_old, natural_id_new,
			 heading_old, heading_new, links_count, started_at)
		VALUES `)

	args := make([]interface{}, 0, len(rows)*9)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 9
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))

		id := row.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		startedAt := row.StartedAt
		if startedAt.IsZero() {
			startedAt = time.Now()
		}
		args = append(args,
			id, row.AuthorityID, string(row.Action),
			row.NaturalIDOld, row.NaturalIDNew,
			row.HeadingOld, row.HeadingNew,
			row.LinksCount, startedAt,
		)
	}
	sb.WriteString(" RETURNING id, authority_id")

	queryRows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert authority data stats: %w", err)
	}
	defer queryRows.Close()

	idsByAuthority := make(map[uuid.UUID]uuid.UUID, len(rows))
	for queryRows.Next() {
		var id, authorityID uuid.UUID
		if err := queryRows.Scan(&id, &authorityID); err != nil {
			return nil, fmt.Errorf("failed to scan inserted stat: %w", err)
		}
		idsByAuthority[authorityID] = id
	}
	if err := queryRows.Err(); err != nil {
		return nil, err
	}

	result := make([]DataStat, len(rows))
	for i, row := range rows {
		row.ID = idsByAuthority[row.AuthorityID]
		result[i] = row
	}

	return result, nil
}
