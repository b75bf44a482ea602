package links

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"authlinks/pkg/metrics"
)

type Repository interface {
	CountByAuthorityIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	FindByAuthorityID(ctx context.Context, authorityID uuid.UUID, limit, offset int) ([]Link, error)
	UpdateSubfieldsAndNaturalID(ctx context.Context, authorityID uuid.UUID, bibTag string, subfields []string, naturalID string) error
	UpdateNaturalIDByAuthorityID(ctx context.Context, authorityID uuid.UUID, naturalID string) error
	DeleteByAuthorityIDs(ctx context.Context, ids []uuid.UUID) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

// CountByAuthorityIDs resolves current link counts for a set of
// authorities in one query. Authorities without links are absent from
// the result map.
func (r *PostgresRepository) CountByAuthorityIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	query := `
		SELECT authority_id, count(*)
		FROM instance_authority_link
		WHERE authority_id = ANY($1)
		GROUP BY authority_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		metrics.IncDatabaseQuery("propagation-service", "postgres", "count_links", "error")
		return nil, fmt.Errorf("failed to count links: %w", err)
	}
	defer rows.Close()
	metrics.IncDatabaseQuery("propagation-service", "postgres", "count_links", "success")

	for rows.Next() {
		var authorityID uuid.UUID
		var count int
		if err := rows.Scan(&authorityID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan link count: %w", err)
		}
		counts[authorityID] = count
	}

	return counts, rows.Err()
}

// FindByAuthorityID returns one page of an authority's links, ordered
// by id for stable pagination.
func (r *PostgresRepository) FindByAuthorityID(ctx context.Context, authorityID uuid.UUID, limit, offset int) ([]Link, error) {
	query := `
		SELECT id, instance_id, authority_id, authority_natural_id,
		       bib_record_tag, bib_record_subfields, linking_rule_id
		FROM instance_authority_link
		WHERE authority_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, authorityID, limit, offset)
	if err != nil {
		metrics.IncDatabaseQuery("propagation-service", "postgres", "find_links", "error")
		return nil, fmt.Errorf("failed to find links: %w", err)
	}
	defer rows.Close()
	metrics.IncDatabaseQuery("propagation-service", "postgres", "find_links", "success")

	var result []Link
	for rows.Next() {
		var link Link
		if err := rows.Scan(
			&link.ID, &link.InstanceID, &link.AuthorityID, &link.AuthorityNaturalID,
			&link.BibRecordTag, pq.Array(&link.BibRecordSubfields), &link.LinkingRuleID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		result = append(result, link)
	}

	return result, rows.Err()
}

// UpdateSubfieldsAndNaturalID rewrites the denormalized subfield list
// and natural id on every link an authority holds under one bib field.
// Set-based update; no row locking.
func (r *PostgresRepository) UpdateSubfieldsAndNaturalID(ctx context.Context, authorityID uuid.UUID, bibTag string, subfields []string, naturalID string) error {
	query := `
		UPDATE instance_authority_link
		SET bib_record_subfields = $1, authority_natural_id = $2
		WHERE authority_id = $3 AND bib_record_tag = $4
	`

	_, err := r.db.ExecContext(ctx, query, pq.Array(subfields), naturalID, authorityID, bibTag)
	if err != nil {
		metrics.IncDatabaseQuery("propagation-service", "postgres", "update_subfields", "error")
		return fmt.Errorf("failed to update link subfields: %w", err)
	}
	metrics.IncDatabaseQuery("propagation-service", "postgres", "update_subfields", "success")

	return nil
}

func (r *PostgresRepository) UpdateNaturalIDByAuthorityID(ctx context.Context, authorityID uuid.UUID, naturalID string) error {
	query := `
		UPDATE instance_authority_link
		SET authority_natural_id = $1
		WHERE authority_id = $2
	`

	_, err := r.db.ExecContext(ctx, query, naturalID, authorityID)
	if err != nil {
		metrics.IncDatabaseQuery("propagation-service", "postgres", "update_natural_id", "error")
		return fmt.Errorf("failed to update link natural id: %w", err)
	}
	metrics.IncDatabaseQuery("propagation-service", "postgres", "update_natural_id", "success")

	return nil
}

func (r *PostgresRepository) DeleteByAuthorityIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM instance_authority_link WHERE authority_id = ANY($1)`

	_, err := r.db.ExecContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		metrics.IncDatabaseQuery("propagation-service", "postgres", "delete_links", "error")
		return fmt.Errorf("failed to delete links: %w", err)
	}
	metrics.IncDatabaseQuery("propagation-service", "postgres", "delete_links", "success")

	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
