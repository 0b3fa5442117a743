package store

import (
	"context"
	"database/sql"

	"docgov/internal/policy/models"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

// PostgresGrantStore persists capability grants in the capability_grants
// table. Reads are point-in-time; expiry is evaluated by the policy
// evaluator, not filtered here, so the evaluator stays the single place
// that decides what "active" means.
type PostgresGrantStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresGrantStore {
	return &PostgresGrantStore{db: db}
}

func (s *PostgresGrantStore) ListByActor(ctx context.Context, actorID id.ActorID) ([]models.Grant, error) {
	query := `
		SELECT actor_id, capability, document_id, valid_from, valid_until
		FROM capability_grants
		WHERE actor_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, actorID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query grants")
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		var (
			g          models.Grant
			actorStr   string
			capability string
			docID      sql.NullString
			validUntil sql.NullTime
		)
		if err := rows.Scan(&actorStr, &capability, &docID, &g.ValidFrom, &validUntil); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan grant")
		}
		if g.ActorID, err = id.ParseActorID(actorStr); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt actor id")
		}
		g.Capability = models.Capability(capability)
		if docID.Valid {
			parsed, err := id.ParseDocumentID(docID.String)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt document id")
			}
			g.DocumentID = &parsed
		}
		if validUntil.Valid {
			until := validUntil.Time
			g.ValidUntil = &until
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "iterate grants")
	}
	return grants, nil
}

func (s *PostgresGrantStore) Add(ctx context.Context, grant models.Grant) error {
	query := `
		INSERT INTO capability_grants (actor_id, capability, document_id, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5)
	`
	var docID any
	if grant.DocumentID != nil {
		docID = grant.DocumentID.String()
	}
	var validUntil any
	if grant.ValidUntil != nil {
		validUntil = *grant.ValidUntil
	}
	_, err := s.db.ExecContext(ctx, query,
		grant.ActorID.String(), string(grant.Capability), docID, grant.ValidFrom, validUntil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert grant")
	}
	return nil
}

func (s *PostgresGrantStore) RemoveByCapability(ctx context.Context, actorID id.ActorID, capability models.Capability) error {
	query := `DELETE FROM capability_grants WHERE actor_id = $1 AND capability = $2`
	if _, err := s.db.ExecContext(ctx, query, actorID.String(), string(capability)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete grants")
	}
	return nil
}
