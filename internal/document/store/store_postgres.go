package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/opencontainers/go-digest"

	"docgov/internal/document/models"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
	txcontext "docgov/pkg/platform/tx"
)

// PostgresDocumentStore persists documents in the documents table. Writes
// join an enclosing transaction when one is present in context, which is
// how the transition commit stays atomic with the ledger append.
type PostgresDocumentStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresDocumentStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresDocumentStore) Create(ctx context.Context, doc models.ControlledDocument) error {
	query := `
		INSERT INTO documents (id, doc_type, title, state, content_digest, version, owner_id, supersedes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var supersedes any
	if doc.Supersedes != nil {
		supersedes = doc.Supersedes.String()
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		doc.ID.String(),
		string(doc.Type),
		doc.Title,
		string(doc.State),
		doc.ContentDigest.String(),
		doc.Version,
		doc.OwnerID.String(),
		supersedes,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert document")
	}
	return nil
}

func (s *PostgresDocumentStore) FindByID(ctx context.Context, docID id.DocumentID) (models.ControlledDocument, error) {
	query := `
		SELECT id, doc_type, title, state, content_digest, version, owner_id, supersedes, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, docID.String())

	var (
		doc         models.ControlledDocument
		docIDStr    string
		docType     string
		state       string
		contentDgst string
		ownerIDStr  string
		supersedes  sql.NullString
	)
	err := row.Scan(&docIDStr, &docType, &doc.Title, &state, &contentDgst, &doc.Version, &ownerIDStr, &supersedes, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ControlledDocument{}, ErrNotFound
	}
	if err != nil {
		return models.ControlledDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "query document")
	}

	if doc.ID, err = id.ParseDocumentID(docIDStr); err != nil {
		return models.ControlledDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt document id")
	}
	if doc.OwnerID, err = id.ParseActorID(ownerIDStr); err != nil {
		return models.ControlledDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt owner id")
	}
	doc.Type = models.DocumentType(docType)
	doc.State = models.LifecycleState(state)
	doc.ContentDigest = digest.Digest(contentDgst)
	if supersedes.Valid {
		prev, err := id.ParseDocumentID(supersedes.String)
		if err != nil {
			return models.ControlledDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt supersedes id")
		}
		doc.Supersedes = &prev
	}
	return doc, nil
}

// CommitState applies the post-transition state with an optimistic version
// check in the WHERE clause. Zero rows affected means either the document
// vanished or another transition won the race.
func (s *PostgresDocumentStore) CommitState(ctx context.Context, docID id.DocumentID, expectedVersion int64, newState models.LifecycleState, newVersion int64, at time.Time) error {
	query := `
		UPDATE documents
		SET state = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		string(newState), newVersion, at, docID.String(), expectedVersion)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update document state")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rows affected")
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, docID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	return nil
}

// UpdateContent swaps the content digest of an editable document.
func (s *PostgresDocumentStore) UpdateContent(ctx context.Context, docID id.DocumentID, dgst digest.Digest, at time.Time) error {
	query := `
		UPDATE documents
		SET content_digest = $1, updated_at = $2
		WHERE id = $3 AND state NOT IN ($4, $5)
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		dgst.String(), at, docID.String(),
		string(models.StateApproved), string(models.StateObsolete))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update document content")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rows affected")
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, docID); err != nil {
			return err
		}
		return dErrors.Newf(dErrors.CodeConflict, "document %s is terminal; create a new version to edit content", docID)
	}
	return nil
}
