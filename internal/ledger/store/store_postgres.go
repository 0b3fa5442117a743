package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"docgov/internal/ledger"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
	txcontext "docgov/pkg/platform/tx"
)

// PostgresLedgerStore persists audit entries in the audit_entries table.
// A unique constraint on (document_id, seq) is the backstop against
// sequence races; the transition commit's serialization should prevent
// them upstream. Appends join an enclosing transaction from context.
type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresLedgerStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresLedgerStore) Head(ctx context.Context, docID id.DocumentID) (uint64, string, error) {
	query := `
		SELECT seq, entry_hash
		FROM audit_entries
		WHERE document_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`
	var (
		seq  uint64
		hash string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, docID.String()).Scan(&seq, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", dErrors.Wrap(err, dErrors.CodeInternal, "query ledger head")
	}
	return seq, hash, nil
}

func (s *PostgresLedgerStore) Append(ctx context.Context, entry ledger.Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal transition record")
	}
	query := `
		INSERT INTO audit_entries (id, document_id, seq, payload, prev_hash, entry_hash, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		entry.ID.String(),
		entry.DocumentID.String(),
		entry.Seq,
		payload,
		entry.PrevHash,
		entry.EntryHash,
		entry.RecordedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrSequenceConflict
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert audit entry")
	}
	return nil
}

func (s *PostgresLedgerStore) ListByDocument(ctx context.Context, docID id.DocumentID, afterSeq uint64, limit int) ([]ledger.Entry, error) {
	query := `
		SELECT id, document_id, seq, payload, prev_hash, entry_hash, recorded_at
		FROM audit_entries
		WHERE document_id = $1 AND seq > $2
		ORDER BY seq ASC
	`
	args := []any{docID.String(), afterSeq}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query audit entries")
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "iterate audit entries")
	}
	return entries, nil
}

func (s *PostgresLedgerStore) FindByID(ctx context.Context, entryID id.EntryID) (ledger.Entry, error) {
	query := `
		SELECT id, document_id, seq, payload, prev_hash, entry_hash, recorded_at
		FROM audit_entries
		WHERE id = $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, entryID.String())
	if err != nil {
		return ledger.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "query audit entry")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return ledger.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "query audit entry")
		}
		return ledger.Entry{}, ErrEntryNotFound
	}
	return scanEntry(rows)
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		entry    ledger.Entry
		idStr    string
		docIDStr string
		payload  []byte
	)
	if err := rows.Scan(&idStr, &docIDStr, &entry.Seq, &payload, &entry.PrevHash, &entry.EntryHash, &entry.RecordedAt); err != nil {
		return ledger.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "scan audit entry")
	}
	if err := entry.ID.UnmarshalText([]byte(idStr)); err != nil {
		return ledger.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt entry id")
	}
	docID, err := id.ParseDocumentID(docIDStr)
	if err != nil {
		return ledger.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt document id")
	}
	entry.DocumentID = docID
	if err := json.Unmarshal(payload, &entry.Payload); err != nil {
		return ledger.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt transition record")
	}
	return entry, nil
}
