package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"docgov/internal/signature"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
	txcontext "docgov/pkg/platform/tx"
)

// PostgresSignatureStore persists signature records as their versioned JSON
// encoding plus indexed columns. The JSON blob is the record of truth so
// verification stays computable against the exact serialized form.
type PostgresSignatureStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresSignatureStore {
	return &PostgresSignatureStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresSignatureStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresSignatureStore) Save(ctx context.Context, rec signature.SignatureRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal signature record")
	}
	query := `
		INSERT INTO signature_records (id, signer_id, key_id, signed_at, record)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		rec.ID.String(), rec.SignerID.String(), rec.KeyID, rec.SignedAt, payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert signature record")
	}
	return nil
}

func (s *PostgresSignatureStore) FindByID(ctx context.Context, sigID id.SignatureID) (signature.SignatureRecord, error) {
	query := `SELECT record FROM signature_records WHERE id = $1`
	var payload []byte
	err := s.execer(ctx).QueryRowContext(ctx, query, sigID.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return signature.SignatureRecord{}, ErrNotFound
	}
	if err != nil {
		return signature.SignatureRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "query signature record")
	}

	var rec signature.SignatureRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return signature.SignatureRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt signature record")
	}
	return rec, nil
}
