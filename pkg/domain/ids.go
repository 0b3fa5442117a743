// Package domain holds typed identifiers shared across the compliance core.
// Distinct types keep a document ID from being passed where an actor ID is
// expected; the compiler does the checking.
package domain

import (
	"github.com/google/uuid"

	dErrors "docgov/pkg/domain-errors"
)

// DocumentID identifies a controlled document. Stable for the life of the
// record; never reused.
type DocumentID uuid.UUID

// ActorID identifies a principal requesting transitions or producing
// signatures.
type ActorID uuid.UUID

// SignatureID identifies a signature record.
type SignatureID uuid.UUID

// EntryID identifies an audit ledger entry.
type EntryID uuid.UUID

func NewDocumentID() DocumentID   { return DocumentID(uuid.New()) }
func NewActorID() ActorID         { return ActorID(uuid.New()) }
func NewSignatureID() SignatureID { return SignatureID(uuid.New()) }
func NewEntryID() EntryID         { return EntryID(uuid.New()) }

func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) String() string { return uuid.UUID(id).String() }

func (id ActorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) String() string { return uuid.UUID(id).String() }

func (id SignatureID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SignatureID) String() string { return uuid.UUID(id).String() }

func (id EntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) String() string { return uuid.UUID(id).String() }

// ParseDocumentID parses the canonical string form of a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return DocumentID{}, dErrors.Newf(dErrors.CodeBadRequest, "invalid document id %q", s)
	}
	return DocumentID(u), nil
}

// ParseActorID parses the canonical string form of an ActorID.
func ParseActorID(s string) (ActorID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ActorID{}, dErrors.Newf(dErrors.CodeBadRequest, "invalid actor id %q", s)
	}
	return ActorID(u), nil
}

// ParseSignatureID parses the canonical string form of a SignatureID.
func ParseSignatureID(s string) (SignatureID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SignatureID{}, dErrors.Newf(dErrors.CodeBadRequest, "invalid signature id %q", s)
	}
	return SignatureID(u), nil
}

// MarshalText / UnmarshalText keep IDs stable in JSON payloads, which the
// ledger serialization depends on.

func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ActorID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ActorID) UnmarshalText(b []byte) error {
	parsed, err := ParseActorID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id SignatureID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SignatureID) UnmarshalText(b []byte) error {
	parsed, err := ParseSignatureID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id EntryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EntryID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.Newf(dErrors.CodeBadRequest, "invalid entry id %q", string(b))
	}
	*id = EntryID(u)
	return nil
}
