// Package handler is the thin HTTP surface over the compliance core. It
// delegates to the domain services without embedding business logic;
// lifecycle rules live in the transition engine, not here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opencontainers/go-digest"

	"docgov/internal/document/models"
	"docgov/internal/ledger"
	"docgov/internal/platform/middleware"
	"docgov/internal/signature"
	"docgov/internal/transition"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler_mocks.go -package=mocks

// TransitionService defines the lifecycle operations the handler exposes.
type TransitionService interface {
	RequestTransition(ctx context.Context, req transition.Request) (transition.Outcome, error)
	CreateDocument(ctx context.Context, docType models.DocumentType, title string, ownerID id.ActorID, content []byte) (models.ControlledDocument, error)
	NewVersion(ctx context.Context, predID id.DocumentID, actorID id.ActorID, content []byte) (models.ControlledDocument, error)
	GetDocument(ctx context.Context, docID id.DocumentID) (models.ControlledDocument, error)
}

// AuditReader reads and verifies a document's audit trail.
type AuditReader interface {
	List(ctx context.Context, docID id.DocumentID) ([]ledger.Entry, error)
	VerifyChain(ctx context.Context, docID id.DocumentID) (ledger.ChainVerificationResult, error)
}

// SignatureReader loads persisted signature records.
type SignatureReader interface {
	FindByID(ctx context.Context, sigID id.SignatureID) (signature.SignatureRecord, error)
}

// SignatureVerifier recomputes signature validity. Verification is always
// fresh; no handler response carries a stored validity flag.
type SignatureVerifier interface {
	Verify(ctx context.Context, rec signature.SignatureRecord, expectedDigest digest.Digest) (signature.VerificationResult, error)
}

// Handler handles document lifecycle endpoints.
type Handler struct {
	logger       *slog.Logger
	transitions  TransitionService
	audit        AuditReader
	sigReader    SignatureReader
	sigVerifier  SignatureVerifier
	jwtValidator middleware.JWTValidator
}

// New creates a new lifecycle Handler.
func New(
	transitions TransitionService,
	audit AuditReader,
	sigReader SignatureReader,
	sigVerifier SignatureVerifier,
	logger *slog.Logger,
	jwtValidator middleware.JWTValidator,
) *Handler {
	return &Handler{
		logger:       logger,
		transitions:  transitions,
		audit:        audit,
		sigReader:    sigReader,
		sigVerifier:  sigVerifier,
		jwtValidator: jwtValidator,
	}
}

// Register registers the lifecycle routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	docRouter := chi.NewRouter()
	docRouter.Use(middleware.Recovery(h.logger))
	docRouter.Use(middleware.RequestID)
	docRouter.Use(middleware.Logger(h.logger))
	docRouter.Use(middleware.Timeout(30 * time.Second))
	docRouter.Use(middleware.ContentTypeJSON)
	docRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	docRouter.Post("/documents", h.handleCreateDocument)
	docRouter.Get("/documents/{documentID}", h.handleGetDocument)
	docRouter.Post("/documents/{documentID}/transitions", h.handleRequestTransition)
	docRouter.Post("/documents/{documentID}/versions", h.handleNewVersion)
	docRouter.Get("/documents/{documentID}/audit", h.handleAuditTrail)
	docRouter.Get("/documents/{documentID}/audit/verify", h.handleVerifyChain)
	docRouter.Get("/signatures/{signatureID}/verify", h.handleVerifySignature)

	r.Mount("/", docRouter)
}

type createDocumentRequest struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type documentResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Title         string  `json:"title"`
	State         string  `json:"state"`
	ContentDigest string  `json:"content_digest"`
	Version       int64   `json:"version"`
	OwnerID       string  `json:"owner_id"`
	Supersedes    *string `json:"supersedes,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toDocumentResponse(doc models.ControlledDocument) documentResponse {
	resp := documentResponse{
		ID:            doc.ID.String(),
		Type:          string(doc.Type),
		Title:         doc.Title,
		State:         string(doc.State),
		ContentDigest: doc.ContentDigest.String(),
		Version:       doc.Version,
		OwnerID:       doc.OwnerID.String(),
		CreatedAt:     doc.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     doc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if doc.Supersedes != nil {
		pred := doc.Supersedes.String()
		resp.Supersedes = &pred
	}
	return resp
}

func (h *Handler) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID := middleware.GetActorID(ctx)

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	doc, err := h.transitions.CreateDocument(ctx, models.DocumentType(req.Type), req.Title, actorID, []byte(req.Content))
	if err != nil {
		h.logAndWriteError(ctx, w, "create document failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.transitions.GetDocument(ctx, docID)
	if err != nil {
		h.logAndWriteError(ctx, w, "get document failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

type transitionRequest struct {
	Action        string `json:"action"`
	Comment       string `json:"comment,omitempty"`
	SigningIntent string `json:"signing_intent,omitempty"`
}

type transitionResponse struct {
	Outcome      string  `json:"outcome"`
	NewState     string  `json:"new_state,omitempty"`
	AuditEntryID string  `json:"audit_entry_id,omitempty"`
	SignatureID  *string `json:"signature_id,omitempty"`
	DenyReason   string  `json:"deny_reason,omitempty"`
}

func (h *Handler) handleRequestTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID := middleware.GetActorID(ctx)

	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	outcome, err := h.transitions.RequestTransition(ctx, transition.Request{
		DocumentID:    docID,
		Action:        req.Action,
		ActorID:       actorID,
		Comment:       req.Comment,
		SigningIntent: req.SigningIntent,
	})
	if err != nil {
		h.logAndWriteError(ctx, w, "transition request failed", err)
		return
	}

	resp := transitionResponse{
		Outcome:    string(outcome.Kind),
		DenyReason: outcome.DenyReason,
	}
	if !outcome.AuditEntryID.IsNil() {
		resp.AuditEntryID = outcome.AuditEntryID.String()
	}
	if outcome.Kind == models.OutcomeCommitted {
		resp.NewState = string(outcome.NewState)
	}
	if outcome.SignatureID != nil {
		sigID := outcome.SignatureID.String()
		resp.SignatureID = &sigID
	}
	writeJSON(w, http.StatusOK, resp)
}

type newVersionRequest struct {
	Content string `json:"content"`
}

func (h *Handler) handleNewVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID := middleware.GetActorID(ctx)

	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req newVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	successor, err := h.transitions.NewVersion(ctx, docID, actorID, []byte(req.Content))
	if err != nil {
		h.logAndWriteError(ctx, w, "new version failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(successor))
}

type auditEntryResponse struct {
	ID         string                  `json:"id"`
	Seq        uint64                  `json:"seq"`
	Payload    models.TransitionRecord `json:"payload"`
	PrevHash   string                  `json:"prev_hash"`
	EntryHash  string                  `json:"entry_hash"`
	RecordedAt string                  `json:"recorded_at"`
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.audit.List(ctx, docID)
	if err != nil {
		h.logAndWriteError(ctx, w, "audit trail read failed", err)
		return
	}

	resp := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, auditEntryResponse{
			ID:         entry.ID.String(),
			Seq:        entry.Seq,
			Payload:    entry.Payload,
			PrevHash:   entry.PrevHash,
			EntryHash:  entry.EntryHash,
			RecordedAt: entry.RecordedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": resp})
}

type chainVerificationResponse struct {
	OK             bool    `json:"ok"`
	CheckedThrough uint64  `json:"checked_through"`
	DivergenceSeq  *uint64 `json:"divergence_seq,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

func (h *Handler) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.audit.VerifyChain(ctx, docID)
	if err != nil {
		h.logAndWriteError(ctx, w, "chain verification failed", err)
		return
	}
	writeJSON(w, http.StatusOK, chainVerificationResponse{
		OK:             result.OK,
		CheckedThrough: result.CheckedThrough,
		DivergenceSeq:  result.DivergenceSeq,
		Reason:         result.Reason,
	})
}

type verificationResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleVerifySignature(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sigID, err := id.ParseSignatureID(chi.URLParam(r, "signatureID"))
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.sigReader.FindByID(ctx, sigID)
	if err != nil {
		h.logAndWriteError(ctx, w, "signature lookup failed", err)
		return
	}
	result, err := h.sigVerifier.Verify(ctx, rec, rec.ContentDigest)
	if err != nil {
		h.logAndWriteError(ctx, w, "signature verification failed", err)
		return
	}
	writeJSON(w, http.StatusOK, verificationResponse{
		Status: string(result.Status),
		Reason: result.Reason,
	})
}

func (h *Handler) logAndWriteError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	switch dErrors.GetCode(err) {
	case dErrors.CodeBadRequest, dErrors.CodeNotFound, dErrors.CodeConflict, dErrors.CodeForbidden:
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err.Error())
		writeError(w, err)
	default:
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err.Error())
		writeError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
	}
}

// writeError centralizes domain error translation to HTTP responses so
// every endpoint produces the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
