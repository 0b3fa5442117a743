// Package e2e drives the full stack over HTTP: real middleware, real JWT
// validation, real services, in-memory storage. These tests cover the wiring
// the handler unit tests mock away.
package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	blobstore "docgov/internal/document/content"
	docstore "docgov/internal/document/store"
	jwttoken "docgov/internal/jwt_token"
	"docgov/internal/ledger"
	ledgerstore "docgov/internal/ledger/store"
	"docgov/internal/platform/logger"
	"docgov/internal/policy"
	policymodels "docgov/internal/policy/models"
	policystore "docgov/internal/policy/store"
	"docgov/internal/signature"
	"docgov/internal/signature/keystore"
	"docgov/internal/signature/revocation"
	sigstore "docgov/internal/signature/store"
	"docgov/internal/transition"
	"docgov/internal/transition/handler"
	id "docgov/pkg/domain"
	txcontext "docgov/pkg/platform/tx"
	"docgov/pkg/testutil"
)

const approverIntent = "i-approve-this-document"

type stack struct {
	router    chi.Router
	jwt       *jwttoken.JWTService
	grants    *policystore.InMemoryGrantStore
	keys      *keystore.InMemoryKeyStore
	reviewers *policystore.InMemoryReviewerDirectory
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := logger.New()

	documents := docstore.NewMemory()
	blobs := blobstore.NewMemory()
	ledgerSt := ledgerstore.NewMemory()
	signatures := sigstore.NewMemory()
	grants := policystore.NewMemory()
	keys := keystore.NewMemory()
	reviewers := policystore.NewMemoryReviewerDirectory()
	runner := txcontext.NewMemoryRunner(documents, ledgerSt, signatures)

	signer, err := signature.New(keys, revocation.NewMemory(), signature.WithLogger(log))
	require.NoError(t, err)
	evaluator, err := policy.New(grants, policy.WithLogger(log))
	require.NoError(t, err)
	audit, err := ledger.New(ledgerSt, ledger.WithLogger(log))
	require.NoError(t, err)
	tables, err := transition.DefaultTables()
	require.NoError(t, err)

	transitions, err := transition.New(documents, blobs, audit, signer, signatures, evaluator, runner, tables,
		transition.WithLogger(log),
		transition.WithReviewerDirectory(reviewers),
	)
	require.NoError(t, err)

	jwtService := jwttoken.NewJWTService("e2e-signing-key", "docgov", "docgov-api")
	router := chi.NewRouter()
	h := handler.New(transitions, audit, signatures, signer, log, jwttoken.NewJWTServiceAdapter(jwtService))
	h.Register(router)

	return &stack{
		router:    router,
		jwt:       jwtService,
		grants:    grants,
		keys:      keys,
		reviewers: reviewers,
	}
}

func (s *stack) token(t *testing.T, actorID id.ActorID) string {
	t.Helper()
	token, err := s.jwt.GenerateAccessToken(actorID, "e2e-client", time.Hour)
	require.NoError(t, err)
	return token
}

func (s *stack) grant(t *testing.T, actorID id.ActorID, capability policymodels.Capability) {
	t.Helper()
	require.NoError(t, s.grants.Add(context.Background(), policymodels.Grant{
		ActorID:    actorID,
		Capability: capability,
		ValidFrom:  time.Now().Add(-time.Hour),
	}))
}

func (s *stack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(s.router, req)
}

type documentResponse struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Version int64  `json:"version"`
}

type transitionResponse struct {
	Outcome     string  `json:"outcome"`
	NewState    string  `json:"new_state"`
	SignatureID *string `json:"signature_id"`
	DenyReason  string  `json:"deny_reason"`
}

func (s *stack) transition(t *testing.T, docID, token string, body map[string]string) *transitionResponse {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/documents/"+docID+"/transitions", token, body)
	testutil.AssertStatus(t, rr, http.StatusOK)
	return testutil.UnmarshalResponse[transitionResponse](t, rr)
}

func TestSOPLifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	author := id.NewActorID()
	reviewer := id.NewActorID()
	approver := id.NewActorID()
	s.grant(t, author, policymodels.CapabilityAuthor)
	s.grant(t, reviewer, policymodels.CapabilityReviewer)
	s.grant(t, approver, policymodels.CapabilityApprover)
	_, err := s.keys.Enroll(ctx, approver, approverIntent, 24*time.Hour)
	require.NoError(t, err)

	authorToken := s.token(t, author)
	var doc *documentResponse

	testutil.Given(t, "an authored draft SOP", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/documents", authorToken, map[string]string{
			"type":    "sop",
			"title":   "Equipment calibration",
			"content": "Calibrate annually.",
		})
		testutil.AssertStatus(t, rr, http.StatusCreated)
		doc = testutil.UnmarshalResponse[documentResponse](t, rr)
		require.Equal(t, "draft", doc.State)
	})

	testutil.When(t, "it walks the full review and approval path", func(t *testing.T) {
		resp := s.transition(t, doc.ID, authorToken, map[string]string{"action": "submit_for_review"})
		require.Equal(t, "committed", resp.Outcome)
		require.Equal(t, "pending_review", resp.NewState)

		resp = s.transition(t, doc.ID, s.token(t, reviewer), map[string]string{"action": "approve_review"})
		require.Equal(t, "committed", resp.Outcome)

		resp = s.transition(t, doc.ID, authorToken, map[string]string{"action": "submit_for_approval"})
		require.Equal(t, "committed", resp.Outcome)

		resp = s.transition(t, doc.ID, s.token(t, approver), map[string]string{
			"action":         "approve_final",
			"signing_intent": approverIntent,
		})
		require.Equal(t, "committed", resp.Outcome)
		require.Equal(t, "approved", resp.NewState)
		require.NotNil(t, resp.SignatureID)

		testutil.Then(t, "the approval signature verifies against current content", func(t *testing.T) {
			rr := s.do(t, http.MethodGet, "/signatures/"+*resp.SignatureID+"/verify", authorToken, nil)
			testutil.AssertStatus(t, rr, http.StatusOK)
			result := testutil.UnmarshalResponse[map[string]string](t, rr)
			require.Equal(t, "valid", (*result)["status"])
		})
	})

	testutil.Then(t, "the audit trail records every transition and verifies", func(t *testing.T) {
		rr := s.do(t, http.MethodGet, "/documents/"+doc.ID+"/audit", authorToken, nil)
		testutil.AssertStatus(t, rr, http.StatusOK)
		trail := testutil.UnmarshalResponse[struct {
			Entries []struct {
				Seq     uint64 `json:"seq"`
				Payload struct {
					Action  string `json:"action"`
					Outcome string `json:"outcome"`
				} `json:"payload"`
			} `json:"entries"`
		}](t, rr)
		require.Len(t, trail.Entries, 4)
		require.Equal(t, "approve_final", trail.Entries[3].Payload.Action)
		require.Equal(t, "committed", trail.Entries[3].Payload.Outcome)

		rr = s.do(t, http.MethodGet, "/documents/"+doc.ID+"/audit/verify", authorToken, nil)
		testutil.AssertStatus(t, rr, http.StatusOK)
		verify := testutil.UnmarshalResponse[map[string]any](t, rr)
		require.Equal(t, true, (*verify)["ok"])
	})
}

func TestDenialsAreAuditedOverHTTP(t *testing.T) {
	s := newStack(t)

	author := id.NewActorID()
	intruder := id.NewActorID()
	s.grant(t, author, policymodels.CapabilityAuthor)

	authorToken := s.token(t, author)
	rr := s.do(t, http.MethodPost, "/documents", authorToken, map[string]string{
		"type":    "sop",
		"title":   "Deviation handling",
		"content": "Initial draft.",
	})
	testutil.AssertStatus(t, rr, http.StatusCreated)
	doc := testutil.UnmarshalResponse[documentResponse](t, rr)

	resp := s.transition(t, doc.ID, s.token(t, intruder), map[string]string{"action": "submit_for_review"})
	require.Equal(t, "permission_denied", resp.Outcome)
	require.NotEmpty(t, resp.DenyReason)

	// The denial itself must land in the trail.
	rr = s.do(t, http.MethodGet, "/documents/"+doc.ID+"/audit", authorToken, nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	trail := testutil.UnmarshalResponse[struct {
		Entries []struct {
			Payload struct {
				Outcome string `json:"outcome"`
				ActorID string `json:"actor_id"`
			} `json:"payload"`
		} `json:"entries"`
	}](t, rr)
	require.Len(t, trail.Entries, 1)
	require.Equal(t, "denied", trail.Entries[0].Payload.Outcome)
	require.Equal(t, intruder.String(), trail.Entries[0].Payload.ActorID)
}

func TestAuthBoundary(t *testing.T) {
	s := newStack(t)

	rr := s.do(t, http.MethodPost, "/documents", "", map[string]string{"type": "sop", "title": "x", "content": "y"})
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	rr = s.do(t, http.MethodPost, "/documents", "not-a-token", map[string]string{"type": "sop", "title": "x", "content": "y"})
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)

	expired, err := s.jwt.GenerateAccessToken(id.NewActorID(), "e2e-client", -time.Minute)
	require.NoError(t, err)
	rr = s.do(t, http.MethodPost, "/documents", expired, map[string]string{"type": "sop", "title": "x", "content": "y"})
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
