package ledger

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docgov/internal/document/models"
	id "docgov/pkg/domain"
	dErrors "docgov/pkg/domain-errors"
)

// Store is the persistence boundary for the ledger. Appends must be
// strictly ordered per document; the transition commit provides that
// ordering and the store enforces it as a backstop.
type Store interface {
	Head(ctx context.Context, docID id.DocumentID) (seq uint64, entryHash string, err error)
	Append(ctx context.Context, entry Entry) error
	ListByDocument(ctx context.Context, docID id.DocumentID, afterSeq uint64, limit int) ([]Entry, error)
	FindByID(ctx context.Context, entryID id.EntryID) (Entry, error)
}

// queryBatchSize is how many entries each store round-trip fetches while
// streaming a document's trail.
const queryBatchSize = 256

type Service struct {
	store  Store
	logger *slog.Logger
	clock  func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "ledger store is required")
	}
	svc := &Service{store: store, clock: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Append links a transition record onto its document's chain and persists
// the new entry. Must run inside the same transactional boundary as the
// document state change so ledger and state never diverge.
func (s *Service) Append(ctx context.Context, record models.TransitionRecord) (Entry, error) {
	headSeq, headHash, err := s.store.Head(ctx, record.DocumentID)
	if err != nil {
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger head")
	}
	prevHash := headHash
	if headSeq == 0 {
		prevHash = genesisHash
	}

	entry := Entry{
		ID:         id.NewEntryID(),
		DocumentID: record.DocumentID,
		Seq:        headSeq + 1,
		Payload:    record,
		PrevHash:   prevHash,
		// Postgres timestamptz keeps microseconds; hashing anything finer
		// would break recomputation after a round trip.
		RecordedAt: s.clock().UTC().Truncate(time.Microsecond),
	}
	hash, err := hashEntry(entry)
	if err != nil {
		return Entry{}, err
	}
	entry.EntryHash = hash

	if err := s.store.Append(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Query streams a document's audit trail in sequence order. The sequence
// is lazy and restartable: each range starts a fresh walk from the first
// entry, fetching in batches.
func (s *Service) Query(ctx context.Context, docID id.DocumentID) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		var afterSeq uint64
		for {
			batch, err := s.store.ListByDocument(ctx, docID, afterSeq, queryBatchSize)
			if err != nil {
				yield(Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "list audit entries"))
				return
			}
			for _, entry := range batch {
				if !yield(entry, nil) {
					return
				}
				afterSeq = entry.Seq
			}
			if len(batch) < queryBatchSize {
				return
			}
		}
	}
}

// List materializes a document's full audit trail.
func (s *Service) List(ctx context.Context, docID id.DocumentID) ([]Entry, error) {
	var entries []Entry
	for entry, err := range s.Query(ctx, docID) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FindEntry returns a single entry by id.
func (s *Service) FindEntry(ctx context.Context, entryID id.EntryID) (Entry, error) {
	return s.store.FindByID(ctx, entryID)
}

// VerifyChain recomputes every hash in a document's chain and reports the
// first divergence. Divergence means the stored history was edited outside
// the API; it is surfaced, never repaired.
func (s *Service) VerifyChain(ctx context.Context, docID id.DocumentID) (ChainVerificationResult, error) {
	entries, err := s.List(ctx, docID)
	if err != nil {
		return ChainVerificationResult{}, err
	}

	result := verifyEntries(docID, entries)
	if !result.OK && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit chain divergence detected",
			"document_id", docID,
			"divergence_seq", *result.DivergenceSeq,
			"reason", result.Reason,
		)
	}
	return result, nil
}

// VerifyAll runs chain verification for a set of documents concurrently.
// Used by the periodic integrity sweep.
func (s *Service) VerifyAll(ctx context.Context, docIDs []id.DocumentID) (map[id.DocumentID]ChainVerificationResult, error) {
	var (
		mu      sync.Mutex
		results = make(map[id.DocumentID]ChainVerificationResult, len(docIDs))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, docID := range docIDs {
		g.Go(func() error {
			result, err := s.VerifyChain(ctx, docID)
			if err != nil {
				return err
			}
			mu.Lock()
			results[docID] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
