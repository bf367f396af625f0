package retriever

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/services"
)

// DefaultMaxConcurrentSearches bounds in-flight similarity queries
const DefaultMaxConcurrentSearches = 10

// Store is the vector store the retriever reads from
type Store interface {
	SearchSimilar(ctx context.Context, vector []float32, limit int) ([]models.InsightRecord, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Opener connects to the store. It is called at most once per successful
// initialization.
type Opener func(ctx context.Context) (Store, error)

// Retriever finds the insight records nearest to a query vector.
type Retriever struct {
	open   Opener
	sem    *semaphore.Weighted
	logger *zap.Logger

	mu    sync.Mutex
	store Store
}

// New creates a retriever. maxConcurrent <= 0 falls back to the default.
func New(open Opener, maxConcurrent int64, logger *zap.Logger) *Retriever {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSearches
	}
	return &Retriever{
		open:   open,
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: logger,
	}
}

// Initialize opens the store if it is not open yet.
func (r *Retriever) Initialize(ctx context.Context) error {
	_, err := r.connection(ctx)
	return err
}

func (r *Retriever) connection(ctx context.Context) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		return r.store, nil
	}
	if r.open == nil {
		return nil, services.ErrStoreNotInitialized
	}

	store, err := r.open(ctx)
	if err != nil {
		return nil, services.WrapRetrieval("failed to connect to vector store", err)
	}

	r.store = store
	r.logger.Info("vector store connected")
	return store, nil
}

// Search returns up to topK records ranked by similarity, nearest first.
func (r *Retriever) Search(ctx context.Context, vector []float32, topK int) ([]models.RankedRecord, error) {
	if topK <= 0 {
		return []models.RankedRecord{}, nil
	}

	store, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, services.WrapRetrieval("search cancelled while waiting for a slot", err)
	}
	defer r.sem.Release(1)

	rows, err := store.SearchSimilar(ctx, vector, topK)
	if err != nil {
		return nil, services.WrapRetrieval("vector search failed", err)
	}

	records := models.NewRankedRecords(rows)
	r.logger.Debug("retrieved insights", zap.Int("top_k", topK), zap.Int("results", len(records)))
	return records, nil
}

// HealthCheck pings the store. An unopened store is reported as not initialized.
func (r *Retriever) HealthCheck(ctx context.Context) error {
	r.mu.Lock()
	store := r.store
	r.mu.Unlock()

	if store == nil {
		return services.ErrStoreNotInitialized
	}
	return store.HealthCheck(ctx)
}

// Close releases the store. Calling Close more than once is a no-op.
func (r *Retriever) Close(ctx context.Context) error {
	r.mu.Lock()
	store := r.store
	r.store = nil
	r.mu.Unlock()

	if store == nil {
		return nil
	}
	if err := store.Close(); err != nil {
		return services.WrapInternal("failed to close vector store", err)
	}
	r.logger.Info("vector store closed")
	return nil
}
