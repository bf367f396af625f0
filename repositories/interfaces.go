package repositories

import (
	"context"

	"github.com/upb/insight-rag/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// InsightRepository handles transaction insight records and their embeddings
type InsightRepository interface {
	// SearchSimilar returns up to limit records ordered by cosine distance to
	// vector, nearest first. Rows without an embedding are never returned.
	SearchSimilar(ctx context.Context, vector []float32, limit int) ([]models.InsightRecord, error)

	// ListMissingEmbeddings returns up to limit records with id > afterID
	// whose embedding is NULL, in id order.
	ListMissingEmbeddings(ctx context.Context, afterID int64, limit int) ([]models.InsightRecord, error)

	// CountMissingEmbeddings returns how many records still lack an embedding
	CountMissingEmbeddings(ctx context.Context) (int64, error)

	// UpdateEmbedding stores the embedding for one record
	UpdateEmbedding(ctx context.Context, id int64, vector []float32) error

	// HealthCheck verifies the store answers queries
	HealthCheck(ctx context.Context) error

	// Close releases the underlying connection pool
	Close() error
}
