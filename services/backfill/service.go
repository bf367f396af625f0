package backfill

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/repositories"
	"github.com/upb/insight-rag/services"
)

// DefaultBatchSize is how many rows are embedded and written per transaction
const DefaultBatchSize = 32

// Embedder embeds many texts in one call
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Result summarizes one backfill run
type Result struct {
	RunID    string        `json:"run_id"`
	Pending  int64         `json:"pending"`
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}

// Service fills in embeddings for insight rows stored without one.
type Service struct {
	repo      repositories.InsightRepository
	txManager repositories.TransactionManager
	embedder  Embedder
	batchSize int
	logger    *zap.Logger
}

// NewService creates a backfill service. batchSize <= 0 uses DefaultBatchSize.
func NewService(
	repo repositories.InsightRepository,
	txManager repositories.TransactionManager,
	embedder Embedder,
	batchSize int,
	logger *zap.Logger,
) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run walks every row missing an embedding once, in id order. Rows that fail
// to embed or write are counted and skipped; the cursor always advances, so
// a run terminates even when some rows can never be embedded.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	logger := s.logger.With(zap.String("run_id", result.RunID))

	pending, err := s.repo.CountMissingEmbeddings(ctx)
	if err != nil {
		return nil, services.WrapRetrieval("failed to count missing embeddings", err)
	}
	result.Pending = pending
	logger.Info("backfill started", zap.Int64("pending", pending), zap.Int("batch_size", s.batchSize))

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		rows, err := s.repo.ListMissingEmbeddings(ctx, afterID, s.batchSize)
		if err != nil {
			result.Duration = time.Since(start)
			return result, services.WrapRetrieval("failed to list rows missing embeddings", err)
		}
		if len(rows) == 0 {
			break
		}
		afterID = rows[len(rows)-1].ID
		result.Batches++

		updated, failed := s.processBatch(ctx, logger, rows)
		result.Updated += updated
		result.Failed += failed

		if len(rows) < s.batchSize {
			break
		}
	}

	result.Duration = time.Since(start)
	logger.Info("backfill completed",
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Int("batches", result.Batches),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// processBatch embeds rows and writes the good ones in a single transaction.
func (s *Service) processBatch(ctx context.Context, logger *zap.Logger, rows []models.InsightRecord) (updated, failed int) {
	vectors := s.embedRows(ctx, logger, rows)

	ready := make([]int, 0, len(rows))
	for i := range rows {
		if vectors[i] == nil {
			failed++
			continue
		}
		ready = append(ready, i)
	}
	if len(ready) == 0 {
		return 0, failed
	}

	err := s.txManager.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		for _, i := range ready {
			if err := s.repo.UpdateEmbedding(txCtx, rows[i].ID, vectors[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to write embedding batch",
			zap.Int64("first_id", rows[0].ID),
			zap.Int64("last_id", rows[len(rows)-1].ID),
			zap.Error(err),
		)
		return 0, failed + len(ready)
	}
	return len(ready), failed
}

// embedRows returns one vector per row, nil where the row could not be
// embedded. A failed batch call is retried row by row so one bad row does not
// sink its neighbours.
func (s *Service) embedRows(ctx context.Context, logger *zap.Logger, rows []models.InsightRecord) [][]float32 {
	texts := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = row.Description
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(rows) {
		for i, vec := range vectors {
			if !s.validVector(vec) {
				logger.Warn("skipping row with wrong embedding dimension",
					zap.Int64("id", rows[i].ID),
					zap.Int("got", len(vec)),
					zap.Int("expected", s.embedder.Dimension()),
				)
				vectors[i] = nil
			}
		}
		return vectors
	}

	logger.Warn("batch embedding failed, retrying rows individually", zap.Int("rows", len(rows)), zap.Error(err))

	vectors = make([][]float32, len(rows))
	for i, row := range rows {
		single, err := s.embedder.EmbedBatch(ctx, []string{row.Description})
		if err != nil || len(single) != 1 || !s.validVector(single[0]) {
			logger.Warn("skipping row that could not be embedded", zap.Int64("id", row.ID), zap.Error(err))
			continue
		}
		vectors[i] = single[0]
	}
	return vectors
}

func (s *Service) validVector(vec []float32) bool {
	if len(vec) == 0 {
		return false
	}
	dim := s.embedder.Dimension()
	return dim <= 0 || len(vec) == dim
}
