package retriever

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/services"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SearchSimilar(ctx context.Context, vector []float32, limit int) ([]models.InsightRecord, error) {
	args := m.Called(ctx, vector, limit)
	if rows := args.Get(0); rows != nil {
		return rows.([]models.InsightRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

func openerFor(store Store, calls *int32) Opener {
	return func(ctx context.Context) (Store, error) {
		atomic.AddInt32(calls, 1)
		return store, nil
	}
}

func TestRetriever_Search(t *testing.T) {
	store := new(mockStore)
	store.On("SearchSimilar", mock.Anything, []float32{0.1, 0.2}, 3).Return([]models.InsightRecord{
		{ID: 4, Description: "Coffee spend up", Similarity: 0.82},
		{ID: 9, Description: "Subscriptions flat", Similarity: 1.0000001},
		{ID: 1, Description: "Opposite", Similarity: -0.3},
	}, nil)

	var calls int32
	r := New(openerFor(store, &calls), 0, zap.NewNop())

	records, err := r.Search(context.Background(), []float32{0.1, 0.2}, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.RankedRecord{ID: 4, Description: "Coffee spend up", Rank: 1, Confidence: 0.82}, records[0])
	assert.Equal(t, 1.0, records[1].Confidence)
	assert.Equal(t, 2, records[1].Rank)
	assert.Equal(t, 0.0, records[2].Confidence)
	for _, rec := range records {
		assert.NoError(t, rec.Validate())
	}

	assert.Equal(t, int32(1), calls, "search should initialize lazily")
	store.AssertExpectations(t)
}

func TestRetriever_Search_NoMatches(t *testing.T) {
	store := new(mockStore)
	store.On("SearchSimilar", mock.Anything, mock.Anything, 3).Return([]models.InsightRecord{}, nil)

	var calls int32
	r := New(openerFor(store, &calls), 10, zap.NewNop())

	records, err := r.Search(context.Background(), []float32{0.1}, 3)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestRetriever_Search_ZeroTopK(t *testing.T) {
	var calls int32
	r := New(openerFor(new(mockStore), &calls), 10, zap.NewNop())

	records, err := r.Search(context.Background(), []float32{0.1}, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(0), calls)
}

func TestRetriever_Search_StoreFailure(t *testing.T) {
	store := new(mockStore)
	store.On("SearchSimilar", mock.Anything, mock.Anything, 3).Return(nil, errors.New("connection reset by peer"))

	var calls int32
	r := New(openerFor(store, &calls), 10, zap.NewNop())

	records, err := r.Search(context.Background(), []float32{0.1}, 3)
	require.Error(t, err)
	assert.Nil(t, records)
	assert.True(t, services.IsRetrievalError(err))
	assert.EqualError(t, services.Cause(err), "connection reset by peer")
}

func TestRetriever_Search_OpenFailure(t *testing.T) {
	attempts := 0
	r := New(func(ctx context.Context) (Store, error) {
		attempts++
		return nil, errors.New("password authentication failed")
	}, 10, zap.NewNop())

	_, err := r.Search(context.Background(), []float32{0.1}, 3)
	require.Error(t, err)
	assert.True(t, services.IsRetrievalError(err))

	// a failed open is retried on the next call
	_, err = r.Search(context.Background(), []float32{0.1}, 3)
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetriever_NoOpener(t *testing.T) {
	r := New(nil, 10, zap.NewNop())

	err := r.Initialize(context.Background())
	assert.True(t, services.IsNotInitializedError(err))
}

func TestRetriever_InitializeIdempotent(t *testing.T) {
	var calls int32
	r := New(openerFor(new(mockStore), &calls), 10, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Initialize(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetriever_HealthCheck(t *testing.T) {
	store := new(mockStore)
	store.On("HealthCheck", mock.Anything).Return(nil).Once()
	store.On("HealthCheck", mock.Anything).Return(errors.New("down")).Once()

	var calls int32
	r := New(openerFor(store, &calls), 10, zap.NewNop())

	assert.True(t, services.IsNotInitializedError(r.HealthCheck(context.Background())))

	require.NoError(t, r.Initialize(context.Background()))
	assert.NoError(t, r.HealthCheck(context.Background()))
	assert.EqualError(t, r.HealthCheck(context.Background()), "down")
}

func TestRetriever_CloseIdempotent(t *testing.T) {
	store := new(mockStore)
	store.On("Close").Return(nil).Once()

	var calls int32
	r := New(openerFor(store, &calls), 10, zap.NewNop())

	assert.NoError(t, r.Close(context.Background()), "close before initialize")

	require.NoError(t, r.Initialize(context.Background()))
	assert.NoError(t, r.Close(context.Background()))
	assert.NoError(t, r.Close(context.Background()))

	store.AssertNumberOfCalls(t, "Close", 1)
}

func TestRetriever_Close_Error(t *testing.T) {
	store := new(mockStore)
	store.On("Close").Return(errors.New("busy"))

	var calls int32
	r := New(openerFor(store, &calls), 10, zap.NewNop())
	require.NoError(t, r.Initialize(context.Background()))

	err := r.Close(context.Background())
	assert.True(t, services.IsInternalError(err))
}

type slowStore struct {
	inFlight int32
	peak     int32
}

func (s *slowStore) SearchSimilar(ctx context.Context, vector []float32, limit int) ([]models.InsightRecord, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&s.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(&s.inFlight, -1)
	return []models.InsightRecord{}, nil
}

func (s *slowStore) HealthCheck(ctx context.Context) error { return nil }
func (s *slowStore) Close() error                          { return nil }

func TestRetriever_BoundsConcurrentSearches(t *testing.T) {
	store := &slowStore{}
	var calls int32
	r := New(openerFor(store, &calls), 2, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Search(context.Background(), []float32{0.1}, 3)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&store.peak), int32(2))
}

func TestRetriever_Search_CancelledWhileQueued(t *testing.T) {
	store := &slowStore{}
	var calls int32
	r := New(openerFor(store, &calls), 1, zap.NewNop())
	require.NoError(t, r.Initialize(context.Background()))

	// hold the only slot
	require.NoError(t, r.sem.Acquire(context.Background(), 1))
	defer r.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Search(ctx, []float32{0.1}, 3)
	require.Error(t, err)
	assert.True(t, services.IsRetrievalError(err))
}
