package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/voiceme/models"
	"go.uber.org/zap/zaptest"
)

// MockOutcomeRepository is a mock implementation of OutcomeRepository
type MockOutcomeRepository struct {
	mock.Mock
	mu       sync.Mutex
	inserted []*models.OutcomeLog
}

func (m *MockOutcomeRepository) Insert(ctx context.Context, outcome *models.OutcomeLog) error {
	args := m.Called(ctx, outcome)

	m.mu.Lock()
	m.inserted = append(m.inserted, outcome)
	m.mu.Unlock()

	return args.Error(0)
}

func (m *MockOutcomeRepository) Inserted() []*models.OutcomeLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.OutcomeLog(nil), m.inserted...)
}

func TestService_StartStop(t *testing.T) {
	repo := new(MockOutcomeRepository)
	service := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, service.Start())

	stats := service.Stats()
	assert.True(t, stats.Running)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.BufferSize)

	assert.Error(t, service.Start(), "cannot start twice")

	require.NoError(t, service.Stop(5*time.Second))
	assert.False(t, service.Stats().Running)

	assert.Error(t, service.Stop(time.Second), "cannot stop twice")
	assert.Error(t, service.Start(), "cannot restart")
}

func TestService_Record(t *testing.T) {
	repo := new(MockOutcomeRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 100, WorkerCount: 2})
	require.NoError(t, service.Start())

	outcome := models.NewOutcomeLog("req-1", models.OutcomeSucceeded).WithProvider("gemini").WithAttempts(1)
	require.NoError(t, service.Record(outcome))

	require.NoError(t, service.Stop(5*time.Second))

	inserted := repo.Inserted()
	require.Len(t, inserted, 1)
	assert.Equal(t, "req-1", inserted[0].RequestID)
	assert.Equal(t, models.OutcomeSucceeded, inserted[0].Status)
}

func TestService_RecordBeforeStart(t *testing.T) {
	service := NewService(new(MockOutcomeRepository), zaptest.NewLogger(t), DefaultConfig())

	assert.Error(t, service.Record(models.NewOutcomeLog("req", models.OutcomeExhausted)))
}

func TestService_RecordAfterStop(t *testing.T) {
	service := NewService(new(MockOutcomeRepository), zaptest.NewLogger(t), DefaultConfig())
	require.NoError(t, service.Start())
	require.NoError(t, service.Stop(time.Second))

	assert.Error(t, service.Record(models.NewOutcomeLog("late", models.OutcomeSucceeded)))
}

func TestService_StopDrainsPending(t *testing.T) {
	repo := new(MockOutcomeRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 100, WorkerCount: 3})
	require.NoError(t, service.Start())

	for i := 0; i < 50; i++ {
		require.NoError(t, service.Record(models.NewOutcomeLog("req", models.OutcomeSucceeded)))
	}

	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, repo.Inserted(), 50)
}

func TestService_ConcurrentRecordAndStop(t *testing.T) {
	repo := new(MockOutcomeRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 1000, WorkerCount: 4})
	require.NoError(t, service.Start())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = service.Record(models.NewOutcomeLog("req", models.OutcomeSucceeded))
			}
		}()
	}

	// Stop races with the producers; neither side may panic
	require.NoError(t, service.Stop(5*time.Second))
	wg.Wait()

	assert.LessOrEqual(t, len(repo.Inserted()), 200)
}

func TestService_BufferFull(t *testing.T) {
	repo := new(MockOutcomeRepository)
	release := make(chan struct{})
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		<-release
	})

	service := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 2, WorkerCount: 1})
	require.NoError(t, service.Start())

	accepted := 0
	for i := 0; i < 10; i++ {
		if err := service.Record(models.NewOutcomeLog("req", models.OutcomeSucceeded)); err == nil {
			accepted++
		}
	}

	// one in flight at most plus the buffer
	assert.LessOrEqual(t, accepted, 3)
	assert.GreaterOrEqual(t, service.Stats().Dropped, uint64(7))

	close(release)
	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, repo.Inserted(), accepted)
}

func TestService_InsertErrorDoesNotStopWorker(t *testing.T) {
	repo := new(MockOutcomeRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewService(repo, zaptest.NewLogger(t), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, service.Start())

	require.NoError(t, service.Record(models.NewOutcomeLog("a", models.OutcomeExhausted)))
	require.NoError(t, service.Record(models.NewOutcomeLog("b", models.OutcomeSucceeded)))

	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, repo.Inserted(), 2)
}

func TestNewService_Defaults(t *testing.T) {
	service := NewService(new(MockOutcomeRepository), nil, Config{})

	stats := service.Stats()
	assert.Equal(t, DefaultConfig().BufferSize, stats.BufferSize)
	assert.Equal(t, DefaultConfig().WorkerCount, stats.WorkerCount)
}
