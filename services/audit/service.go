package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upb/voiceme/models"
	"github.com/upb/voiceme/repositories"
	"go.uber.org/zap"
)

// Service persists answer outcomes on background workers so the request path
// never waits on the database
type Service struct {
	repo        repositories.OutcomeRepository
	logger      *zap.Logger
	outcomes    chan *models.OutcomeLog
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	mu          sync.RWMutex
	started     bool
	stopped     bool
	dropped     atomic.Uint64
}

// Config holds configuration for the Service
type Config struct {
	BufferSize  int // Size of the outcome buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewService creates a new Service instance
func NewService(repo repositories.OutcomeRepository, logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:        repo,
		logger:      logger,
		outcomes:    make(chan *models.OutcomeLog, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}
	if s.stopped {
		return fmt.Errorf("audit service already stopped")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting outcomes and waits for pending ones to be written
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	close(s.outcomes)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_outcomes", len(s.outcomes)))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully", zap.Uint64("dropped", s.dropped.Load()))
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record queues an outcome without blocking. A full buffer drops the outcome.
func (s *Service) Record(outcome *models.OutcomeLog) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not running")
	}

	select {
	case s.outcomes <- outcome:
		return nil
	default:
		s.dropped.Add(1)
		s.logger.Warn("audit buffer full, dropping outcome",
			zap.String("request_id", outcome.RequestID),
			zap.String("status", string(outcome.Status)))
		return fmt.Errorf("audit buffer full")
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for outcome := range s.outcomes {
		if err := s.persist(outcome); err != nil {
			s.logger.Error("failed to persist outcome",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("request_id", outcome.RequestID))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *Service) persist(outcome *models.OutcomeLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.repo.Insert(ctx, outcome)
}

// Stats returns statistics about the audit service
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:  s.bufferSize,
		Pending:     len(s.outcomes),
		WorkerCount: s.workerCount,
		Dropped:     s.dropped.Load(),
		Running:     s.started && !s.stopped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize  int
	Pending     int
	WorkerCount int
	Dropped     uint64
	Running     bool
}
