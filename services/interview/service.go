package interview

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/upb/voiceme/internal/observability"
	"github.com/upb/voiceme/middleware"
	"github.com/upb/voiceme/models"
	"github.com/upb/voiceme/services"
	"github.com/upb/voiceme/services/prompt"
	"github.com/upb/voiceme/services/routing"
	"go.uber.org/zap"
)

// MaxQuestionLength is counted in characters after trimming
const MaxQuestionLength = 1000

// logPreviewLength bounds how much of a question reaches the logs
const logPreviewLength = 50

// Answerer runs one prompt through the provider fallback chain
type Answerer interface {
	Run(ctx context.Context, prompt string) (*routing.Answer, error)
}

// OutcomeSink receives one outcome per request. Implementations must not block.
type OutcomeSink interface {
	Record(outcome *models.OutcomeLog) error
}

// Result is the answer handed back to callers
type Result struct {
	Answer       string
	ModelUsed    string
	ResponseTime time.Duration
	Timestamp    time.Time
	Attempts     int
}

// Service answers interview questions in the configured persona
type Service struct {
	answerer Answerer
	prompts  *prompt.Builder
	sink     OutcomeSink
	logger   *zap.Logger
}

// NewService creates a new interview service. sink may be nil.
func NewService(answerer Answerer, prompts *prompt.Builder, sink OutcomeSink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		answerer: answerer,
		prompts:  prompts,
		sink:     sink,
		logger:   logger,
	}
}

// ValidateQuestion trims the question and enforces its length bounds
func ValidateQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", services.ErrEmptyQuestion
	}
	if n := utf8.RuneCountInString(q); n > MaxQuestionLength {
		return "", services.NewDomainError(services.ErrorTypeValidation, services.ErrQuestionTooLong.Message, nil).
			WithDetail("max_length", MaxQuestionLength).
			WithDetail("length", n)
	}
	return q, nil
}

// Ask validates the question, builds the prompt and runs the fallback chain
func (s *Service) Ask(ctx context.Context, question string) (*Result, error) {
	q, err := ValidateQuestion(question)
	if err != nil {
		return nil, err
	}

	requestID := middleware.GetRequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := observability.LoggerFromContext(ctx, s.logger)

	logger.Info("processing question",
		zap.String("request_id", requestID),
		zap.String("question", observability.Truncate(prompt.RedactSecrets(q), logPreviewLength)))

	answer, err := s.answerer.Run(ctx, s.prompts.Build(q))
	if err != nil {
		return nil, s.fail(logger, requestID, err)
	}

	s.record(logger, models.NewOutcomeLog(requestID, models.OutcomeSucceeded).
		WithProvider(answer.Provider).
		WithAttempts(answer.Attempts).
		WithLatency(answer.Elapsed))

	return &Result{
		Answer:       answer.Text,
		ModelUsed:    answer.Provider,
		ResponseTime: answer.Elapsed,
		Timestamp:    answer.ProducedAt,
		Attempts:     answer.Attempts,
	}, nil
}

// fail records the outcome and maps err to a domain error
func (s *Service) fail(logger *zap.Logger, requestID string, err error) error {
	var exhausted *routing.OrchestrationFailure
	switch {
	case errors.As(err, &exhausted):
		failures := make(map[string]string, len(exhausted.Failures))
		for _, f := range exhausted.Failures {
			failures[f.Provider] = f.Kind.String()
		}
		s.record(logger, models.NewOutcomeLog(requestID, models.OutcomeExhausted).
			WithAttempts(exhausted.Attempts).
			WithLatency(exhausted.Elapsed).
			WithFailures(failures))

		return services.NewDomainError(services.ErrorTypeUnavailable, services.UnavailableMessage, err).
			WithDetail("attempts", exhausted.Attempts)

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.record(logger, models.NewOutcomeLog(requestID, models.OutcomeCanceled))
		return services.NewDomainError(services.ErrorTypeTimeout, services.ErrRequestTimeout.Message, err)

	default:
		logger.Error("unexpected orchestration error", zap.Error(err))
		return services.WrapInternal("failed to answer question", err)
	}
}

func (s *Service) record(logger *zap.Logger, outcome *models.OutcomeLog) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Record(outcome); err != nil {
		logger.Debug("outcome not recorded", zap.Error(err), zap.String("request_id", outcome.RequestID))
	}
}
