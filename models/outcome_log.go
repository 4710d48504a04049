package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus is the terminal state of one answer request
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeExhausted OutcomeStatus = "exhausted"
	OutcomeCanceled  OutcomeStatus = "canceled"
)

// OutcomeLog records how a request was answered. It never carries the
// question or the answer text.
type OutcomeLog struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	RequestID     string          `json:"request_id" db:"request_id"`
	Status        OutcomeStatus   `json:"status" db:"status"`
	Provider      *string         `json:"provider,omitempty" db:"provider"` // set on success only
	TotalAttempts int             `json:"total_attempts" db:"total_attempts"`
	Failures      json.RawMessage `json:"failures,omitempty" db:"failures"` // JSONB provider -> error kind
	LatencyMs     int64           `json:"latency_ms" db:"latency_ms"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the OutcomeLog model
func (OutcomeLog) TableName() string {
	return "answer_outcomes"
}

// NewOutcomeLog creates a new OutcomeLog instance
func NewOutcomeLog(requestID string, status OutcomeStatus) *OutcomeLog {
	return &OutcomeLog{
		ID:        uuid.New(),
		RequestID: requestID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

// WithProvider sets the provider that produced the answer
func (o *OutcomeLog) WithProvider(provider string) *OutcomeLog {
	if provider != "" {
		o.Provider = &provider
	}
	return o
}

// WithAttempts sets the total number of upstream calls
func (o *OutcomeLog) WithAttempts(attempts int) *OutcomeLog {
	o.TotalAttempts = attempts
	return o
}

// WithLatency sets the end-to-end latency
func (o *OutcomeLog) WithLatency(d time.Duration) *OutcomeLog {
	o.LatencyMs = d.Milliseconds()
	return o
}

// WithFailures records the final error kind of each failed provider
func (o *OutcomeLog) WithFailures(failures map[string]string) *OutcomeLog {
	if len(failures) == 0 {
		return o
	}
	if data, err := json.Marshal(failures); err == nil {
		o.Failures = data
	}
	return o
}
