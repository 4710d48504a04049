package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/upb/voiceme/internal/observability"
	"github.com/upb/voiceme/services/interview"
	"github.com/upb/voiceme/utils"
	"go.uber.org/zap"
)

// AskRequest is the body of POST /ask
type AskRequest struct {
	Question string `json:"question" validate:"required,max=1000"`
}

// AskResponse is the answer returned by POST /ask
type AskResponse struct {
	Answer       string  `json:"answer"`
	ModelUsed    string  `json:"model_used"`
	ResponseTime float64 `json:"response_time"` // seconds, two decimals
	Timestamp    string  `json:"timestamp"`
}

// AskService defines the interface for answering questions
type AskService interface {
	Ask(ctx context.Context, question string) (*interview.Result, error)
}

// AskHandler handles question answering requests
type AskHandler struct {
	service AskService
	logger  *zap.Logger
}

// NewAskHandler creates a new AskHandler
func NewAskHandler(service AskService, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		service: service,
		logger:  logger,
	}
}

// HandleAsk handles POST /ask
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx, h.logger)

	var req AskRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		logger.Debug("invalid ask body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	// whitespace-only questions fail the required check
	req.Question = strings.TrimSpace(req.Question)
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	result, err := h.service.Ask(ctx, req.Question)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, NewAskResponse(result)); err != nil {
		logger.Error("failed to write ask response", zap.Error(err))
	}
}

// NewAskResponse renders a service result for the wire
func NewAskResponse(result *interview.Result) AskResponse {
	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return AskResponse{
		Answer:       result.Answer,
		ModelUsed:    result.ModelUsed,
		ResponseTime: math.Round(result.ResponseTime.Seconds()*100) / 100,
		Timestamp:    ts.Format(time.RFC3339Nano),
	}
}
