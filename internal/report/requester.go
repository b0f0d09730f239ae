package report

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/stockdesk/internal/raworc"
	"github.com/dyike/stockdesk/models"
	"github.com/dyike/stockdesk/pkg/logger"
)

// Submission is what Start hands back: either a new response id to poll, or a
// recent completed response that makes new work unnecessary.
type Submission struct {
	ResponseID string
	Initial    *models.ResponseRecord
	Existing   *models.ResponseRecord
}

// Requester submits report tasks without waiting for them.
type Requester struct {
	svc       AgentService
	freshness time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

type RequesterOption func(*Requester)

// WithFreshness sets how recent a completed response must be to be reused.
// Zero disables the lookup.
func WithFreshness(d time.Duration) RequesterOption {
	return func(r *Requester) { r.freshness = d }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) RequesterOption {
	return func(r *Requester) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRequester(svc AgentService, log *zap.Logger, opts ...RequesterOption) *Requester {
	r := &Requester{
		svc:       svc,
		freshness: 5 * time.Minute,
		now:       time.Now,
		logger:    logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start asks agent for a report on symbol. Concurrent callers may both miss
// the freshness check and start duplicate work; the agent service answers the
// second one with a busy conflict.
func (r *Requester) Start(ctx context.Context, agent, symbol string) (*Submission, error) {
	if existing := r.FindRecent(ctx, agent); existing != nil {
		r.logger.Info("reusing recent completed response",
			zap.String("agent", agent), zap.String("response_id", existing.ID))
		return &Submission{ResponseID: existing.ID, Existing: existing}, nil
	}

	return r.Submit(ctx, agent, symbol)
}

// Submit always starts new work, skipping the freshness lookup.
func (r *Requester) Submit(ctx context.Context, agent, symbol string) (*Submission, error) {
	resp, err := r.svc.CreateResponse(ctx, agent, models.NewTextRequest(BuildPrompt(symbol, r.now())))
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx.Err())
		}
		return nil, classifyCreateError(err, symbol)
	}
	if resp == nil || strings.TrimSpace(resp.ID) == "" {
		return nil, &Error{
			Kind:    KindRequestFailed,
			Message: "Failed to start report generation",
			Detail:  "response id missing from agent service reply",
		}
	}

	r.logger.Info("report generation started",
		zap.String("agent", agent), zap.String("response_id", resp.ID))
	return &Submission{ResponseID: resp.ID, Initial: resp}, nil
}

// FindRecent returns the first completed response of agent updated within the
// freshness window, or nil. Lookup failures are logged and treated as a miss.
func (r *Requester) FindRecent(ctx context.Context, agent string) *models.ResponseRecord {
	if r.freshness <= 0 {
		return nil
	}
	responses, err := r.svc.ListResponses(ctx, agent, 0)
	if err != nil {
		r.logger.Debug("could not list existing responses", zap.String("agent", agent), zap.Error(err))
		return nil
	}
	cutoff := r.now().Add(-r.freshness)
	for _, resp := range responses {
		if resp == nil || !resp.IsSucceeded() {
			continue
		}
		if resp.LastActivity().After(cutoff) {
			return resp
		}
	}
	return nil
}

func classifyCreateError(err error, symbol string) *Error {
	if !raworc.IsAPIError(err) {
		return &Error{
			Kind:    KindRequestFailed,
			Message: "Network error while creating response",
			Detail:  err.Error(),
			Err:     err,
		}
	}

	body := raworc.Body(err)
	if raworc.IsConflict(err) || strings.Contains(strings.ToLower(body), "busy") {
		return &Error{
			Kind:       KindAgentBusy,
			Message:    "Agent is currently busy",
			Detail:     "The agent for " + DisplaySymbol(symbol) + " is processing another request. Please wait a moment and try again.",
			StatusCode: http.StatusConflict,
			Retryable:  true,
			Err:        err,
		}
	}
	return &Error{
		Kind:       KindRequestFailed,
		Message:    "Failed to start report generation",
		Detail:     body,
		StatusCode: raworc.StatusCode(err),
		Err:        err,
	}
}
