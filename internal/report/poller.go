package report

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/stockdesk/internal/metrics"
	"github.com/dyike/stockdesk/models"
	"github.com/dyike/stockdesk/pkg/logger"
)

// State of a tracked response.
type State int

const (
	StateSubmitted State = iota
	StatePolling
	StateCompleted
	StateFailed
	StateTimedOut
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further polling happens from s.
func (s State) Terminal() bool {
	return s >= StateCompleted
}

// PollOptions sets the cadence. MaxTicks <= 0 polls until a terminal status
// or cancellation.
type PollOptions struct {
	Interval time.Duration
	MaxTicks int
}

// Bounded reports whether the poller gives up after MaxTicks.
func (o PollOptions) Bounded() bool {
	return o.MaxTicks > 0
}

// PollResult is the final state of a Poll call.
type PollResult struct {
	State    State
	Response *models.ResponseRecord
	Ticks    int
	// Heuristic is set when completion was inferred from non-empty segments
	// and output rather than an explicit status.
	Heuristic bool
}

// TickFunc observes every successfully fetched record, before its status is
// evaluated.
type TickFunc func(tick int, resp *models.ResponseRecord)

// Poller re-reads a response on a fixed cadence until it settles.
type Poller struct {
	svc     ResponseFetcher
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewPoller(svc ResponseFetcher, log *zap.Logger, m *metrics.Metrics) *Poller {
	return &Poller{svc: svc, logger: logger.OrNop(log), metrics: m}
}

// Poll waits one interval, fetches the record, and repeats. A fetch error
// leaves the state unchanged and is retried on the next tick. The timer is
// released on every return path, including cancellation.
func (p *Poller) Poll(ctx context.Context, agent, id string, opts PollOptions, onTick TickFunc) (*PollResult, error) {
	log := p.logger.With(zap.String("agent", agent), zap.String("response_id", id))
	res := &PollResult{State: StatePolling}

	timer := time.NewTimer(opts.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			res.State = StateCancelled
			return res, cancelled(ctx.Err())
		case <-timer.C:
		}
		if ctx.Err() != nil {
			res.State = StateCancelled
			return res, cancelled(ctx.Err())
		}
		res.Ticks++

		resp, err := p.svc.GetResponse(ctx, agent, id)
		if err != nil {
			if ctx.Err() != nil {
				res.State = StateCancelled
				return res, cancelled(ctx.Err())
			}
			p.metrics.ObservePollTick("transient_error")
			log.Warn("poll failed, retrying next tick", zap.Int("tick", res.Ticks), zap.Error(err))
		} else {
			res.Response = resp
			if onTick != nil {
				onTick(res.Ticks, resp)
			}

			switch {
			case resp.IsSucceeded():
				res.State = StateCompleted
			case resp.HasOutput():
				res.State = StateCompleted
				res.Heuristic = true
			case resp.IsFailed():
				res.State = StateFailed
			}

			switch res.State {
			case StateCompleted:
				p.metrics.ObservePollTick("completed")
				log.Info("response completed", zap.Int("tick", res.Ticks), zap.Bool("heuristic", res.Heuristic))
				return res, nil
			case StateFailed:
				p.metrics.ObservePollTick("failed")
				log.Warn("response failed", zap.Int("tick", res.Ticks), zap.String("status", resp.Status))
				return res, &Error{
					Kind:    KindReportFailed,
					Message: "Agent failed to generate report",
					Detail:  resp,
				}
			}
			p.metrics.ObservePollTick("pending")
			log.Debug("still processing",
				zap.Int("tick", res.Ticks),
				zap.String("status", resp.Status),
				zap.Int("segments", len(resp.Segments)),
			)
		}

		if opts.Bounded() && res.Ticks >= opts.MaxTicks {
			res.State = StateTimedOut
			log.Warn("giving up on response", zap.Int("ticks", res.Ticks))
			return res, &Error{
				Kind:    KindTimedOut,
				Message: "Timeout",
				Detail:  "Report generation took too long",
			}
		}
		timer.Reset(opts.Interval)
	}
}
