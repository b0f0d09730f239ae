package report

import (
	"context"
	"errors"
	"sync"

	"github.com/dyike/stockdesk/consts"
	"github.com/dyike/stockdesk/models"
)

// Event is one progress notification. Name is the SSE event name.
type Event struct {
	Name string
	Data any
}

// Emitter receives progress events. A nil Emitter discards them.
type Emitter func(Event)

type StatusEvent struct {
	Message string `json:"message"`
	Step    string `json:"step"`
}

type AgentReadyEvent struct {
	Agent  *models.Agent `json:"agent"`
	Reused bool          `json:"reused"`
}

type ResponseCreatedEvent struct {
	ResponseID string `json:"responseId"`
	AgentName  string `json:"agentName"`
}

type SegmentEvent struct {
	Segment models.Segment `json:"segment"`
}

type SegmentsEvent struct {
	Segments []models.Segment `json:"segments"`
}

type ProgressEvent struct {
	SegmentCount int    `json:"segmentCount"`
	Status       string `json:"status"`
}

type CompleteEvent struct {
	Response *models.ResponseRecord  `json:"response"`
	Agent    *models.Agent           `json:"agent"`
	Report   *models.ExtractedReport `json:"report,omitempty"`
}

type ErrorEvent struct {
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Kind      Kind   `json:"kind,omitempty"`
}

// Stream wraps an Emitter and guarantees at most one terminal event; anything
// sent after it is dropped.
type Stream struct {
	mu     sync.Mutex
	emit   Emitter
	done   <-chan struct{}
	closed bool
}

func NewStream(emit Emitter) *Stream {
	return &Stream{emit: emit}
}

// Until closes the stream silently once ctx is done. The receiver is gone
// by then, so not even the terminal error is sent.
func (s *Stream) Until(ctx context.Context) *Stream {
	s.mu.Lock()
	s.done = ctx.Done()
	s.mu.Unlock()
	return s
}

// Send delivers one event and reports whether it was delivered.
func (s *Stream) Send(name string, data any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case <-s.done:
		s.closed = true
		return false
	default:
	}
	if consts.IsTerminalEvent(name) {
		s.closed = true
	}
	if s.emit != nil {
		s.emit(Event{Name: name, Data: data})
	}
	return true
}

func (s *Stream) Status(step, message string) {
	s.Send(consts.EventStatus, StatusEvent{Message: message, Step: step})
}

// Fail sends the terminal error event for err.
func (s *Stream) Fail(err error) {
	s.Send(consts.EventError, ErrorEventFor(err))
}

// Closed reports whether a terminal event has been sent.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ErrorEventFor renders err the way clients expect it.
func ErrorEventFor(err error) ErrorEvent {
	if e, ok := AsError(err); ok {
		msg := e.Message
		if msg == "" {
			msg = string(e.Kind)
		}
		return ErrorEvent{Error: msg, Details: e.Detail, Retryable: e.Retryable, Kind: e.Kind}
	}
	if errors.Is(err, ErrInvalidSymbol) {
		return ErrorEvent{Error: "Invalid symbol", Details: err.Error()}
	}
	return ErrorEvent{Error: "Internal server error", Details: err.Error()}
}

// SegmentTracker remembers how much of a trace was already delivered.
// Segments are append-only, so the unseen part is always a suffix.
type SegmentTracker struct {
	seen int
}

// Advance returns the segments appended since the previous call.
func (t *SegmentTracker) Advance(segments []models.Segment) []models.Segment {
	if len(segments) <= t.seen {
		return nil
	}
	fresh := segments[t.seen:]
	t.seen = len(segments)
	return fresh
}

// Seen is the number of segments delivered so far.
func (t *SegmentTracker) Seen() int { return t.seen }

// Notifier runs the poller and turns trace growth into segment and progress
// events.
type Notifier struct {
	poller *Poller
}

func NewNotifier(poller *Poller) *Notifier {
	return &Notifier{poller: poller}
}

// Watch polls until the response settles. For each tick that grew the trace
// it sends one segment event per new segment, in order, then one progress
// event. Terminal events are left to the caller.
func (n *Notifier) Watch(ctx context.Context, agent, id string, opts PollOptions, stream *Stream) (*PollResult, error) {
	tracker := &SegmentTracker{}
	return n.poller.Poll(ctx, agent, id, opts, func(_ int, resp *models.ResponseRecord) {
		fresh := tracker.Advance(resp.Segments)
		if len(fresh) == 0 {
			return
		}
		for _, seg := range fresh {
			stream.Send(consts.EventSegment, SegmentEvent{Segment: seg})
		}
		stream.Send(consts.EventProgress, ProgressEvent{
			SegmentCount: len(resp.Segments),
			Status:       resp.Status,
		})
	})
}
