package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/stockdesk/consts"
	"github.com/dyike/stockdesk/internal/metrics"
	"github.com/dyike/stockdesk/models"
	"github.com/dyike/stockdesk/pkg/logger"
)

// ReportExtractor derives the renderable report from a finished response.
type ReportExtractor interface {
	Extract(agent, symbol string, resp *models.ResponseRecord) *models.ExtractedReport
}

type WorkflowOptions struct {
	// Template is the agent every per-symbol agent is remixed from.
	Template  string
	Freshness time.Duration
	Extractor ReportExtractor
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Clock     func() time.Time
}

// RunOptions selects the poll cadence for one run. Mode only labels metrics
// and logs ("blocking", "stream", "cli").
type RunOptions struct {
	Poll PollOptions
	Mode string
}

// Workflow is the single provisioning, submission and polling sequence behind
// both the blocking and the streaming report routes. The streaming caller
// passes an Emitter; the blocking caller passes nil and reads the result.
type Workflow struct {
	svc         AgentService
	provisioner *Provisioner
	requester   *Requester
	notifier    *Notifier
	extractor   ReportExtractor
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewWorkflow(svc AgentService, opts WorkflowOptions) *Workflow {
	log := logger.OrNop(opts.Logger)
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Workflow{
		svc:         svc,
		provisioner: NewProvisioner(svc, opts.Template, log),
		requester:   NewRequester(svc, log, WithFreshness(opts.Freshness), WithClock(now)),
		notifier:    NewNotifier(NewPoller(svc, log, opts.Metrics)),
		extractor:   opts.Extractor,
		metrics:     opts.Metrics,
		logger:      log,
	}
}

// Run generates (or reuses) a report for symbol. Exactly one terminal event
// (complete or error) reaches emit, matching the returned result or error.
// Once ctx is cancelled nothing more is emitted and polling stops.
func (w *Workflow) Run(ctx context.Context, symbol string, opts RunOptions, emit Emitter) (*models.ReportResult, error) {
	stream := NewStream(emit).Until(ctx)
	start := time.Now()
	res, err := w.run(ctx, symbol, opts, stream)
	outcome := "completed"
	if err != nil {
		outcome = "error"
		if e, ok := AsError(err); ok {
			outcome = string(e.Kind)
		}
		stream.Fail(err)
		w.logger.Warn("report run failed",
			zap.String("symbol", symbol), zap.String("mode", opts.Mode), zap.Error(err))
	}
	w.metrics.ObserveReport(opts.Mode, outcome, time.Since(start))
	return res, err
}

func (w *Workflow) run(ctx context.Context, symbol string, opts RunOptions, stream *Stream) (*models.ReportResult, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	display := DisplaySymbol(symbol)

	stream.Status(consts.StepInit, fmt.Sprintf("Initializing report generation for %s", display))
	stream.Status(consts.StepAgentSetup, "Setting up analysis agent...")
	prov, err := w.provisioner.Ensure(ctx, symbol)
	if err != nil {
		return nil, err
	}
	agentName := prov.Agent.Name
	stream.Send(consts.EventAgentReady, AgentReadyEvent{Agent: prov.Agent, Reused: prov.Reused})
	stream.Status(consts.StepWake, "Agent is awake")

	result := &models.ReportResult{Success: true, Agent: prov.Agent, Symbol: display}

	stream.Status(consts.StepCheckExisting, "Checking for recent reports...")
	if existing := w.requester.FindRecent(ctx, agentName); existing != nil {
		stream.Status(consts.StepExisting, "Found a recent report")
		stream.Send(consts.EventSegments, SegmentsEvent{Segments: existing.Segments})
		result.Response = existing
		result.Reused = true
		return w.complete(stream, result), nil
	}

	stream.Status(consts.StepStartGeneration, fmt.Sprintf("Starting report generation for %s", display))
	sub, err := w.requester.Submit(ctx, agentName, symbol)
	if err != nil {
		return nil, err
	}
	stream.Send(consts.EventResponseCreated, ResponseCreatedEvent{ResponseID: sub.ResponseID, AgentName: agentName})

	stream.Status(consts.StepGenerating, "Generating report...")
	polled, err := w.notifier.Watch(ctx, agentName, sub.ResponseID, opts.Poll, stream)
	if err != nil {
		return nil, err
	}
	stream.Status(consts.StepCompleted, "Report generation completed")

	result.Response = polled.Response
	return w.complete(stream, result), nil
}

func (w *Workflow) complete(stream *Stream, result *models.ReportResult) *models.ReportResult {
	if w.extractor != nil {
		result.Report = w.extractor.Extract(result.Agent.Name, result.Symbol, result.Response)
	}
	stream.Send(consts.EventComplete, CompleteEvent{
		Response: result.Response,
		Agent:    result.Agent,
		Report:   result.Report,
	})
	return result
}

// Fetch returns one response as the agent service currently sees it.
func (w *Workflow) Fetch(ctx context.Context, agent, id string) (*models.ResponseRecord, error) {
	return w.svc.GetResponse(ctx, agent, id)
}

