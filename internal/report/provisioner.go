package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/dyike/stockdesk/internal/raworc"
	"github.com/dyike/stockdesk/models"
	"github.com/dyike/stockdesk/pkg/logger"
)

// Provisioned is the outcome of Ensure.
type Provisioned struct {
	Agent *models.Agent
	// Reused is true when the agent already existed before this call.
	Reused bool
}

// Provisioner makes sure the per-symbol agent exists and is awake. It keeps
// no state between calls; the agent service is the source of truth.
type Provisioner struct {
	svc      AgentService
	template string
	logger   *zap.Logger
}

func NewProvisioner(svc AgentService, template string, log *zap.Logger) *Provisioner {
	return &Provisioner{svc: svc, template: template, logger: logger.OrNop(log)}
}

// Ensure returns the agent for symbol, creating it from the template agent
// when missing. A concurrent creation (409 on remix) is resolved by fetching
// the agent the other request created.
func (p *Provisioner) Ensure(ctx context.Context, symbol string) (*Provisioned, error) {
	name := AgentNameFor(symbol)
	log := p.logger.With(zap.String("agent", name))

	agent, err := p.svc.GetAgent(ctx, name)
	switch {
	case err == nil:
		log.Debug("reusing existing agent")
		p.wake(ctx, name)
		return &Provisioned{Agent: withName(agent, name), Reused: true}, nil
	case ctx.Err() != nil:
		return nil, cancelled(ctx.Err())
	case !raworc.IsAPIError(err):
		return nil, &Error{
			Kind:    KindProvisionFailed,
			Message: "Failed to look up agent",
			Detail:  err.Error(),
			Err:     err,
		}
	}

	log.Info("creating agent from template", zap.String("template", p.template))
	agent, err = p.svc.RemixAgent(ctx, p.template, models.RemixRequest{
		Name:    name,
		Code:    true,
		Env:     true,
		Content: true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx.Err())
		}
		if !raworc.IsConflict(err) {
			return nil, &Error{
				Kind:       KindProvisionFailed,
				Message:    "Failed to create remixed agent",
				Detail:     detailOf(err),
				StatusCode: raworc.StatusCode(err),
				Err:        err,
			}
		}

		log.Info("agent already exists, fetching it")
		agent, err = p.svc.GetAgent(ctx, name)
		if err != nil {
			return nil, &Error{
				Kind:       KindProvisionFailed,
				Message:    "Agent exists but could not be fetched",
				Detail:     detailOf(err),
				StatusCode: raworc.StatusCode(err),
				Err:        err,
			}
		}
	}

	p.wake(ctx, name)
	return &Provisioned{Agent: withName(agent, name)}, nil
}

// wake is best effort; an agent that is already awake answers with an error.
func (p *Provisioner) wake(ctx context.Context, name string) {
	if err := p.svc.WakeAgent(ctx, name); err != nil {
		p.logger.Debug("wake ignored", zap.String("agent", name), zap.Error(err))
	}
}

func withName(agent *models.Agent, name string) *models.Agent {
	if agent == nil {
		agent = &models.Agent{}
	}
	if agent.Name == "" {
		agent.Name = name
	}
	return agent
}

func detailOf(err error) string {
	if body := raworc.Body(err); body != "" {
		return body
	}
	return err.Error()
}

func cancelled(cause error) *Error {
	return &Error{Kind: KindCancelled, Message: "Report request cancelled", Err: cause}
}
