package report

import (
	"context"

	"github.com/dyike/stockdesk/models"
)

// AgentService is the slice of the orchestration API the workflow needs.
// *raworc.Client satisfies it.
type AgentService interface {
	ResponseFetcher

	GetAgent(ctx context.Context, name string) (*models.Agent, error)
	RemixAgent(ctx context.Context, template string, req models.RemixRequest) (*models.Agent, error)
	WakeAgent(ctx context.Context, name string) error
	ListResponses(ctx context.Context, agent string, limit int) ([]*models.ResponseRecord, error)
	CreateResponse(ctx context.Context, agent string, req models.CreateResponseRequest) (*models.ResponseRecord, error)
}

// ResponseFetcher reads a single response record.
type ResponseFetcher interface {
	GetResponse(ctx context.Context, agent, id string) (*models.ResponseRecord, error)
}
