package report

import (
	"context"
	"sync"

	"github.com/dyike/stockdesk/internal/raworc"
	"github.com/dyike/stockdesk/models"
)

// fakeService scripts the agent service in memory. GetResponse walks
// through script and keeps returning the last entry once exhausted.
type fakeService struct {
	mu sync.Mutex

	agent     *models.Agent
	agentErr  error
	remixErr  error
	listed    []*models.ResponseRecord
	listErr   error
	created   *models.ResponseRecord
	createErr error
	script    []step

	getAgentCalls int
	remixCalls    int
	wakeCalls     int
	createCalls   int
	getCalls      int
	lastRequest   models.CreateResponseRequest
}

type step struct {
	resp *models.ResponseRecord
	err  error
}

func (f *fakeService) GetAgent(_ context.Context, name string) (*models.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getAgentCalls++
	if f.agentErr != nil {
		return nil, f.agentErr
	}
	if f.agent != nil {
		return f.agent, nil
	}
	return nil, &raworc.APIError{Op: "get_agent", StatusCode: 404, Body: "not found"}
}

func (f *fakeService) RemixAgent(_ context.Context, _ string, req models.RemixRequest) (*models.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remixCalls++
	if f.remixErr != nil {
		return nil, f.remixErr
	}
	f.agent = &models.Agent{Name: req.Name, State: "idle"}
	return f.agent, nil
}

func (f *fakeService) WakeAgent(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wakeCalls++
	return nil
}

func (f *fakeService) ListResponses(context.Context, string, int) ([]*models.ResponseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed, f.listErr
}

func (f *fakeService) CreateResponse(_ context.Context, _ string, req models.CreateResponseRequest) (*models.ResponseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.lastRequest = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created != nil {
		return f.created, nil
	}
	return &models.ResponseRecord{ID: "resp-1", Status: "pending"}, nil
}

func (f *fakeService) GetResponse(context.Context, string, string) (*models.ResponseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.getCalls
	f.getCalls++
	if len(f.script) == 0 {
		return &models.ResponseRecord{Status: "pending"}, nil
	}
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	return f.script[i].resp, f.script[i].err
}

func (f *fakeService) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func status(s string) step {
	return step{resp: &models.ResponseRecord{ID: "resp-1", Status: s}}
}

func withSegments(s string, texts ...string) step {
	resp := &models.ResponseRecord{ID: "resp-1", Status: s}
	for _, t := range texts {
		resp.Segments = append(resp.Segments, models.Segment{Type: "commentary", Text: t})
	}
	return step{resp: resp}
}
