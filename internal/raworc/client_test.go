package raworc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/stockdesk/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/api/v0", APIKey: "token"})
}

func TestGetAgentSendsBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v0/agents/stockapi-agent-tsla", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"stockapi-agent-tsla","state":"idle","created_by":"me"}`)
	})

	agent, err := client.GetAgent(context.Background(), "stockapi-agent-tsla")
	require.NoError(t, err)
	assert.Equal(t, "stockapi-agent-tsla", agent.Name)
	assert.Equal(t, "idle", agent.State)
}

func TestAPIErrorCarriesStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "agent not found")
	})

	_, err := client.GetAgent(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
	assert.Equal(t, "agent not found", Body(err))
}

func TestRemixPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v0/agents/Core/remix", r.URL.Path)
		var req models.RemixRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.RemixRequest{Name: "stockapi-agent-nvda", Code: true, Env: true, Content: true}, req)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"name":"stockapi-agent-nvda"}`)
	})

	agent, err := client.RemixAgent(context.Background(), "Core", models.RemixRequest{
		Name: "stockapi-agent-nvda", Code: true, Env: true, Content: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "stockapi-agent-nvda", agent.Name)
}

func TestListShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"array", `[{"id":"r1"},{"id":"r2"}]`, 2},
		{"wrapped", `{"responses":[{"id":"r1"}]}`, 1},
		{"wrapped wrong key", `{"items":[{"id":"r1"}]}`, 0},
		{"scalar", `"nope"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "100", r.URL.Query().Get("limit"))
				_, _ = io.WriteString(w, tt.body)
			})
			got, err := client.ListResponses(context.Background(), "a", 0)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestGetResponseDecodesLooseSegments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/agents/a/responses/r1", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"id":"r1","agent_name":"a","status":"running",
			"segments":[{"type":"tool_call","tool":"create_file","args":{"filename":"x.html"},"extra":1},
			            {"type":"tool_result","payload":"plain string"}],
			"output_content":[]
		}`)
	})

	resp, err := client.GetResponse(context.Background(), "a", "r1")
	require.NoError(t, err)
	require.Len(t, resp.Segments, 2)
	assert.Equal(t, "x.html", resp.Segments[0].ArgString("filename"))
	assert.Nil(t, resp.Segments[1].Payload)

	// unknown fields survive a round trip
	out, err := json.Marshal(resp.Segments[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"extra":1`)
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	_, err := client.GetAgent(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, IsAPIError(err))
}
