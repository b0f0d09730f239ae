package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dyike/stockdesk/internal/raworc"
	"github.com/dyike/stockdesk/internal/report"
)

// handleRunReport provisions, submits and blocks until the report settles.
func (s *Server) handleRunReport(c *gin.Context) {
	opts := report.RunOptions{Poll: s.pollSettings().Blocking, Mode: "blocking"}
	result, err := s.deps.Reports.Run(c.Request.Context(), c.Param("symbol"), opts, nil)
	if err != nil {
		c.JSON(report.HTTPStatus(err), report.ErrorEventFor(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetResponse(c *gin.Context) {
	symbol := c.Param("symbol")
	agent := strings.TrimSpace(c.Query("agent"))
	if agent == "" && report.ValidateSymbol(symbol) == nil {
		agent = report.AgentNameFor(symbol)
	}
	id := strings.TrimSpace(c.Query("responseId"))
	if agent == "" || id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing agent name or response ID"})
		return
	}

	resp, err := s.deps.Reports.Fetch(c.Request.Context(), agent, id)
	if err != nil {
		s.upstreamError(c, "Failed to fetch response", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "response": resp})
}

func (s *Server) handleQuotes(c *gin.Context) {
	var symbols []string
	for _, sym := range strings.Split(c.Query("symbols"), ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			symbols = append(symbols, sym)
		}
	}

	snap, err := s.deps.Quotes.Snapshot(c.Request.Context(), symbols...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch market data",
			"message": err.Error(),
		})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleListAgents(c *gin.Context) {
	agents, err := s.deps.Agents.ListAgents(c.Request.Context(), queryLimit(c))
	if err != nil {
		s.upstreamError(c, "Failed to fetch agents", err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (s *Server) handleListResponses(c *gin.Context) {
	responses, err := s.deps.Agents.ListResponses(c.Request.Context(), c.Param("name"), queryLimit(c))
	if err != nil {
		s.upstreamError(c, "Failed to fetch responses", err)
		return
	}
	c.JSON(http.StatusOK, responses)
}

// upstreamError mirrors the agent service status when it answered, and
// reports 500 when it could not be reached.
func (s *Server) upstreamError(c *gin.Context, msg string, err error) {
	if raworc.IsAPIError(err) {
		c.JSON(raworc.StatusCode(err), gin.H{"error": msg, "details": raworc.Body(err)})
		return
	}
	s.logger.Warn(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": err.Error()})
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
