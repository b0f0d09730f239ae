package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dyike/stockdesk/internal/report"
)

// handleStreamReport runs the same workflow as handleRunReport but delivers
// progress as server-sent events. The stream always ends with one complete
// or error event. Closing the connection cancels polling.
func (s *Server) handleStreamReport(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	s.deps.Metrics.StreamOpened()
	defer s.deps.Metrics.StreamClosed()

	ctx := c.Request.Context()
	emit := func(ev report.Event) {
		if ctx.Err() != nil {
			return
		}
		c.SSEvent(ev.Name, ev.Data)
		c.Writer.Flush()
	}

	opts := report.RunOptions{Poll: s.pollSettings().Stream, Mode: "stream"}
	if _, err := s.deps.Reports.Run(ctx, c.Param("symbol"), opts, emit); err != nil {
		s.logger.Debug("report stream ended with error",
			zap.String("symbol", c.Param("symbol")), zap.Error(err))
	}
}
