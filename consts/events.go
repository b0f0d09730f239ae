package consts

// 流式事件名称
const (
	EventStatus          = "status"
	EventAgentReady      = "agent_ready"
	EventResponseCreated = "response_created"
	EventSegment         = "segment"
	EventSegments        = "segments"
	EventProgress        = "progress"
	EventComplete        = "complete"
	EventError           = "error"
)

// Progress steps carried by status events.
const (
	StepInit            = "init"
	StepAgentSetup      = "agent_setup"
	StepWake            = "wake"
	StepCheckExisting   = "check_existing"
	StepExisting        = "existing"
	StepStartGeneration = "start_generation"
	StepGenerating      = "generating"
	StepCompleted       = "completed"
)

// Segment types found in an agent execution trace.
const (
	SegmentToolCall   = "tool_call"
	SegmentToolResult = "tool_result"
	SegmentCommentary = "commentary"
	SegmentAnalysis   = "analysis"
	SegmentOutput     = "output"
	SegmentFinal      = "final"
	SegmentError      = "error"
)

// Tools whose trace entries point at the published report.
const (
	ToolPublishAgent = "publish_agent"
	ToolCreateFile   = "create_file"
)

// IsTerminalEvent reports whether name ends a progress stream.
func IsTerminalEvent(name string) bool {
	return name == EventComplete || name == EventError
}
