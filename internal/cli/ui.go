package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/stockdesk/consts"
	"github.com/dyike/stockdesk/internal/report"
	"github.com/dyike/stockdesk/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6"))

	pendingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	inProgressStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	completedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	toolCallStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#8B5CF6"))

	reasoningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6"))

	gainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	lossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	cellStyle = lipgloss.NewStyle().PaddingRight(2)
)

const maxSegmentText = 120

// printEvent renders one progress event as a single terminal line.
func printEvent(w io.Writer, ev report.Event) {
	var line string
	switch data := ev.Data.(type) {
	case report.StatusEvent:
		line = pendingStyle.Render("• " + data.Message)
	case report.AgentReadyEvent:
		state := "created"
		if data.Reused {
			state = "reused"
		}
		line = completedStyle.Render(fmt.Sprintf("✓ agent %s ready (%s)", data.Agent.Name, state))
	case report.ResponseCreatedEvent:
		line = inProgressStyle.Render("→ response " + data.ResponseID)
	case report.SegmentEvent:
		line = describeSegment(data.Segment)
	case report.SegmentsEvent:
		line = pendingStyle.Render(fmt.Sprintf("  %d segments from a recent report", len(data.Segments)))
	case report.ProgressEvent:
		line = pendingStyle.Render(fmt.Sprintf("  [%d segments, %s]", data.SegmentCount, data.Status))
	case report.CompleteEvent:
		line = completedStyle.Render("✓ report complete")
	case report.ErrorEvent:
		msg := data.Error
		if d, ok := data.Details.(string); ok && d != "" {
			msg += ": " + d
		}
		if data.Retryable {
			msg += " (retry shortly)"
		}
		line = errorStyle.Render("✗ " + msg)
	default:
		line = fmt.Sprintf("%s %v", ev.Name, ev.Data)
	}
	fmt.Fprintln(w, line)
}

func describeSegment(seg models.Segment) string {
	switch seg.Type {
	case consts.SegmentToolCall:
		return toolCallStyle.Render("  ⚙ " + seg.Tool)
	case consts.SegmentToolResult:
		return toolCallStyle.Render("  ↳ " + seg.Tool + " done")
	case consts.SegmentError:
		return errorStyle.Render("  ! " + truncate(seg.Text, maxSegmentText))
	case consts.SegmentFinal:
		return completedStyle.Render("  final output ready")
	}
	if seg.Text == "" {
		return pendingStyle.Render("  " + seg.Type)
	}
	return reasoningStyle.Render("  " + truncate(seg.Text, maxSegmentText))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func printResult(w io.Writer, result *models.ReportResult) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s research report", result.Symbol)))
	if result.Reused {
		fmt.Fprintln(w, pendingStyle.Render("reused a report generated in the last few minutes"))
	}
	if result.Response != nil {
		fmt.Fprintf(w, "response: %s (%s)\n", result.Response.ID, result.Response.Status)
	}
	if rep := result.Report; rep != nil {
		if rep.Title != "" {
			fmt.Fprintf(w, "title:    %s\n", rep.Title)
		}
		fmt.Fprintf(w, "url:      %s\n", rep.URL)
		if rep.HTML != "" {
			fmt.Fprintf(w, "html:     %d bytes inline\n", len(rep.HTML))
		}
	}
}

var errNoInlineHTML = errors.New("report has no inline HTML; open the URL instead")

// saveReport writes the inline HTML to path, asking before overwriting.
func saveReport(w io.Writer, path string, rep *models.ExtractedReport) error {
	if rep == nil || rep.HTML == "" {
		return errNoInlineHTML
	}
	if _, err := os.Stat(path); err == nil {
		ok, err := ConfirmOverwrite(path)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(w, pendingStyle.Render("kept existing "+path))
			return nil
		}
	}
	if err := os.WriteFile(path, []byte(rep.HTML), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintln(w, completedStyle.Render("✓ saved "+path))
	return nil
}

// RenderSnapshot formats the quote board as a table.
func RenderSnapshot(snap *models.MarketSnapshot) string {
	var b strings.Builder
	title := "Market board"
	if snap.IsMockData {
		title += " (sample data, provider unreachable)"
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	header := []string{"SYMBOL", "NAME", "PRICE", "CHANGE", "CHANGE %", "VOLUME"}
	rows := [][]string{}
	for _, q := range snap.Data {
		rows = append(rows, quoteRow(q))
	}
	b.WriteString(renderTable(header, rows, 3, 4))

	if len(snap.TopGainers) > 0 {
		b.WriteString("\n" + headerStyle.Render("Top gainers") + "\n")
		for i, q := range snap.TopGainers {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, q.Symbol, colorChange(q.RegularMarketChangePercent.StringFixed(2)+"%"))
		}
	}
	return b.String()
}

func quoteRow(q *models.Quote) []string {
	return []string{
		q.Symbol,
		truncate(q.ShortName, 28),
		q.RegularMarketPrice.StringFixed(2),
		q.RegularMarketChange.StringFixed(2),
		q.RegularMarketChangePercent.StringFixed(2) + "%",
		fmt.Sprintf("%d", q.RegularMarketVolume),
	}
}

// RenderAgents formats the agent list as a table.
func RenderAgents(agents []*models.Agent) string {
	if len(agents) == 0 {
		return pendingStyle.Render("no agents") + "\n"
	}
	rows := make([][]string, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, []string{a.Name, a.State, a.CreatedBy, a.CreatedAt})
	}
	return renderTable([]string{"NAME", "STATE", "CREATED BY", "CREATED AT"}, rows)
}

// renderTable pads columns to equal width; colored columns are tinted by sign.
func renderTable(header []string, rows [][]string, colored ...int) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	isColored := map[int]bool{}
	for _, c := range colored {
		isColored[c] = true
	}

	var b strings.Builder
	line := func(cells []string, head bool) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			style := cellStyle.Width(widths[i] + 2)
			text := style.Render(cell)
			switch {
			case head:
				text = headerStyle.Render(text)
			case isColored[i]:
				text = colorChange(text)
			}
			parts[i] = text
		}
		b.WriteString(strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ") + "\n")
	}
	line(header, true)
	for _, row := range rows {
		line(row, false)
	}
	return b.String()
}

func colorChange(s string) string {
	if strings.HasPrefix(strings.TrimSpace(s), "-") {
		return lossStyle.Render(s)
	}
	return gainStyle.Render(s)
}
