package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fveres/dstui/internal/synology"
)

// ListModel renders the main task table and tracks the selection. The
// selection is clamped to [0, len(tasks)-1] on every mutation; with an
// empty list it pins at 0.
type ListModel struct {
	Tasks    []synology.Task
	Selected int

	Width  int
	Height int
}

// NewListModel creates an empty task list
func NewListModel() ListModel {
	return ListModel{}
}

// SetTasks replaces the task list wholesale and clamps the selection
func (m *ListModel) SetTasks(tasks []synology.Task) {
	m.Tasks = tasks
	m.clamp()
}

// MoveUp moves the selection one row up
func (m *ListModel) MoveUp() {
	m.Selected--
	m.clamp()
}

// MoveDown moves the selection one row down
func (m *ListModel) MoveDown() {
	m.Selected++
	m.clamp()
}

// MoveTop jumps to the first row
func (m *ListModel) MoveTop() {
	m.Selected = 0
}

// MoveBottom jumps to the last row
func (m *ListModel) MoveBottom() {
	m.Selected = len(m.Tasks) - 1
	m.clamp()
}

func (m *ListModel) clamp() {
	if m.Selected >= len(m.Tasks) {
		m.Selected = len(m.Tasks) - 1
	}
	if m.Selected < 0 {
		m.Selected = 0
	}
}

// SelectedTask returns the task under the cursor, if any
func (m *ListModel) SelectedTask() (synology.Task, bool) {
	if len(m.Tasks) == 0 || m.Selected >= len(m.Tasks) {
		return synology.Task{}, false
	}
	return m.Tasks[m.Selected], true
}

// column widths for the task table; Name absorbs the remaining width
const (
	colStatus   = 13
	colProgress = ProgressBarWidth + 2
	colSize     = 11
	colRate     = 13
)

// View renders the task table
func (m ListModel) View() string {
	if len(m.Tasks) == 0 {
		return SubtitleStyle.Render("\n  No download tasks. Waiting for the next poll...")
	}

	nameWidth := m.Width - colStatus - colProgress - colSize - 2*colRate - 10
	if nameWidth < 16 {
		nameWidth = 16
	}

	var b strings.Builder
	header := fmt.Sprintf("  %-*s %-*s %-*s %*s %*s %*s",
		nameWidth, "Name",
		colStatus, "Status",
		colProgress, "Progress",
		colSize, "Size",
		colRate, "Down",
		colRate, "Up",
	)
	b.WriteString(HeaderRowStyle.Render(header))
	b.WriteString("\n")

	for i, task := range m.Tasks {
		progress := int(task.Progress() * 100)
		plain := fmt.Sprintf("%-*s %-*s %-*s %*s %*s %*s",
			nameWidth, TruncateString(task.Name, nameWidth),
			colStatus, task.Status.String(),
			colProgress, RenderProgressBar(progress, ProgressBarWidth),
			colSize, FormatBytes(task.SizeTotal),
			colRate, FormatRate(task.DownloadRate),
			colRate, FormatRate(task.UploadRate),
		)

		if i == m.Selected {
			b.WriteString(SelectedRowStyle.Render("→ " + plain))
		} else {
			b.WriteString(statusRowStyle(task.Status).Render("  " + plain))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func statusRowStyle(status synology.TaskStatus) lipgloss.Style {
	return StatusStyle(status.String())
}
