package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fveres/dstui/internal/synology"
)

// detail view tabs
const (
	tabGeneral = iota
	tabTransfer
	tabFiles
	tabCount
)

var tabNames = [tabCount]string{"General", "Transfer", "Files"}

// DetailModel renders one task's information across tabs. The file list
// is fetched asynchronously when the screen opens; until it arrives the
// Files tab shows a loading note.
type DetailModel struct {
	Task synology.Task

	Files       []synology.TaskFileEntry
	FilesLoaded bool
	FilesErr    error
	SelectedTab int

	Width  int
	Height int
}

// NewDetailModel creates a detail view for the given task
func NewDetailModel(task synology.Task) DetailModel {
	return DetailModel{Task: task}
}

// NextTab cycles to the next tab
func (m *DetailModel) NextTab() {
	m.SelectedTab = (m.SelectedTab + 1) % tabCount
}

// PrevTab cycles to the previous tab
func (m *DetailModel) PrevTab() {
	m.SelectedTab = (m.SelectedTab + tabCount - 1) % tabCount
}

// SetFiles stores the result of the asynchronous file fetch
func (m *DetailModel) SetFiles(files []synology.TaskFileEntry, err error) {
	m.Files = files
	m.FilesErr = err
	m.FilesLoaded = true
}

// View renders the tab bar and the active tab's content
func (m DetailModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(TruncateString(m.Task.Name, m.Width-6)))
	b.WriteString("\n")
	b.WriteString(m.renderTabBar())
	b.WriteString("\n\n")

	switch m.SelectedTab {
	case tabGeneral:
		b.WriteString(m.renderGeneralTab())
	case tabTransfer:
		b.WriteString(m.renderTransferTab())
	case tabFiles:
		b.WriteString(m.renderFilesTab())
	}

	return b.String()
}

func (m DetailModel) renderTabBar() string {
	rendered := make([]string, 0, tabCount)
	for i, name := range tabNames {
		if i == m.SelectedTab {
			rendered = append(rendered, ActiveTabStyle.Render("["+name+"]"))
		} else {
			rendered = append(rendered, InactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func detailLine(label, value string) string {
	return LabelStyle.Render(fmt.Sprintf("  %-22s", label)) + ValueStyle.Render(value) + "\n"
}

func (m DetailModel) renderGeneralTab() string {
	var b strings.Builder
	b.WriteString(detailLine("ID", m.Task.ID))
	b.WriteString(detailLine("Title", m.Task.Name))
	b.WriteString(detailLine("Status", m.Task.Status.String()))
	if m.Task.StatusDetail != "" && m.Task.StatusDetail != m.Task.Status.String() {
		b.WriteString(detailLine("Status detail", m.Task.StatusDetail))
	}
	b.WriteString(detailLine("Destination", m.Task.Destination))
	b.WriteString(detailLine("Size", FormatBytes(m.Task.SizeTotal)))
	b.WriteString(detailLine("User name", m.Task.Username))
	b.WriteString(detailLine("URL / file name", TruncateString(m.Task.URI, m.Width-28)))
	b.WriteString(detailLine("Created", FormatTimestamp(m.Task.CreatedAt)))
	b.WriteString(detailLine("Completed", FormatTimestamp(m.Task.CompletedAt)))
	b.WriteString(detailLine("Elapsed", CalculateElapsed(m.Task.CreatedAt, m.Task.CompletedAt)))
	if m.Task.Status == synology.StatusWaiting {
		b.WriteString(detailLine("Estimated wait", FormatSeconds(m.Task.WaitingSeconds)))
	}
	if m.Task.ErrorDetail != "" {
		b.WriteString(LabelStyle.Render(fmt.Sprintf("  %-22s", "Error")))
		b.WriteString(ErrorStyle.Render(m.Task.ErrorDetail))
		b.WriteString("\n")
	}
	return b.String()
}

func (m DetailModel) renderTransferTab() string {
	progress := int(m.Task.Progress() * 100)

	var ratio float64
	if m.Task.SizeDownloaded > 0 {
		ratio = float64(m.Task.SizeUploaded) / float64(m.Task.SizeDownloaded)
	}

	var b strings.Builder
	b.WriteString(detailLine("Status", m.Task.Status.String()))
	b.WriteString(detailLine("Transferred (UL/DL)", fmt.Sprintf("%s / %s  Ratio: %.2f",
		FormatBytes(m.Task.SizeUploaded),
		FormatBytes(m.Task.SizeDownloaded),
		ratio)))
	b.WriteString(detailLine("Progress", RenderProgressBar(progress, ProgressBarWidth)))
	b.WriteString(detailLine("Speed DL / UL", fmt.Sprintf("%s / %s",
		FormatRate(m.Task.DownloadRate),
		FormatRate(m.Task.UploadRate))))
	return b.String()
}

func (m DetailModel) renderFilesTab() string {
	if !m.FilesLoaded {
		return SubtitleStyle.Render("  Loading file list...")
	}
	if m.FilesErr != nil {
		return ErrorStyle.Render("  " + synology.ShortMessage(m.FilesErr))
	}
	if len(m.Files) == 0 {
		return SubtitleStyle.Render("  No file information for this task.")
	}

	nameWidth := m.Width - 40
	if nameWidth < 20 {
		nameWidth = 20
	}

	var b strings.Builder
	for _, f := range m.Files {
		percent := int(f.Fraction() * 100)
		b.WriteString(fmt.Sprintf("  %-*s %10s  %s %3d%%\n",
			nameWidth, TruncateString(f.Path, nameWidth),
			FormatBytes(f.Size),
			RenderProgressBar(percent, 10),
			percent,
		))
	}
	return b.String()
}
