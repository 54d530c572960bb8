package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fveres/dstui/internal/command"
	"github.com/fveres/dstui/internal/config"
	"github.com/fveres/dstui/internal/discovery"
	"github.com/fveres/dstui/internal/logging"
	"github.com/fveres/dstui/internal/poller"
	"github.com/fveres/dstui/internal/synology"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenMainList    Screen = "mainlist"
	ScreenTaskDetail  Screen = "taskdetail"
	ScreenHelp        Screen = "help"
	ScreenConfigEntry Screen = "configentry"
)

// Overlay is a modal drawn over the current screen
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDeleteConfirm
	OverlayServerInfo
)

// reconnectDelay is how long to wait before retrying a failed startup
// connection
const reconnectDelay = 5 * time.Second

// Messages
type connectedMsg struct {
	client *synology.Client
}

type connectFailedMsg struct {
	err error
}

type retryConnectMsg struct{}

type snapshotMsg synology.Snapshot

type outcomeMsg command.Outcome

type filesLoadedMsg struct {
	taskID string
	files  []synology.TaskFileEntry
	err    error
}

type serverInfoMsg struct {
	cfg *synology.ServerConfig
	err error
}

type scanDoneMsg struct {
	stations []*discovery.Station
	err      error
}

// AppModel is the top-level coordinator model that routes messages
// between screens and owns the connection to the background workers. All
// state mutation happens in Update; no Update path performs network I/O.
type AppModel struct {
	ctx context.Context

	Config *config.Config
	Client *synology.Client
	Poller *poller.Poller
	Runner *command.Runner

	CurrentScreen  Screen
	PreviousScreen Screen
	ActiveOverlay  Overlay

	// captured when the delete confirmation opens; polls keep replacing
	// the list underneath the overlay, so the selection cannot be trusted
	// by the time the operator confirms
	pendingDeleteID   string
	pendingDeleteName string

	List       ListModel
	Detail     DetailModel
	ConfigForm ConfigModel

	Snapshot   synology.Snapshot
	ServerInfo *synology.ServerConfig

	StatusMsg   string
	StatusIsErr bool
	Connecting  bool

	Width  int
	Height int

	Help       help.Model
	ListKeys   listKeyMap
	DetailKeys detailKeyMap
	ConfigKeys configKeyMap

	spinner spinner.Model
}

// NewAppModel creates the application model. A nil client means no usable
// saved credentials exist and the connection form is shown first.
func NewAppModel(ctx context.Context, cfg *config.Config, client *synology.Client) AppModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := AppModel{
		ctx:        ctx,
		Config:     cfg,
		Client:     client,
		List:       NewListModel(),
		Help:       help.New(),
		ListKeys:   newListKeyMap(),
		DetailKeys: newDetailKeyMap(),
		ConfigKeys: newConfigKeyMap(),
		spinner:    s,
		Width:      MinTerminalWidth,
		Height:     24,
	}

	if client == nil {
		m.CurrentScreen = ScreenConfigEntry
		m.ConfigForm = NewConfigModel(cfg)
	} else {
		m.CurrentScreen = ScreenMainList
		m.Connecting = true
		m.StatusMsg = "connecting..."
	}

	return m
}

// Init starts the initial connection when saved credentials exist
func (m AppModel) Init() tea.Cmd {
	if m.Client != nil {
		return tea.Batch(m.connectCmd(), m.spinner.Tick)
	}
	return m.spinner.Tick
}

// connectCmd performs API discovery and login off the Update loop
func (m AppModel) connectCmd() tea.Cmd {
	ctx := m.ctx
	client := m.Client
	return func() tea.Msg {
		if err := client.Connect(ctx); err != nil {
			return connectFailedMsg{err: err}
		}
		return connectedMsg{client: client}
	}
}

// waitForSnapshot re-arms after every received snapshot so the UI keeps
// draining the poller's latest-value channel.
func waitForSnapshot(ch <-chan synology.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-ch)
	}
}

// waitForOutcome drains the command runner's results channel
func waitForOutcome(ch <-chan command.Outcome) tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg(<-ch)
	}
}

func (m AppModel) fetchFilesCmd(taskID string) tea.Cmd {
	ctx := m.ctx
	client := m.Client
	return func() tea.Msg {
		files, err := client.TaskFiles(ctx, taskID)
		return filesLoadedMsg{taskID: taskID, files: files, err: err}
	}
}

func (m AppModel) fetchServerInfoCmd() tea.Cmd {
	ctx := m.ctx
	client := m.Client
	return func() tea.Msg {
		cfg, err := client.ServerConfig(ctx)
		return serverInfoMsg{cfg: cfg, err: err}
	}
}

func (m AppModel) scanCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		stations, err := discovery.QuickScan(ctx)
		return scanDoneMsg{stations: stations, err: err}
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.List.Width = msg.Width
		m.List.Height = msg.Height
		m.Detail.Width = msg.Width
		m.Detail.Height = msg.Height
		m.ConfigForm.Width = msg.Width
		m.ConfigForm.Height = msg.Height
		m.Help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var appCmd, formCmd tea.Cmd
		m.spinner, appCmd = m.spinner.Update(msg)
		*m.ConfigForm.Spinner(), formCmd = m.ConfigForm.Spinner().Update(msg)
		return m, tea.Batch(appCmd, formCmd)

	case connectedMsg:
		return m.handleConnected(msg.client)

	case connectFailedMsg:
		return m.handleConnectFailed(msg.err)

	case retryConnectMsg:
		if m.Client != nil && m.Poller == nil {
			m.StatusMsg = "reconnecting..."
			m.StatusIsErr = false
			return m, m.connectCmd()
		}
		return m, nil

	case snapshotMsg:
		return m.handleSnapshot(synology.Snapshot(msg))

	case outcomeMsg:
		return m.handleOutcome(command.Outcome(msg))

	case filesLoadedMsg:
		if m.CurrentScreen == ScreenTaskDetail && m.Detail.Task.ID == msg.taskID {
			m.Detail.SetFiles(msg.files, msg.err)
		}
		return m, nil

	case serverInfoMsg:
		if msg.err != nil {
			m.ActiveOverlay = OverlayNone
			m.setStatusError(msg.err)
			return m, nil
		}
		m.ServerInfo = msg.cfg
		return m, nil

	case scanDoneMsg:
		m.ConfigForm.Scanning = false
		m.ConfigForm.Stations = msg.stations
		if msg.err != nil {
			m.ConfigForm.ErrMsg = "network scan failed: " + msg.err.Error()
		} else if len(msg.stations) == 0 {
			m.ConfigForm.ErrMsg = "no DiskStations found on the local network"
		} else {
			m.ConfigForm.ErrMsg = ""
			m.ConfigForm.ApplyStation(msg.stations[0])
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Pass everything else to the focused text input, if any
	if m.CurrentScreen == ScreenConfigEntry {
		if input := m.ConfigForm.FocusedInput(); input != nil {
			var cmd tea.Cmd
			*input, cmd = input.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m AppModel) handleConnected(client *synology.Client) (tea.Model, tea.Cmd) {
	m.Client = client
	m.Connecting = false
	m.Poller = poller.New(client, m.Config.PollInterval())
	m.Runner = command.NewRunner(client)
	go m.Poller.Run(m.ctx)

	m.CurrentScreen = ScreenMainList
	m.StatusMsg = "connected; waiting for the first task list..."
	m.StatusIsErr = false

	return m, tea.Batch(
		waitForSnapshot(m.Poller.Snapshots()),
		waitForOutcome(m.Runner.Outcomes()),
	)
}

func (m AppModel) handleConnectFailed(err error) (tea.Model, tea.Cmd) {
	m.Connecting = false

	if synology.IsInvalidCredentials(err) {
		m.CurrentScreen = ScreenConfigEntry
		m.ConfigForm = NewConfigModel(m.Config)
		m.ConfigForm.ErrMsg = synology.ShortMessage(err)
		return m, nil
	}

	m.setStatusError(err)
	// Transient startup failure: keep retrying in the background
	return m, tea.Tick(reconnectDelay, func(time.Time) tea.Msg {
		return retryConnectMsg{}
	})
}

func (m AppModel) handleSnapshot(snap synology.Snapshot) (tea.Model, tea.Cmd) {
	m.Snapshot = snap
	m.List.SetTasks(snap.Tasks)

	// Keep an open detail view tracking its task across polls
	if m.CurrentScreen == ScreenTaskDetail {
		for _, task := range snap.Tasks {
			if task.ID == m.Detail.Task.ID {
				m.Detail.Task = task
				break
			}
		}
	}

	if snap.FetchErr != nil {
		message := synology.ShortMessage(snap.FetchErr)
		if m.Poller != nil && m.Poller.ConsecutiveFailures() >= poller.FailureAlertThreshold {
			message += " (connection lost, showing stale data)"
		}
		m.StatusMsg = message
		m.StatusIsErr = true
	} else {
		m.StatusMsg = fmt.Sprintf("%d tasks | updated %s",
			len(snap.Tasks), snap.FetchedAt.Format("15:04:05"))
		m.StatusIsErr = false
	}

	var cmd tea.Cmd
	if m.Poller != nil {
		cmd = waitForSnapshot(m.Poller.Snapshots())
	}
	return m, cmd
}

func (m AppModel) handleOutcome(out command.Outcome) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.Runner != nil {
		cmd = waitForOutcome(m.Runner.Outcomes())
	}

	if out.Err != nil {
		m.StatusMsg = fmt.Sprintf("%s %s failed: %s",
			out.Action, out.TaskID, synology.ShortMessage(out.Err))
		m.StatusIsErr = true
		return m, cmd
	}

	m.StatusMsg = fmt.Sprintf("%s applied to %s", out.Action, out.TaskID)
	m.StatusIsErr = false
	// Pull a fresh list so the change shows up without waiting a full tick
	if m.Poller != nil {
		m.Poller.RequestRefresh()
	}
	return m, cmd
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c always quits
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.ActiveOverlay != OverlayNone {
		return m.handleOverlayKey(msg)
	}

	switch m.CurrentScreen {
	case ScreenMainList:
		return m.handleMainListKey(msg)
	case ScreenTaskDetail:
		return m.handleDetailKey(msg)
	case ScreenHelp:
		// Any key returns to the prior screen
		m.CurrentScreen = m.PreviousScreen
		return m, nil
	case ScreenConfigEntry:
		return m.handleConfigKey(msg)
	}

	return m, nil
}

func (m AppModel) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.ActiveOverlay {
	case OverlayDeleteConfirm:
		switch msg.String() {
		case "y", "Y":
			m.ActiveOverlay = OverlayNone
			if m.pendingDeleteID != "" && m.Runner != nil {
				m.Runner.Dispatch(m.ctx, command.ActionDelete, m.pendingDeleteID)
				m.StatusMsg = fmt.Sprintf("deleting %s...", TruncateString(m.pendingDeleteName, 40))
				m.StatusIsErr = false
			}
			m.pendingDeleteID = ""
			m.pendingDeleteName = ""
		case "n", "N", "esc":
			m.ActiveOverlay = OverlayNone
			m.pendingDeleteID = ""
			m.pendingDeleteName = ""
		}
		return m, nil

	case OverlayServerInfo:
		m.ActiveOverlay = OverlayNone
		m.ServerInfo = nil
		return m, nil
	}

	return m, nil
}

func (m AppModel) handleMainListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ListKeys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.ListKeys.Up):
		m.List.MoveUp()

	case key.Matches(msg, m.ListKeys.Down):
		m.List.MoveDown()

	case msg.String() == "g", msg.String() == "home":
		m.List.MoveTop()

	case msg.String() == "G", msg.String() == "end":
		m.List.MoveBottom()

	case key.Matches(msg, m.ListKeys.Open):
		if task, ok := m.List.SelectedTask(); ok {
			m.PreviousScreen = m.CurrentScreen
			m.CurrentScreen = ScreenTaskDetail
			m.Detail = NewDetailModel(task)
			m.Detail.Width = m.Width
			m.Detail.Height = m.Height
			return m, m.fetchFilesCmd(task.ID)
		}

	case key.Matches(msg, m.ListKeys.Pause):
		if task, ok := m.List.SelectedTask(); ok && m.Runner != nil {
			action := command.ActionPause
			if task.Status == synology.StatusPaused {
				action = command.ActionResume
			}
			m.Runner.Dispatch(m.ctx, action, task.ID)
			m.StatusMsg = fmt.Sprintf("%s %s...", action, TruncateString(task.Name, 40))
			m.StatusIsErr = false
		}

	case key.Matches(msg, m.ListKeys.Delete):
		if task, ok := m.List.SelectedTask(); ok {
			m.ActiveOverlay = OverlayDeleteConfirm
			m.pendingDeleteID = task.ID
			m.pendingDeleteName = task.Name
		}

	case key.Matches(msg, m.ListKeys.Refresh):
		if m.Poller != nil {
			m.Poller.RequestRefresh()
			m.StatusMsg = "refreshing..."
			m.StatusIsErr = false
		} else if m.Client != nil && !m.Connecting {
			m.Connecting = true
			m.StatusMsg = "reconnecting..."
			m.StatusIsErr = false
			return m, m.connectCmd()
		}

	case key.Matches(msg, m.ListKeys.Info):
		if m.Client != nil {
			m.ActiveOverlay = OverlayServerInfo
			return m, m.fetchServerInfoCmd()
		}

	case key.Matches(msg, m.ListKeys.Help):
		m.PreviousScreen = m.CurrentScreen
		m.CurrentScreen = ScreenHelp
	}

	return m, nil
}

func (m AppModel) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.DetailKeys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.DetailKeys.PrevTab):
		m.Detail.PrevTab()

	case key.Matches(msg, m.DetailKeys.NextTab):
		m.Detail.NextTab()

	case msg.String() == "?":
		m.PreviousScreen = m.CurrentScreen
		m.CurrentScreen = ScreenHelp

	default:
		// Any other dismiss key returns to the list
		m.CurrentScreen = ScreenMainList
	}

	return m, nil
}

func (m AppModel) handleConfigKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ConfigKeys.Next):
		m.ConfigForm.Next()
		return m, nil

	case key.Matches(msg, m.ConfigKeys.Prev):
		m.ConfigForm.Prev()
		return m, nil

	case key.Matches(msg, m.ConfigKeys.Discover):
		if !m.ConfigForm.Scanning {
			m.ConfigForm.Scanning = true
			m.ConfigForm.ErrMsg = ""
			return m, tea.Batch(m.scanCmd(), m.ConfigForm.Spinner().Tick)
		}
		return m, nil

	case key.Matches(msg, m.ConfigKeys.Submit):
		return m.submitConfig()
	}

	// Space toggles the focused toggle row
	if msg.String() == " " && m.ConfigForm.FocusedInput() == nil {
		m.ConfigForm.Toggle()
		return m, nil
	}
	if (msg.String() == "left" || msg.String() == "right") && m.ConfigForm.FocusedInput() == nil {
		m.ConfigForm.Toggle()
		return m, nil
	}

	// Everything else goes to the focused text input
	if input := m.ConfigForm.FocusedInput(); input != nil {
		var cmd tea.Cmd
		*input, cmd = input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m AppModel) submitConfig() (tea.Model, tea.Cmd) {
	cfg, err := m.ConfigForm.BuildConfig()
	if err != nil {
		m.ConfigForm.ErrMsg = err.Error()
		return m, nil
	}

	if err := cfg.Save(); err != nil {
		logging.Warn("could not save config: " + err.Error())
	}

	transport, err := synology.NewTransport(cfg.BaseURL(), cfg.VerifyCertificates, synology.DefaultTimeout)
	if err != nil {
		m.ConfigForm.ErrMsg = err.Error()
		return m, nil
	}

	m.Config = cfg
	m.Client = synology.NewClient(transport, synology.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	})
	m.Connecting = true
	m.CurrentScreen = ScreenMainList
	m.StatusMsg = "connecting..."
	m.StatusIsErr = false

	return m, tea.Batch(m.connectCmd(), m.spinner.Tick)
}

func (m *AppModel) setStatusError(err error) {
	m.StatusMsg = synology.ShortMessage(err)
	m.StatusIsErr = true
}

// View renders the current screen
func (m AppModel) View() string {
	if m.ActiveOverlay != OverlayNone {
		return RenderModal(m.renderOverlay(), m.Width, m.Height)
	}

	var content, footer string
	host := ""
	if m.Config != nil {
		host = m.Config.Host
	}

	switch m.CurrentScreen {
	case ScreenMainList:
		content = m.renderMainList()
		footer = m.Help.View(m.ListKeys)
	case ScreenTaskDetail:
		content = m.Detail.View()
		footer = m.Help.View(m.DetailKeys)
	case ScreenHelp:
		content = m.renderHelpScreen()
		footer = HelpStyle.Render("press any key to go back")
	case ScreenConfigEntry:
		content = m.ConfigForm.View()
		footer = m.Help.View(m.ConfigKeys)
	default:
		content = "Unknown screen"
	}

	return RenderApplicationContainer(content, footer, host, m.Width, m.Height)
}

func (m AppModel) renderMainList() string {
	var b strings.Builder

	if m.Connecting {
		b.WriteString("\n  " + m.spinner.View() + " connecting to " + m.Config.BaseURL() + "...\n")
	} else {
		b.WriteString(m.List.View())
	}

	b.WriteString("\n")
	if m.StatusIsErr {
		b.WriteString(StatusErrorStyle.Render("✗ " + m.StatusMsg))
	} else if m.StatusMsg != "" {
		b.WriteString(StatusBarStyle.Render(m.StatusMsg))
	}

	return b.String()
}

func (m AppModel) renderHelpScreen() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Keyboard reference"))
	b.WriteString("\n")
	b.WriteString(m.Help.FullHelpView(m.ListKeys.FullHelp()))
	b.WriteString("\n\n")
	b.WriteString(SubtitleStyle.Render("Detail view"))
	b.WriteString("\n")
	b.WriteString(m.Help.FullHelpView(m.DetailKeys.FullHelp()))
	return b.String()
}

func (m AppModel) renderOverlay() string {
	switch m.ActiveOverlay {
	case OverlayDeleteConfirm:
		var b strings.Builder
		b.WriteString(ErrorStyle.Render("Delete task?"))
		b.WriteString("\n\n")
		b.WriteString(ValueStyle.Render(TruncateString(m.pendingDeleteName, 60)))
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("y: delete    n/esc: cancel"))
		return WarningModalStyle.Render(b.String())

	case OverlayServerInfo:
		return ModalStyle.Render(m.renderServerInfo())
	}
	return ""
}

func (m AppModel) renderServerInfo() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Download Station settings"))
	b.WriteString("\n")

	if m.ServerInfo == nil {
		b.WriteString(SubtitleStyle.Render("loading..."))
		return b.String()
	}

	info := m.ServerInfo
	rateOrUnlimited := func(kb int64) string {
		if kb <= 0 {
			return "unlimited"
		}
		return FormatRate(kb * 1024)
	}

	b.WriteString(detailLine("BT max download", rateOrUnlimited(info.BTMaxDownload)))
	b.WriteString(detailLine("BT max upload", rateOrUnlimited(info.BTMaxUpload)))
	b.WriteString(detailLine("HTTP max download", rateOrUnlimited(info.HTTPMaxDownload)))
	b.WriteString(detailLine("FTP max download", rateOrUnlimited(info.FTPMaxDownload)))
	b.WriteString(detailLine("NZB max download", rateOrUnlimited(info.NZBMaxDownload)))
	b.WriteString(detailLine("eMule enabled", fmt.Sprintf("%v", info.EMuleEnabled)))
	b.WriteString(detailLine("Auto unzip", fmt.Sprintf("%v", info.UnzipEnabled)))
	b.WriteString(detailLine("Default destination", info.DefaultDestination))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("press any key to close"))
	return b.String()
}
