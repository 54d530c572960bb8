// Dstui is a terminal client for Synology Download Station.
//
// It connects to a DiskStation's Web API, polls the download task list in
// the background, and provides a keyboard-driven interface for inspecting
// and controlling download jobs: pause, resume, delete, per-task file
// listings and server settings.
//
// Connection settings live in a YAML file under the OS config directory
// (~/.config/dstui/config.yaml on Linux). On first start, or when the
// saved credentials are rejected, a connection form is shown; it can scan
// the local network for DiskStations via mDNS.
//
// Set DSTUI_LOG_LEVEL=debug to write diagnostic logs to stderr
// (redirect stderr to a file, or the output will corrupt the UI).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fveres/dstui/internal/config"
	"github.com/fveres/dstui/internal/logging"
	"github.com/fveres/dstui/internal/synology"
	"github.com/fveres/dstui/internal/tui"
	"github.com/fveres/dstui/internal/version"
)

// logoutTimeout bounds the best-effort session logout on exit
const logoutTimeout = 3 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dstui",
	Short: "Terminal UI for Synology Download Station",
	Long: `A terminal client for Synology Download Station.

Authenticates against the DiskStation Web API, polls the task list in
the background, and lets you inspect and control download jobs from the
keyboard: pause, resume, delete, file listings and server settings.

Configuration is stored in a YAML file under the OS config directory
(~/.config/dstui/config.yaml on Linux). On first run the connection form
is shown; use ctrl+d there to scan the local network for DiskStations.`,
	Version:      version.Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dstui %s\n", version.Full())
	},
}

func run() error {
	if err := logging.InitializeFromEnv(); err != nil {
		return fmt.Errorf("logging setup failed: %w", err)
	}
	defer logging.Sync()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("dstui requires an interactive terminal")
	}

	cfg, client, err := loadClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := tui.NewAppModel(ctx, cfg, client)
	program := tea.NewProgram(app, tea.WithAltScreen())

	final, err := program.Run()
	cancel()
	if err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	// Best-effort logout for whichever client the session ended up on
	// (the startup one, or one created through the connection form)
	if model, ok := final.(tui.AppModel); ok && model.Client != nil {
		logoutCtx, logoutCancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer logoutCancel()
		if err := model.Client.Logout(logoutCtx); err != nil {
			logging.Debug("logout failed: " + err.Error())
		}
	}

	return nil
}

// loadClient loads the saved configuration and builds the API client. A
// missing config file is not an error: the UI starts on the connection
// form instead. A malformed saved address is fatal before the UI starts.
func loadClient() (*config.Config, *synology.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("could not load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	transport, err := synology.NewTransport(cfg.BaseURL(), cfg.VerifyCertificates, synology.DefaultTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid server address: %w", err)
	}

	client := synology.NewClient(transport, synology.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	})
	return cfg, client, nil
}
