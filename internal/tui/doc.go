// Package tui implements the terminal interface: a bubbletea application
// coordinating four screens (task list, task detail, help, connection
// form) plus modal overlays for delete confirmation and server settings.
//
// The AppModel is the single coordinator. Background work (polling,
// command dispatch, file fetches, mDNS scans) runs off the Update loop
// and reports back through messages; Update never blocks on network I/O.
// The poller's snapshot channel and the command runner's outcome channel
// are drained by re-arming tea.Cmds, so the UI always holds the newest
// snapshot and command results surface as status messages.
package tui
