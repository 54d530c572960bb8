package tui

import (
	"strings"
	"testing"

	"github.com/fveres/dstui/internal/synology"
)

func TestGeneralTabShowsOriginAndTimes(t *testing.T) {
	m := NewDetailModel(synology.Task{
		ID:          "dbid_1",
		Name:        "distro.iso",
		Status:      synology.StatusFinished,
		SizeTotal:   1024,
		Username:    "operator",
		Destination: "downloads",
		URI:         "magnet:?xt=urn:btih:abc",
		CreatedAt:   1271651654,
		CompletedAt: 1271655254,
	})
	m.Width = 100

	out := m.renderGeneralTab()
	for _, want := range []string{
		"downloads",
		"operator",
		"magnet:?xt=urn:btih:abc",
		"2010-04-19 04:34:14",
		"2010-04-19 05:34:14",
		"1h",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("general tab missing %q:\n%s", want, out)
		}
	}
}

func TestGeneralTabWaitingTask(t *testing.T) {
	m := NewDetailModel(synology.Task{
		ID:             "dbid_2",
		Name:           "queued.torrent",
		Status:         synology.StatusWaiting,
		WaitingSeconds: 130,
	})
	m.Width = 80

	out := m.renderGeneralTab()
	if !strings.Contains(out, "2m 10s") {
		t.Errorf("estimated wait not rendered:\n%s", out)
	}
	// Timestamps the server never set render as "-"
	if !strings.Contains(out, "-") {
		t.Error("unset timestamps not rendered as -")
	}
}
