package synology

import (
	"encoding/json"
	"strconv"
	"time"
)

// TaskStatus is the closed set of task states the UI distinguishes.
// The server reports many more fine-grained states; mapStatusLabel folds
// them into this set.
type TaskStatus int

const (
	StatusWaiting TaskStatus = iota
	StatusDownloading
	StatusPaused
	StatusFinished
	StatusError
	StatusSeeding
)

// String returns the display label for the status
func (s TaskStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusDownloading:
		return "downloading"
	case StatusPaused:
		return "paused"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	case StatusSeeding:
		return "seeding"
	default:
		return "unknown"
	}
}

// Task is an immutable snapshot of one download job. A Task is never
// patched in place; each poll cycle produces a fresh value.
type Task struct {
	ID             string
	Name           string
	Status         TaskStatus
	StatusDetail   string // raw server-side status label, e.g. "hash_checking"
	SizeTotal      int64
	SizeDownloaded int64
	SizeUploaded   int64
	DownloadRate   int64 // bytes/second
	UploadRate     int64 // bytes/second
	ErrorDetail    string // populated when Status == StatusError

	// From the detail block: provenance and timing
	Username       string
	Destination    string
	URI            string
	CreatedAt      int64 // Unix seconds, 0 when the server omits it
	CompletedAt    int64 // Unix seconds, 0 while unfinished
	WaitingSeconds int64
}

// Progress returns the downloaded fraction in [0,1]
func (t Task) Progress() float64 {
	if t.SizeTotal <= 0 {
		return 0
	}
	f := float64(t.SizeDownloaded) / float64(t.SizeTotal)
	if f > 1 {
		f = 1
	}
	return f
}

// TaskFileEntry is one file inside a task, fetched on demand for the
// detail view.
type TaskFileEntry struct {
	Path           string
	Size           int64
	SizeDownloaded int64
}

// Fraction returns the downloaded fraction of this file in [0,1]
func (f TaskFileEntry) Fraction() float64 {
	if f.Size <= 0 {
		return 0
	}
	frac := float64(f.SizeDownloaded) / float64(f.Size)
	if frac > 1 {
		frac = 1
	}
	return frac
}

// Snapshot is the unit exchanged between the poller and the UI. It is
// always replaced wholesale so the UI never sees task fields sourced from
// two different poll cycles.
type Snapshot struct {
	Tasks     []Task
	FetchedAt time.Time
	FetchErr  error
}

// ServerConfig holds the Download Station settings returned by getconfig,
// shown in the server info overlay.
type ServerConfig struct {
	BTMaxDownload      int64  `json:"bt_max_download"`
	BTMaxUpload        int64  `json:"bt_max_upload"`
	HTTPMaxDownload    int64  `json:"http_max_download"`
	FTPMaxDownload     int64  `json:"ftp_max_download"`
	NZBMaxDownload     int64  `json:"nzb_max_download"`
	EMuleEnabled       bool   `json:"emule_enabled"`
	EMuleMaxDownload   int64  `json:"emule_max_download"`
	EMuleMaxUpload     int64  `json:"emule_max_upload"`
	UnzipEnabled       bool   `json:"unzip_service_enabled"`
	DefaultDestination string `json:"default_destination"`
}

// --- wire types ---
//
// The envelope and DTOs below mirror the Web API responses. Unknown fields
// are ignored by encoding/json, which is exactly the forward-compatibility
// the protocol requires.

// envelope is the standard {success, data|error} response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code int `json:"code"`
}

type authData struct {
	SID string `json:"sid"`
}

type taskListData struct {
	Total  int       `json:"total"`
	Offset int       `json:"offset"`
	Tasks  []taskDTO `json:"tasks"`
}

type taskDTO struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Size       int64          `json:"size"`
	Status     statusValue    `json:"status"`
	Username   string         `json:"username"`
	Additional *additionalDTO `json:"additional"`
}

type additionalDTO struct {
	Detail   *detailDTO   `json:"detail"`
	Transfer *transferDTO `json:"transfer"`
	File     []fileDTO    `json:"file"`
}

type detailDTO struct {
	Destination    string `json:"destination"`
	URI            string `json:"uri"`
	CreateTime     int64  `json:"create_time"`
	CompletedTime  int64  `json:"completed_time"`
	WaitingSeconds int64  `json:"waiting_seconds"`
}

type transferDTO struct {
	SizeDownloaded int64 `json:"size_downloaded"`
	SizeUploaded   int64 `json:"size_uploaded"`
	SpeedDownload  int64 `json:"speed_download"`
	SpeedUpload    int64 `json:"speed_upload"`
}

type fileDTO struct {
	Filename       string `json:"filename"`
	Size           int64  `json:"size"`
	SizeDownloaded int64  `json:"size_downloaded"`
}

// taskActionResult is one element of the array an action endpoint returns
type taskActionResult struct {
	ID    string `json:"id"`
	Error int    `json:"error"`
}

// statusValue absorbs the API's habit of sending status as either a
// string label or a numeric code depending on firmware version.
type statusValue struct {
	label string
}

func (s *statusValue) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		s.label = asString
		return nil
	}
	var asNumber int
	if err := json.Unmarshal(data, &asNumber); err == nil {
		s.label = statusCodeLabel(asNumber)
		return nil
	}
	// Unexpected shape: leave the label empty rather than failing the
	// whole task list decode.
	s.label = ""
	return nil
}

// statusCodeLabel translates the numeric status codes from the 2014 API
// documentation. Codes >= 101 are error conditions.
func statusCodeLabel(code int) string {
	switch code {
	case 1:
		return "waiting"
	case 2:
		return "downloading"
	case 3:
		return "paused"
	case 4:
		return "finishing"
	case 5:
		return "finished"
	case 6:
		return "hash_checking"
	case 7:
		return "preseeding"
	case 8:
		return "seeding"
	case 9:
		return "filehost_waiting"
	case 10:
		return "extracting"
	case 11:
		return "preprocessing"
	case 12:
		return "preprocesspass"
	case 13:
		return "downloaded"
	case 14:
		return "postprocessing"
	case 15:
		return "captcha_needed"
	case 101:
		return "error"
	case 102:
		return "broken_link"
	case 103:
		return "dest_not_exists"
	case 104:
		return "dest_deny"
	case 105:
		return "disk_full"
	case 106:
		return "quota_reached"
	case 107:
		return "timeout"
	case 114:
		return "file_does_not_exist"
	case 123:
		return "invalid_torrent"
	case 125:
		return "try_it_later"
	default:
		if code >= 100 {
			return "error_" + strconv.Itoa(code)
		}
		return "unknown_" + strconv.Itoa(code)
	}
}

// mapStatusLabel folds a raw server status label into the closed TaskStatus
// set. Unknown error-class labels become StatusError, everything else
// unknown becomes StatusWaiting.
func mapStatusLabel(label string) TaskStatus {
	switch label {
	case "waiting", "filehost_waiting", "captcha_needed":
		return StatusWaiting
	case "downloading", "finishing", "hash_checking", "extracting",
		"preprocessing", "preprocesspass", "postprocessing":
		return StatusDownloading
	case "paused":
		return StatusPaused
	case "finished", "downloaded":
		return StatusFinished
	case "seeding", "preseeding":
		return StatusSeeding
	default:
		if isErrorLabel(label) {
			return StatusError
		}
		return StatusWaiting
	}
}

func isErrorLabel(label string) bool {
	switch label {
	case "error", "broken_link", "dest_not_exists", "dest_deny", "disk_full",
		"quota_reached", "timeout", "file_does_not_exist", "invalid_torrent",
		"try_it_later":
		return true
	}
	// Synthetic labels from unknown numeric error codes
	return len(label) > 6 && label[:6] == "error_"
}

// toTask converts a wire DTO into a domain Task
func (d taskDTO) toTask() Task {
	t := Task{
		ID:           d.ID,
		Name:         d.Title,
		Status:       mapStatusLabel(d.Status.label),
		StatusDetail: d.Status.label,
		SizeTotal:    d.Size,
		Username:     d.Username,
	}
	if t.Status == StatusError {
		t.ErrorDetail = d.Status.label
	}
	if d.Additional != nil && d.Additional.Transfer != nil {
		tr := d.Additional.Transfer
		t.SizeDownloaded = tr.SizeDownloaded
		t.SizeUploaded = tr.SizeUploaded
		t.DownloadRate = tr.SpeedDownload
		t.UploadRate = tr.SpeedUpload
	}
	if d.Additional != nil && d.Additional.Detail != nil {
		de := d.Additional.Detail
		t.Destination = de.Destination
		t.URI = de.URI
		t.CreatedAt = de.CreateTime
		t.CompletedAt = de.CompletedTime
		t.WaitingSeconds = de.WaitingSeconds
	}
	return t
}
