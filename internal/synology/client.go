package synology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/fveres/dstui/internal/logging"
)

// Well-known API names used by the client
const (
	apiAuth   = "SYNO.API.Auth"
	apiTask   = "SYNO.DownloadStation.Task"
	apiDSInfo = "SYNO.DownloadStation.Info"
)

// apiInfo describes one API entry from the SYNO.API.Info directory
type apiInfo struct {
	Path       string `json:"path"`
	MinVersion int    `json:"minVersion"`
	MaxVersion int    `json:"maxVersion"`
}

// Client provides the typed Download Station operations. Every
// authenticated call goes through the SessionManager so an expired session
// is refreshed transparently.
type Client struct {
	transport *Transport
	creds     Credentials

	// Populated by Connect, read-only afterwards
	session *SessionManager
	apis    map[string]apiInfo
}

// NewClient creates a client for the given server and account. Connect
// must be called before any task operation.
func NewClient(transport *Transport, creds Credentials) *Client {
	return &Client{
		transport: transport,
		creds:     creds,
	}
}

// Session exposes the session manager, for callers that need logout
func (c *Client) Session() *SessionManager {
	return c.session
}

// Connect discovers the server's API directory and performs the first
// login. A server that does not expose the required APIs is reported as
// unavailable rather than malformed: DSM hides APIs while in maintenance.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.discover(ctx); err != nil {
		return err
	}

	auth, ok := c.apis[apiAuth]
	if !ok {
		return &Error{
			Kind:      KindUnavailable,
			Message:   "server does not expose the authentication API",
			Retryable: true,
		}
	}

	c.session = NewSessionManager(c.transport, c.creds, AuthEndpoint{
		Path:    auth.Path,
		Version: auth.MaxVersion,
	})

	_, err := c.session.Authenticate(ctx)
	return err
}

// discover queries SYNO.API.Info for the paths and versions of every API
// the server exposes. This endpoint requires no session.
func (c *Client) discover(ctx context.Context) error {
	params := url.Values{}
	params.Set("api", "SYNO.API.Info")
	params.Set("version", "1")
	params.Set("method", "query")
	params.Set("query", "ALL")

	body, err := c.transport.Get(ctx, "webapi/query.cgi", params)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return NewMalformedError("failed to decode API directory", err)
	}
	if !env.Success {
		code := 0
		if env.Error != nil {
			code = env.Error.Code
		}
		return NewAPIError(code)
	}

	apis := make(map[string]apiInfo)
	if err := json.Unmarshal(env.Data, &apis); err != nil {
		return NewMalformedError("failed to decode API directory entries", err)
	}

	c.apis = apis
	return nil
}

// taskEndpoint resolves the Download Station task API location
func (c *Client) taskEndpoint() (apiInfo, error) {
	info, ok := c.apis[apiTask]
	if !ok {
		return apiInfo{}, &Error{
			Kind:      KindUnavailable,
			Message:   "server does not expose the Download Station task API",
			Retryable: true,
		}
	}
	return info, nil
}

// callTask performs one authenticated request against the task API and
// decodes the envelope. The data payload is returned raw for the caller
// to interpret.
func (c *Client) callTask(ctx context.Context, method string, extra url.Values) (json.RawMessage, error) {
	info, err := c.taskEndpoint()
	if err != nil {
		return nil, err
	}

	var data json.RawMessage
	err = c.session.WithSession(ctx, func(sid string) error {
		params := url.Values{}
		params.Set("api", apiTask)
		params.Set("method", method)
		params.Set("version", strconv.Itoa(info.MaxVersion))
		params.Set("_sid", sid)
		for k, vs := range extra {
			for _, v := range vs {
				params.Add(k, v)
			}
		}

		logging.LogAPICall(apiTask, method, info.Path)

		body, err := c.transport.Get(ctx, "webapi/"+info.Path, params)
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return NewMalformedError(fmt.Sprintf("failed to decode %s response", method), err)
		}
		if !env.Success {
			if env.Error == nil {
				return NewMalformedError(fmt.Sprintf("%s failed without error code", method), nil)
			}
			return NewAPIError(env.Error.Code)
		}

		data = env.Data
		return nil
	})
	return data, err
}

// ListTasks fetches the full task list with transfer statistics and task
// detail. The result is a fresh slice each call; tasks are snapshot values.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	extra := url.Values{}
	extra.Set("additional", "detail,transfer")

	data, err := c.callTask(ctx, "list", extra)
	if err != nil {
		return nil, err
	}

	var list taskListData
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, NewMalformedError("failed to decode task list", err)
	}

	tasks := make([]Task, 0, len(list.Tasks))
	for _, dto := range list.Tasks {
		tasks = append(tasks, dto.toTask())
	}
	return tasks, nil
}

// TaskFiles fetches the file entries of one task for the detail view.
// Non-BT tasks have no file breakdown; the result may be empty.
func (c *Client) TaskFiles(ctx context.Context, id string) ([]TaskFileEntry, error) {
	extra := url.Values{}
	extra.Set("id", id)
	extra.Set("additional", "file")

	data, err := c.callTask(ctx, "getinfo", extra)
	if err != nil {
		return nil, err
	}

	var info taskListData
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, NewMalformedError("failed to decode task info", err)
	}
	if len(info.Tasks) == 0 {
		return nil, NewTaskError(404)
	}

	dto := info.Tasks[0]
	if dto.Additional == nil {
		return nil, nil
	}

	files := make([]TaskFileEntry, 0, len(dto.Additional.File))
	for _, f := range dto.Additional.File {
		files = append(files, TaskFileEntry{
			Path:           f.Filename,
			Size:           f.Size,
			SizeDownloaded: f.SizeDownloaded,
		})
	}
	return files, nil
}

// Pause suspends a task
func (c *Client) Pause(ctx context.Context, id string) error {
	return c.taskAction(ctx, "pause", id)
}

// Resume continues a paused task
func (c *Client) Resume(ctx context.Context, id string) error {
	return c.taskAction(ctx, "resume", id)
}

// Delete removes a task from the server. Downloaded data stays on the NAS.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.taskAction(ctx, "delete", id)
}

// taskAction runs one of the pause/resume/delete methods. These endpoints
// return an array of per-task results; a non-zero error code inside a
// successful envelope still means the action failed for that task.
func (c *Client) taskAction(ctx context.Context, method, id string) error {
	extra := url.Values{}
	extra.Set("id", id)

	data, err := c.callTask(ctx, method, extra)
	if err != nil {
		return err
	}

	var results []taskActionResult
	if err := json.Unmarshal(data, &results); err != nil {
		return NewMalformedError(fmt.Sprintf("failed to decode %s result", method), err)
	}

	for _, r := range results {
		if r.Error != 0 {
			return NewTaskError(r.Error)
		}
	}
	return nil
}

// ServerConfig fetches the Download Station settings for the info overlay
func (c *Client) ServerConfig(ctx context.Context) (*ServerConfig, error) {
	info, ok := c.apis[apiDSInfo]
	if !ok {
		return nil, &Error{
			Kind:      KindUnavailable,
			Message:   "server does not expose the Download Station info API",
			Retryable: true,
		}
	}

	var cfg ServerConfig
	err := c.session.WithSession(ctx, func(sid string) error {
		params := url.Values{}
		params.Set("api", apiDSInfo)
		params.Set("method", "getconfig")
		params.Set("version", strconv.Itoa(info.MaxVersion))
		params.Set("_sid", sid)

		body, err := c.transport.Get(ctx, "webapi/"+info.Path, params)
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return NewMalformedError("failed to decode server config response", err)
		}
		if !env.Success {
			if env.Error == nil {
				return NewMalformedError("getconfig failed without error code", nil)
			}
			return NewAPIError(env.Error.Code)
		}

		if err := json.Unmarshal(env.Data, &cfg); err != nil {
			return NewMalformedError("failed to decode server config", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Logout closes the server-side session
func (c *Client) Logout(ctx context.Context) error {
	if c.session == nil {
		return nil
	}
	return c.session.Logout(ctx)
}
