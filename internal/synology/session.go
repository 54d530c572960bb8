package synology

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fveres/dstui/internal/logging"
)

// sessionName is the Web API session namespace for Download Station
const sessionName = "DownloadStation"

// Credentials identify the DSM account. They live only inside the
// SessionManager for the lifetime of the process and are never logged.
type Credentials struct {
	Username string
	Password string
}

// SessionToken is the opaque credential the server issues on login. It is
// exclusively owned by the SessionManager and re-acquired transparently
// when the server reports it expired.
type SessionToken struct {
	Value    string
	IssuedAt time.Time
}

// AuthEndpoint is the resolved location of the SYNO.API.Auth API,
// discovered via SYNO.API.Info before the first login.
type AuthEndpoint struct {
	Path    string // e.g. "auth.cgi"
	Version int    // maximum supported version
}

// SessionManager owns the single current session token. Concurrent callers
// that observe an expired token serialize on one re-login: the refresh
// section is guarded by a mutex and a generation counter, so late arrivals
// reuse the token the first caller obtained instead of issuing duplicate
// logins.
type SessionManager struct {
	transport *Transport
	creds     Credentials
	endpoint  AuthEndpoint

	mu    sync.Mutex
	token SessionToken
	gen   uint64 // bumped on every successful refresh
}

// NewSessionManager creates a session manager for the given account.
func NewSessionManager(transport *Transport, creds Credentials, endpoint AuthEndpoint) *SessionManager {
	return &SessionManager{
		transport: transport,
		creds:     creds,
		endpoint:  endpoint,
	}
}

// Authenticate performs a login and stores the resulting token.
func (s *SessionManager) Authenticate(ctx context.Context) (SessionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.login(ctx)
	if err != nil {
		return SessionToken{}, err
	}
	s.token = token
	s.gen++
	return token, nil
}

// WithSession executes fn with a valid session token. If fn reports the
// session expired, the manager re-authenticates exactly once and retries
// fn; any further failure is surfaced as-is.
func (s *SessionManager) WithSession(ctx context.Context, fn func(sid string) error) error {
	sid, gen, err := s.currentToken(ctx)
	if err != nil {
		return err
	}

	err = fn(sid)
	if err == nil || !IsAuthExpired(err) {
		return err
	}

	sid, err = s.refresh(ctx, gen)
	if err != nil {
		return err
	}
	return fn(sid)
}

// currentToken returns the held token, logging in first if none exists yet.
// The returned generation lets refresh() detect whether another caller
// already replaced the token this caller saw.
func (s *SessionManager) currentToken(ctx context.Context) (string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Value != "" {
		return s.token.Value, s.gen, nil
	}

	token, err := s.login(ctx)
	if err != nil {
		return "", 0, err
	}
	s.token = token
	s.gen++
	return token.Value, s.gen, nil
}

// refresh re-authenticates after a caller observed token generation
// observedGen expire. Callers that lost the race to a concurrent refresh
// get the fresh token without a second login.
func (s *SessionManager) refresh(ctx context.Context, observedGen uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != observedGen && s.token.Value != "" {
		// Someone else already refreshed; reuse their token.
		return s.token.Value, nil
	}

	s.token = SessionToken{}
	token, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	s.gen++
	return token.Value, nil
}

// login performs the actual SYNO.API.Auth login call. Callers must hold mu;
// keeping the lock across the network call is what serializes concurrent
// refresh attempts.
func (s *SessionManager) login(ctx context.Context) (SessionToken, error) {
	params := url.Values{}
	params.Set("api", "SYNO.API.Auth")
	params.Set("method", "login")
	params.Set("version", strconv.Itoa(s.endpoint.Version))
	params.Set("account", s.creds.Username)
	params.Set("passwd", s.creds.Password)
	params.Set("session", sessionName)
	params.Set("format", "sid")

	body, err := s.transport.Get(ctx, "webapi/"+s.endpoint.Path, params)
	if err != nil {
		return SessionToken{}, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return SessionToken{}, NewMalformedError("failed to decode login response", err)
	}

	if !env.Success {
		if env.Error == nil {
			return SessionToken{}, NewMalformedError("login failed without error code", nil)
		}
		return SessionToken{}, NewAuthError(env.Error.Code)
	}

	var data authData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.SID == "" {
		return SessionToken{}, NewMalformedError("login response missing session id", err)
	}

	logging.Info("session established", zap.String("account", s.creds.Username))

	return SessionToken{Value: data.SID, IssuedAt: time.Now()}, nil
}

// Logout invalidates the server-side session. Best effort: the caller is
// quitting either way.
func (s *SessionManager) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.token = SessionToken{}
	s.mu.Unlock()

	if token.Value == "" {
		return nil
	}

	params := url.Values{}
	params.Set("api", "SYNO.API.Auth")
	params.Set("method", "logout")
	params.Set("version", strconv.Itoa(s.endpoint.Version))
	params.Set("session", sessionName)
	params.Set("_sid", token.Value)

	body, err := s.transport.Get(ctx, "webapi/"+s.endpoint.Path, params)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return NewMalformedError("failed to decode logout response", err)
	}
	if !env.Success {
		code := 0
		if env.Error != nil {
			code = env.Error.Code
		}
		return NewAPIError(code)
	}

	logging.Info("session closed")
	return nil
}
