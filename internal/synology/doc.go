// Package synology implements a client for the Synology Download Station
// Web API.
//
// The package is split into three layers:
//
//   - Transport issues raw HTTP(S) requests. It can be configured to skip
//     certificate verification, since most DiskStations ship with a
//     self-signed certificate. It holds no session state and never retries.
//   - SessionManager owns the session token. It logs in, injects the token
//     into authenticated calls, and transparently re-authenticates exactly
//     once when the server reports the session expired. Concurrent callers
//     observing the same expiry serialize on a single re-login.
//   - Client provides the typed operations: ListTasks, TaskFiles, Pause,
//     Resume, Delete, ServerConfig. It decodes the standard response
//     envelope and maps the server's numeric error codes onto the closed
//     ErrorKind set.
//
// # Protocol
//
// Every response uses the envelope {success, data | error:{code}}. The API
// is only partially documented and varies across DSM releases, so the
// decoder ignores unknown fields, accepts task status as either a string
// or a numeric code, and maps unknown error codes to KindServerError
// instead of failing.
//
// API paths are not hardcoded: Connect first queries SYNO.API.Info for the
// path and version of each API the server exposes, then logs in via the
// discovered SYNO.API.Auth endpoint.
package synology
