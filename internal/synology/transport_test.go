package synology

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestNewTransportRejectsBadAddress(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
	}{
		{"garbage", "://not-a-url"},
		{"bad scheme", "ftp://nas.local:21"},
		{"missing host", "http://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTransport(tt.baseURL, true, 0); err == nil {
				t.Errorf("NewTransport(%q) error = nil, want error", tt.baseURL)
			}
		})
	}
}

func TestTransportAcceptsSelfSignedWhenVerifyDisabled(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer server.Close()

	transport, err := NewTransport(server.URL, false, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}

	body, err := transport.Get(context.Background(), "webapi/query.cgi", url.Values{})
	if err != nil {
		t.Fatalf("Get() error = %v, want nil with verification disabled", err)
	}
	if string(body) != `{"success":true}` {
		t.Errorf("body = %s", body)
	}
}

func TestTransportRejectsSelfSignedWhenVerifyEnabled(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer server.Close()

	transport, err := NewTransport(server.URL, true, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}

	_, err = transport.Get(context.Background(), "webapi/query.cgi", url.Values{})
	if !IsTransportError(err) {
		t.Errorf("Get() error = %v, want transport error for untrusted certificate", err)
	}
}

func TestTransportTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	transport, err := NewTransport(server.URL, true, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}

	_, err = transport.Get(context.Background(), "webapi/query.cgi", url.Values{})
	if !IsTransportError(err) {
		t.Fatalf("Get() error = %v, want transport error", err)
	}
	if !IsRetryable(err) {
		t.Error("timeouts should be retryable")
	}
}

func TestTransportContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	transport, err := NewTransport(server.URL, true, 5*time.Second)
	if err != nil {
		t.Fatalf("NewTransport() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err = transport.Get(ctx, "webapi/query.cgi", url.Values{})
	if err == nil {
		t.Fatal("Get() error = nil, want cancellation error")
	}
}

func TestTransportHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   ErrorKind
	}{
		{"throttled", http.StatusTooManyRequests, KindRateLimited},
		{"internal error", http.StatusInternalServerError, KindUnavailable},
		{"bad gateway", http.StatusBadGateway, KindUnavailable},
		{"forbidden", http.StatusForbidden, KindServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			transport, err := NewTransport(server.URL, true, 5*time.Second)
			if err != nil {
				t.Fatalf("NewTransport() error = %v", err)
			}

			_, err = transport.Get(context.Background(), "webapi/query.cgi", url.Values{})
			if KindOf(err) != tt.kind {
				t.Errorf("error kind = %v, want %v", KindOf(err), tt.kind)
			}
		})
	}
}
