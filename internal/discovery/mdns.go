package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type DSM advertises its web
	// interface under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for station discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultAdminPort is the DSM HTTP port used when the TXT records
	// do not carry one
	DefaultAdminPort = 5000
)

// Scanner handles mDNS discovery of DiskStations on the local network
type Scanner struct {
	// Timeout is the maximum time to wait for responses
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses the local network for DiskStations. It blocks for the
// scanner's timeout (or until ctx is cancelled) and returns everything
// found, deduplicated by hostname.
func (s *Scanner) Scan(ctx context.Context) ([]*Station, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []*Station, 1)

	go func() {
		seen := make(map[string]bool)
		stations := make([]*Station, 0)
		for entry := range entries {
			station := s.parseServiceEntry(entry)
			if station == nil || seen[station.Hostname] {
				continue
			}
			seen[station.Hostname] = true
			stations = append(stations, station)
		}
		done <- stations
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Browse closes the entries channel once the context expires
	<-ctx.Done()
	return <-done, nil
}

// parseServiceEntry converts a zeroconf service entry to a Station.
// Returns nil for services that are not Synology units.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Station {
	if entry.HostName == "" {
		return nil
	}

	// DSM advertises its vendor in the TXT records; anything else on
	// _http._tcp is some other appliance
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	if !strings.Contains(strings.ToLower(metadata["vendor"]), "synology") {
		return nil
	}

	// Prefer IPv4
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := txtPort(metadata, "admin_port")
	if port == 0 {
		port = entry.Port
	}
	if port == 0 {
		port = DefaultAdminPort
	}

	return &Station{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		SecurePort:   txtPort(metadata, "secure_admin_port"),
		Model:        metadata["model"],
		Serial:       metadata["serial"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func txtPort(metadata map[string]string, key string) int {
	port, err := strconv.Atoi(metadata[key])
	if err != nil || port < 1 || port > 65535 {
		return 0
	}
	return port
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan(ctx context.Context) ([]*Station, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.Scan(ctx)
}
