package discovery

import (
	"fmt"
	"time"
)

// Station represents a Synology DiskStation found on the local network
type Station struct {
	// Name is the mDNS instance name (e.g., "DiskStation")
	Name string

	// Hostname is the mDNS hostname (e.g., "DiskStation.local.")
	Hostname string

	// IP is the address to reach the station at (IPv4 preferred)
	IP string

	// Port is the DSM admin port (typically 5000)
	Port int

	// SecurePort is the HTTPS admin port (typically 5001), 0 if not advertised
	SecurePort int

	// Model is the hardware model from the TXT records (e.g., "DS920+")
	Model string

	// Serial is the unit serial number from the TXT records, if advertised
	Serial string

	// Metadata contains the remaining mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the station was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the station
func (s *Station) String() string {
	model := s.Model
	if model == "" {
		model = "DiskStation"
	}
	return fmt.Sprintf("%s %s at %s:%d", model, s.Name, s.IP, s.Port)
}

// GetMetadata retrieves a TXT record value by key, or returns empty string if not found
func (s *Station) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
