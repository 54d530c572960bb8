package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name           string
		entry          *zeroconf.ServiceEntry
		wantNil        bool
		wantIP         string
		wantPort       int
		wantSecurePort int
		wantModel      string
	}{
		{
			name: "DiskStation with full TXT records",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "DiskStation"},
				HostName:      "DiskStation.local.",
				Port:          5000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.20")},
				Text: []string{
					"vendor=Synology Inc.",
					"model=DS920+",
					"serial=2030SQRX123456",
					"admin_port=5000",
					"secure_admin_port=5001",
				},
			},
			wantIP:         "192.168.1.20",
			wantPort:       5000,
			wantSecurePort: 5001,
			wantModel:      "DS920+",
		},
		{
			name: "admin_port overrides the service port",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "nas"},
				HostName:      "nas.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
				Text:          []string{"vendor=Synology", "admin_port=5555"},
			},
			wantIP:   "10.0.0.5",
			wantPort: 5555,
		},
		{
			name: "no port anywhere falls back to the DSM default",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "nas"},
				HostName:      "nas.local.",
				Port:          0,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.6")},
				Text:          []string{"vendor=Synology"},
			},
			wantIP:   "10.0.0.6",
			wantPort: DefaultAdminPort,
		},
		{
			name: "IPv6 only station",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "nas"},
				HostName:      "nas.local.",
				Port:          5000,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
				Text:          []string{"vendor=Synology"},
			},
			wantIP:   "fe80::1",
			wantPort: 5000,
		},
		{
			name: "non-Synology HTTP service",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "printer"},
				HostName:      "printer.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.30")},
				Text:          []string{"vendor=HP", "path=/"},
			},
			wantNil: true,
		},
		{
			name: "no vendor TXT record",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "router"},
				HostName:      "router.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.1")},
				Text:          []string{"path=/"},
			},
			wantNil: true,
		},
		{
			name: "empty hostname",
			entry: &zeroconf.ServiceEntry{
				HostName: "",
				Port:     5000,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     []string{"vendor=Synology"},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "nas"},
				HostName:      "nas.local.",
				Port:          5000,
				Text:          []string{"vendor=Synology"},
			},
			wantNil: true,
		},
		{
			name: "junk admin_port ignored",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "nas"},
				HostName:      "nas.local.",
				Port:          5000,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.7")},
				Text:          []string{"vendor=Synology", "admin_port=notaport"},
			},
			wantIP:   "10.0.0.7",
			wantPort: 5000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			station := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if station != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", station)
				}
				return
			}

			if station == nil {
				t.Fatal("parseServiceEntry() = nil, want station")
			}
			if station.IP != tt.wantIP {
				t.Errorf("station.IP = %v, want %v", station.IP, tt.wantIP)
			}
			if station.Port != tt.wantPort {
				t.Errorf("station.Port = %v, want %v", station.Port, tt.wantPort)
			}
			if station.SecurePort != tt.wantSecurePort {
				t.Errorf("station.SecurePort = %v, want %v", station.SecurePort, tt.wantSecurePort)
			}
			if station.Model != tt.wantModel {
				t.Errorf("station.Model = %v, want %v", station.Model, tt.wantModel)
			}
			if station.Hostname != tt.entry.HostName {
				t.Errorf("station.Hostname = %v, want %v", station.Hostname, tt.entry.HostName)
			}
			if time.Since(station.DiscoveredAt) > time.Second {
				t.Errorf("station.DiscoveredAt is not recent: %v", station.DiscoveredAt)
			}
		})
	}
}

func TestStationString(t *testing.T) {
	s := &Station{Name: "nas", Model: "DS920+", IP: "192.168.1.20", Port: 5000}
	if got := s.String(); got != "DS920+ nas at 192.168.1.20:5000" {
		t.Errorf("String() = %q", got)
	}

	s.Model = ""
	if got := s.String(); got != "DiskStation nas at 192.168.1.20:5000" {
		t.Errorf("String() without model = %q", got)
	}
}

func TestStationGetMetadata(t *testing.T) {
	s := &Station{Metadata: map[string]string{"serial": "abc"}}
	if s.GetMetadata("serial") != "abc" {
		t.Error("GetMetadata did not return the stored value")
	}
	if s.GetMetadata("missing") != "" {
		t.Error("GetMetadata for a missing key should be empty")
	}

	var empty Station
	if empty.GetMetadata("serial") != "" {
		t.Error("GetMetadata on nil map should be empty")
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}
