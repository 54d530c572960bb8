// Package discovery finds Synology DiskStations on the local network
// via mDNS. DSM advertises its web interface as an _http._tcp service
// whose TXT records carry the vendor, model and admin ports; the scanner
// filters for Synology units and reports the address and port to connect
// to.
//
// Discovery is best-effort convenience for pre-filling the connection
// form. A station that does not advertise (or a network that blocks
// multicast) simply yields no results; the operator can always type the
// host by hand.
package discovery
