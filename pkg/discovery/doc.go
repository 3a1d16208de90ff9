// Package discovery implements mDNS/DNS-SD discovery of secdgram servers.
//
// Servers advertise the _secdgram._udp service in the local domain. The
// instance name is the server's friendly name. TXT records include:
//   - v:  protocol version (currently "1")
//   - id: PSK identity hint the server presents, if any
//
// Clients browse for all servers or resolve one instance by name to get
// a dialable host:port.
package discovery
