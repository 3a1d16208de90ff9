// Package echoserver provides a DTLS-PSK echo server for tests.
//
// The server accepts any client presenting the configured pre-shared key
// and echoes every application datagram back to its sender.
package echoserver

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/pion/dtls/v3"
)

// Config configures the echo server.
type Config struct {
	// Key is the pre-shared key all clients must present. Required.
	Key []byte

	// IdentityHint is presented to connecting clients.
	IdentityHint string

	// CipherSuites restricts the accepted PSK suites.
	// Default: TLS_PSK_WITH_AES_128_CCM_8.
	CipherSuites []dtls.CipherSuiteID
}

// Server is a loopback DTLS echo server.
type Server struct {
	listener net.Listener

	mu        sync.Mutex
	conns     []net.Conn
	closed    bool
	lastIdent []byte

	wg sync.WaitGroup
}

// New starts an echo server on an ephemeral loopback port.
func New(config Config) (*Server, error) {
	if len(config.Key) == 0 {
		return nil, fmt.Errorf("key is required")
	}
	if len(config.CipherSuites) == 0 {
		config.CipherSuites = []dtls.CipherSuiteID{dtls.TLS_PSK_WITH_AES_128_CCM_8}
	}

	s := &Server{}

	dtlsConfig := &dtls.Config{
		PSK: func(hint []byte) ([]byte, error) {
			s.mu.Lock()
			s.lastIdent = append([]byte(nil), hint...)
			s.mu.Unlock()
			return config.Key, nil
		},
		PSKIdentityHint: []byte(config.IdentityHint),
		CipherSuites:    config.CipherSuites,
	}

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
	listener, err := dtls.Listen("udp", addr, dtlsConfig)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	return s, nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// LastIdentity returns the PSK identity presented by the most recent
// client.
func (s *Server) LastIdentity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.lastIdent)
}

// Close shuts the server down and disconnects all clients.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	s.listener.Close()
	for _, conn := range conns {
		conn.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.echoLoop(conn)
	}
}

func (s *Server) echoLoop(conn net.Conn) {
	defer s.wg.Done()

	buf := make([]byte, 8192)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				conn.Close()
			}
			return
		}
		if _, err := conn.Write(buf[:n]); err != nil {
			return
		}
	}
}
