package secdgram_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/secdgram/secdgram-go/internal/testharness/echoserver"
	"github.com/secdgram/secdgram-go/pkg/assoc"
	"github.com/secdgram/secdgram-go/pkg/engine"
	"github.com/secdgram/secdgram-go/pkg/psk"
	"github.com/secdgram/secdgram-go/pkg/transport"
)

// eventSink collects association events for inspection.
type eventSink struct {
	mu     sync.Mutex
	events []assoc.Event
}

func (s *eventSink) record(ev assoc.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) responses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		if ev.Type == assoc.EventServerResponse {
			out = append(out, string(ev.Plaintext))
		}
	}
	return out
}

func (s *eventSink) hasMessage(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if strings.Contains(ev.Message, substr) {
			return true
		}
	}
	return false
}

// startClient builds a full client stack against the given server address.
func startClient(t *testing.T, name, address string, key []byte, sink *eventSink) *assoc.Association {
	t.Helper()

	provider, err := psk.NewStatic(name, key)
	require.NoError(t, err)

	eng, err := engine.NewPion(engine.PionOptions{Provider: provider})
	require.NoError(t, err)

	udp := transport.NewUDP(transport.UDPConfig{Address: address})

	a, err := assoc.New(assoc.Config{
		Name:              name,
		Transport:         udp,
		Engine:            eng,
		KeepaliveInterval: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	a.OnEvent(sink.record)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, a.Start(ctx))
	require.NoError(t, a.StartHandshake())
	require.NoError(t, udp.Connect(ctx))
	t.Cleanup(a.Close)

	return a
}

// TestE2E_SecureSession drives a complete session against a loopback DTLS
// echo server: handshake, keepalive echo, application send, clean close.
func TestE2E_SecureSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	key := psk.DefaultKey()
	server, err := echoserver.New(echoserver.Config{
		Key:          key,
		IdentityHint: "echo-server",
	})
	require.NoError(t, err)
	defer server.Close()

	sink := &eventSink{}
	client := startClient(t, "integration", server.Addr(), key, sink)

	require.Eventually(t, func() bool {
		return client.Mode() == assoc.ModeEncrypted
	}, 10*time.Second, 20*time.Millisecond, "handshake did not complete")

	require.True(t, sink.hasMessage("encrypted connection established"))
	require.Equal(t, "integration", server.LastIdentity())

	// The first keepalive goes out on establishment and the server echoes
	// it back as a server response.
	wantPing := "I am integration, please, accept our ping 0"
	require.Eventually(t, func() bool {
		for _, resp := range sink.responses() {
			if resp == wantPing {
				return true
			}
		}
		return false
	}, 10*time.Second, 20*time.Millisecond, "ping was not echoed")

	// An application payload is echoed too.
	require.NoError(t, client.Send([]byte("hello over dtls")))
	require.Eventually(t, func() bool {
		for _, resp := range sink.responses() {
			if resp == "hello over dtls" {
				return true
			}
		}
		return false
	}, 10*time.Second, 20*time.Millisecond, "payload was not echoed")

	// The keepalive counter keeps advancing while the session is up.
	require.Eventually(t, func() bool {
		return client.PingCount() >= 2
	}, 10*time.Second, 20*time.Millisecond, "keepalive stopped")

	client.Close()
	require.Equal(t, assoc.ModeClosed, client.Mode())

	select {
	case <-client.Done():
	default:
		t.Fatal("Done() should be closed after Close()")
	}
}

// TestE2E_WrongKey verifies that a client presenting the wrong key never
// reaches the encrypted state.
func TestE2E_WrongKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	server, err := echoserver.New(echoserver.Config{
		Key: psk.DefaultKey(),
	})
	require.NoError(t, err)
	defer server.Close()

	sink := &eventSink{}
	client := startClient(t, "intruder", server.Addr(), []byte{0xde, 0xad, 0xbe, 0xef}, sink)

	require.Never(t, func() bool {
		return client.Mode() == assoc.ModeEncrypted
	}, 3*time.Second, 50*time.Millisecond, "handshake must not complete with a wrong key")
}

// TestE2E_TwoClients runs two concurrent sessions against one server.
func TestE2E_TwoClients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	key := psk.DefaultKey()
	server, err := echoserver.New(echoserver.Config{Key: key})
	require.NoError(t, err)
	defer server.Close()

	for i := 0; i < 2; i++ {
		name := fmt.Sprintf("client-%d", i)
		sink := &eventSink{}
		client := startClient(t, name, server.Addr(), key, sink)

		require.Eventually(t, func() bool {
			return client.Mode() == assoc.ModeEncrypted
		}, 10*time.Second, 20*time.Millisecond, "handshake did not complete for %s", name)

		wantPing := fmt.Sprintf("I am %s, please, accept our ping 0", name)
		require.Eventually(t, func() bool {
			for _, resp := range sink.responses() {
				if resp == wantPing {
					return true
				}
			}
			return false
		}, 10*time.Second, 20*time.Millisecond, "ping was not echoed for %s", name)
	}
}
