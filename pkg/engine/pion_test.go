package engine

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/secdgram/secdgram-go/pkg/psk"
)

func TestPionPSKCallback(t *testing.T) {
	provider, err := psk.NewStatic("alice", psk.DefaultKey())
	if err != nil {
		t.Fatalf("NewStatic failed: %v", err)
	}

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	eng, err := NewPion(PionOptions{Provider: provider, Logger: logger})
	if err != nil {
		t.Fatalf("NewPion failed: %v", err)
	}

	key, err := eng.pskCallback([]byte("server-hint"))
	if err != nil {
		t.Fatalf("pskCallback failed: %v", err)
	}
	if !bytes.Equal(key, psk.DefaultKey()) {
		t.Errorf("pskCallback key = %x, want %x", key, psk.DefaultKey())
	}

	logged := logBuf.String()
	if !strings.Contains(logged, "providing pre-shared key") {
		t.Errorf("key lookup not logged: %q", logged)
	}
	if !strings.Contains(logged, "alice") {
		t.Errorf("log missing identity: %q", logged)
	}
}

func TestPionPSKCallbackNilLogger(t *testing.T) {
	provider, err := psk.NewStatic("alice", psk.DefaultKey())
	if err != nil {
		t.Fatalf("NewStatic failed: %v", err)
	}
	eng, err := NewPion(PionOptions{Provider: provider})
	if err != nil {
		t.Fatalf("NewPion failed: %v", err)
	}

	key, err := eng.pskCallback(nil)
	if err != nil {
		t.Fatalf("pskCallback failed: %v", err)
	}
	if !bytes.Equal(key, psk.DefaultKey()) {
		t.Errorf("pskCallback key = %x, want %x", key, psk.DefaultKey())
	}
}
