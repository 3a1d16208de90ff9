package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogAdapterWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(base)

	event := NewEvent("conn-42", "alice", DirectionOut, CategoryKeepalive)
	event.RemoteAddr = "1.2.3.4:5684"
	event.Keepalive = &KeepaliveEvent{Sequence: 7, BytesWritten: 48}
	adapter.Log(event)

	out := buf.String()
	for _, want := range []string{"conn_id=conn-42", "association=alice", "category=KEEPALIVE", "seq=7", "bytes=48"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogAdapterErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(base)

	event := NewEvent("conn-42", "alice", DirectionNone, CategoryError)
	event.Error = &ErrorEventData{Message: "handshake error"}
	adapter.Log(event)

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("error event not logged at warn level:\n%s", out)
	}

	buf.Reset()
	event.Error.Warning = true
	adapter.Log(event)
	out = buf.String()
	if !strings.Contains(out, "level=DEBUG") {
		t.Errorf("warning event not logged at debug level:\n%s", out)
	}
}
