package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Session log files are a plain concatenation of CBOR-encoded events, so
// the encoder must stay deterministic: canonical key order, definite
// lengths, and RFC3339Nano timestamps (handshake flights land sub-second
// apart). The decoder is lenient so files written by newer clients with
// extra event fields still read back.
var (
	sessionEncMode cbor.EncMode
	sessionDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	sessionEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("session log encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	sessionDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("session log decoder mode: %v", err))
	}
}

// EncodeEvent marshals one session event to its integer-keyed CBOR form.
func EncodeEvent(event Event) ([]byte, error) {
	return sessionEncMode.Marshal(event)
}

// DecodeEvent unmarshals one session event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := sessionDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns a streaming encoder appending session events to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return sessionEncMode.NewEncoder(w)
}

// NewDecoder returns a streaming decoder reading session events from r.
// Call Decode until io.EOF to replay a session log file.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return sessionDecMode.NewDecoder(r)
}
