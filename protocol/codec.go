// File: protocol/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame decoding: text frames carry JSON, binary frames carry CBOR with the
// same field names.

package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/momentics/hioload-devsupport/api"
)

// wireMessage mirrors the on-the-wire shape. Pointers distinguish absent
// fields from zero values; Version stays untyped so any whole number is
// accepted. "params" is accepted from servers predating "options".
type wireMessage struct {
	Version any            `json:"version" cbor:"version"`
	Target  *string        `json:"target" cbor:"target"`
	Action  *string        `json:"action" cbor:"action"`
	Options map[string]any `json:"options" cbor:"options"`
	Params  map[string]any `json:"params" cbor:"params"`
}

var cborDecoder = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: 16,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// protocolError tags a decode failure with api.ErrCodeProtocol; errors.Is
// still matches the sentinel.
func protocolError(sentinel error, format string, args ...any) error {
	return api.NewError(api.ErrCodeProtocol, "protocol: decode").
		Wrap(fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

// wholeNumber accepts integers of either sign and floats without a
// fractional part, as JSON and CBOR encoders may produce either.
func wholeNumber(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float32:
		return wholeNumber(float64(n))
	}
	return 0, false
}

// Decode parses one frame. Structural failures wrap api.ErrMalformedMessage;
// a well-formed frame with an unsupported version wraps
// api.ErrUnsupportedVersion and still returns the message. Both carry
// api.ErrCodeProtocol.
func Decode(frame []byte, binary bool) (*CommandMessage, error) {
	if len(frame) == 0 || len(frame) > MaxFramePayload {
		return nil, protocolError(api.ErrMalformedMessage, "frame size %d", len(frame))
	}

	var w wireMessage
	var err error
	if binary {
		err = cborDecoder.Unmarshal(frame, &w)
	} else {
		err = json.Unmarshal(frame, &w)
	}
	if err != nil {
		return nil, protocolError(api.ErrMalformedMessage, "%v", err)
	}
	if w.Version == nil || w.Target == nil || w.Action == nil {
		return nil, protocolError(api.ErrMalformedMessage, "missing version, target or action")
	}
	version, ok := wholeNumber(w.Version)
	if !ok {
		return nil, protocolError(api.ErrMalformedMessage, "version %v is not a whole number", w.Version)
	}

	msg := &CommandMessage{
		Version: version,
		Target:  *w.Target,
		Action:  *w.Action,
		Options: w.Options,
	}
	if msg.Options == nil {
		msg.Options = w.Params
	}
	if msg.Options == nil {
		msg.Options = map[string]any{}
	}
	if !Supported(msg.Version) {
		return msg, protocolError(api.ErrUnsupportedVersion, "%d", msg.Version)
	}
	return msg, nil
}

// Encode renders msg as a JSON text frame or a CBOR binary frame.
func Encode(msg *CommandMessage, binary bool) ([]byte, error) {
	w := wireMessage{
		Version: int64(msg.Version),
		Target:  &msg.Target,
		Action:  &msg.Action,
		Options: msg.Options,
	}
	if binary {
		return cbor.Marshal(w)
	}
	return json.Marshal(w)
}
