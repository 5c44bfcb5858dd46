// Package frame implements the JSON frame codec for the hack.chat protocol.
//
// Every frame is a single JSON object carrying a "cmd" discriminator and
// kind-specific fields:
//
//	{"cmd":"join","channel":"programming","nick":"bot#secret"}
//	{"cmd":"chat","nick":"alice","text":"hi","trip":"dIhdzE"}
//
// Payload shapes live in the wire package.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Command kinds. Outgoing: join, chat, ping, invite, stats.
// Incoming: chat, onlineSet, onlineAdd, onlineRemove, info, warn.
const (
	CmdJoin         = "join"
	CmdChat         = "chat"
	CmdPing         = "ping"
	CmdInvite       = "invite"
	CmdStats        = "stats"
	CmdOnlineSet    = "onlineSet"
	CmdOnlineAdd    = "onlineAdd"
	CmdOnlineRemove = "onlineRemove"
	CmdInfo         = "info"
	CmdWarn         = "warn"
)

var (
	ErrMalformed = errors.New("frame: malformed payload")
	ErrNoCommand = errors.New("frame: missing cmd field")
)

// DecodeError reports a frame that could not be decoded. It wraps
// ErrMalformed or ErrNoCommand.
type DecodeError struct {
	Data []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (%d bytes)", e.Err, len(e.Data))
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Frame is one decoded incoming frame.
type Frame struct {
	Cmd string
	Raw []byte // the complete JSON object
}

// Into unmarshals the frame's fields into v.
func (f Frame) Into(v any) error {
	if err := json.Unmarshal(f.Raw, v); err != nil {
		return &DecodeError{Data: f.Raw, Err: fmt.Errorf("%w: %s: %v", ErrMalformed, f.Cmd, err)}
	}
	return nil
}

// Encode serialises a command and its payload into one frame. A nil payload
// produces a bare {"cmd":...} object; otherwise payload must marshal to a
// JSON object whose fields are appended after cmd.
func Encode(cmd string, payload any) ([]byte, error) {
	head := `{"cmd":` + strconv.Quote(cmd)
	if payload == nil {
		return []byte(head + "}"), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("frame: encode %s: %w", cmd, err)
	}
	body := bytes.TrimSpace(buf.Bytes())
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("frame: encode %s: payload is not an object", cmd)
	}

	out := make([]byte, 0, len(head)+len(body)+1)
	out = append(out, head...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	return append(out, body[1:]...), nil
}

// Decode parses one incoming frame and extracts its discriminator.
func Decode(data []byte) (Frame, error) {
	var probe struct {
		Cmd *string `json:"cmd"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Frame{}, &DecodeError{Data: data, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	if probe.Cmd == nil || *probe.Cmd == "" {
		return Frame{}, &DecodeError{Data: data, Err: ErrNoCommand}
	}
	return Frame{Cmd: *probe.Cmd, Raw: data}, nil
}
