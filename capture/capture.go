// Package capture records raw protocol frames to a zstd-compressed JSON
// lines transcript and reads such transcripts back.
package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Direction of a captured frame relative to the client.
const (
	DirIn  = "in"
	DirOut = "out"
)

var ErrClosed = errors.New("capture: recorder closed")

// Entry is one captured frame.
type Entry struct {
	Time    time.Time       `json:"time"`
	Session string          `json:"session"`
	Channel string          `json:"channel"`
	Dir     string          `json:"dir"`
	Frame   json.RawMessage `json:"frame"`
}

// Recorder appends entries to a compressed transcript. It is safe for
// concurrent use; all sessions of a process may share one Recorder.
type Recorder struct {
	mu     sync.Mutex
	zw     *zstd.Encoder
	enc    *json.Encoder
	closed bool
}

// NewRecorder starts a transcript on w. The caller owns w and must close it
// after Close.
func NewRecorder(w io.Writer) (*Recorder, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	return &Recorder{zw: zw, enc: json.NewEncoder(zw)}, nil
}

// Record appends one frame. Frames that are not valid JSON are stored as a
// JSON string so the transcript stays readable.
func (r *Recorder) Record(session, channel, dir string, data []byte) error {
	raw := json.RawMessage(data)
	if !json.Valid(data) {
		quoted, _ := json.Marshal(string(data))
		raw = quoted
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.enc.Encode(Entry{
		Time:    time.Now().UTC(),
		Session: session,
		Channel: channel,
		Dir:     dir,
		Frame:   raw,
	})
}

// Flush pushes buffered entries to the underlying writer.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return r.zw.Flush()
}

// Close finishes the zstd stream.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.zw.Close()
}

// Reader iterates over the entries of a transcript.
type Reader struct {
	zr  *zstd.Decoder
	dec *json.Decoder
}

// NewReader reads a transcript written by a Recorder.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	return &Reader{zr: zr, dec: json.NewDecoder(zr)}, nil
}

// Next returns the next entry, or io.EOF at the end of the transcript.
func (r *Reader) Next() (Entry, error) {
	var e Entry
	if err := r.dec.Decode(&e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Close releases the decoder.
func (r *Reader) Close() {
	r.zr.Close()
}
