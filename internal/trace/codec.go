// internal/trace/codec.go
package trace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/scrolllab/api/schemas"
)

// maxLineBytes bounds a single trace line.
const maxLineBytes = 64 * 1024

// LineError reports a malformed trace line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("trace line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// ErrUnknownType is wrapped when a line names an unsupported pointer type.
var ErrUnknownType = errors.New("unknown pointer type")

// ParseLine decodes a single JSON pointer event. Blank and comment lines
// return ok=false with no error.
func ParseLine(line []byte) (ev schemas.PointerEvent, ok bool, err error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] == '#' {
		return ev, false, nil
	}
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return ev, false, err
	}
	if !ev.Type.Valid() {
		return ev, false, fmt.Errorf("%w %q", ErrUnknownType, ev.Type)
	}
	return ev, true, nil
}

// Decoder reads pointer events from a JSON-lines stream.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Decoder{scanner: s}
}

// Next returns the next event, or io.EOF when the stream is exhausted.
func (d *Decoder) Next() (schemas.PointerEvent, error) {
	for d.scanner.Scan() {
		d.line++
		ev, ok, err := ParseLine(d.scanner.Bytes())
		if err != nil {
			return schemas.PointerEvent{}, &LineError{Line: d.line, Err: err}
		}
		if ok {
			return ev, nil
		}
	}
	if err := d.scanner.Err(); err != nil {
		return schemas.PointerEvent{}, fmt.Errorf("failed to read trace: %w", err)
	}
	return schemas.PointerEvent{}, io.EOF
}

// ReadAll decodes every event in r.
func ReadAll(r io.Reader) ([]schemas.PointerEvent, error) {
	d := NewDecoder(r)
	var out []schemas.PointerEvent
	for {
		ev, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

// Encoder writes pointer events as JSON lines.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder returns an encoder writing to w. Call Flush when done.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes one event.
func (e *Encoder) Encode(ev schemas.PointerEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode pointer event: %w", err)
	}
	if _, err := e.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write pointer event: %w", err)
	}
	return nil
}

// Flush writes any buffered output.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// WriteAll encodes events and flushes.
func WriteAll(w io.Writer, events []schemas.PointerEvent) error {
	enc := NewEncoder(w)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return enc.Flush()
}
