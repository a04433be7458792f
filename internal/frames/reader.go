package frames

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

const maxLineSize = 1 << 20

// LineError reports a line that could not be decoded. Reading can continue
// past it.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// Reader reads newline-delimited frames. Blank lines are skipped.
type Reader struct {
	scan *bufio.Scanner
	line int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scan: scan}
}

// Next returns the next frame, or io.EOF once the input is exhausted. A
// malformed line yields a *LineError; the caller may keep calling Next to
// skip past it. Any other error is final.
func (r *Reader) Next() (Frame, error) {
	for r.scan.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scan.Bytes())
		if len(line) == 0 {
			continue
		}
		f, err := Decode(line)
		if err != nil {
			return Frame{}, &LineError{Line: r.line, Err: err}
		}
		return f, nil
	}
	if err := r.scan.Err(); err != nil {
		return Frame{}, fmt.Errorf("read frames: %w", err)
	}
	return Frame{}, io.EOF
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}
