package input

import (
	"bufio"
	"io"

	"github.com/ipk24chat/client/internal/wire"
)

// LineReader reads newline-delimited lines from an underlying reader,
// growing an internal wire.Buffer geometrically rather than allocating a
// fresh slice per line.
type LineReader struct {
	r   *bufio.Reader
	buf *wire.Buffer
}

// NewLineReader wraps r (typically os.Stdin).
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r), buf: wire.NewBuffer()}
}

// ReadLine reads until '\n', returning the line with any trailing '\r\n'
// or '\n' stripped. eof is true once the underlying reader is exhausted;
// a final partial line (no trailing newline, e.g. after Ctrl-D) is still
// returned with eof=true. Ctrl-C is not a data byte in canonical terminal
// mode and is instead delivered as SIGINT, handled by the runtime's
// signal handler rather than here.
func (lr *LineReader) ReadLine() (line string, eof bool) {
	lr.buf.Reset()
	for {
		b, err := lr.r.ReadByte()
		if err != nil {
			return trimEOL(lr.buf.Bytes()), true
		}
		if b == '\n' {
			return trimEOL(lr.buf.Bytes()), false
		}
		lr.buf.Grow(1)
		lr.buf.Append(b)
	}
}

func trimEOL(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return string(b)
}
