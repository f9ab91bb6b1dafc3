// Package protocol implements the connection level framing of HTTP/1.x requests: an accumulating
// request buffer, disk spillover for large bodies, head and body framing and the wire response writer.
package protocol

import (
	"io"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/charmap"
)

// ErrAdvanceOutOfRange is the panic value when a caller advances past the buffered bytes.
var ErrAdvanceOutOfRange = errors.New("protocol: advance out of range")

// RequestBuffer accumulates the inbound bytes of a single connection. Bytes before the cursor have
// been consumed by the framing logic, bytes after it are pending. It is owned by one connection and
// not safe for concurrent use.
type RequestBuffer struct {
	data []byte
	pos  int

	// text caches the ISO-8859-1 decoding of data[pos:], nil when stale.
	text *string
}

// NewRequestBuffer returns an empty buffer.
func NewRequestBuffer() *RequestBuffer {
	return &RequestBuffer{}
}

// NewRequestBufferFrom returns a buffer seeded with a copy of p.
func NewRequestBufferFrom(p []byte) *RequestBuffer {
	return &RequestBuffer{data: append([]byte(nil), p...)}
}

// Len returns the number of pending bytes.
func (b *RequestBuffer) Len() int { return len(b.data) - b.pos }

// Bytes returns the pending bytes. The slice is only valid until the next mutation.
func (b *RequestBuffer) Bytes() []byte { return b.data[b.pos:] }

// Append adds p at the end of the buffer, the cursor stays where it is.
func (b *RequestBuffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	// reclaim the consumed prefix instead of growing forever on long-lived connections
	if b.pos > 0 && b.pos == len(b.data) {
		b.data, b.pos = b.data[:0], 0
	}

	b.data = append(b.data, p...)
	b.text = nil
}

// Text returns the pending bytes decoded as ISO-8859-1. Every byte maps to exactly one character so
// character offsets in the result equal byte offsets in the buffer.
func (b *RequestBuffer) Text() string {
	if b.text != nil {
		return *b.text
	}

	s := decodeLatin1(b.data[b.pos:])
	b.text = &s

	return s
}

// Advance consumes exactly n pending bytes. Advancing by more than Len() is a framing bug in the
// caller and panics with ErrAdvanceOutOfRange.
func (b *RequestBuffer) Advance(n int) {
	if n < 0 || n > b.Len() {
		panic(errors.Wrapf(ErrAdvanceOutOfRange, "advance %d with %d pending", n, b.Len()))
	}

	consumed := b.data[b.pos : b.pos+n]
	b.pos += n

	if b.text == nil {
		return
	}

	if isASCII(consumed) {
		s := (*b.text)[n:]
		b.text = &s

		return
	}

	b.text = nil
}

// Migrate writes up to max pending bytes into w and consumes them. It returns the number of bytes
// written and 0 when nothing is pending; it never waits for more input.
func (b *RequestBuffer) Migrate(w io.Writer, max int64) (int64, error) {
	avail := int64(b.Len())
	if max < avail {
		avail = max
	}

	if avail <= 0 {
		return 0, nil
	}

	n, err := w.Write(b.data[b.pos : b.pos+int(avail)])
	b.pos += n
	b.text = nil

	if err != nil {
		return int64(n), errors.Wrap(err, "migrate buffered bytes")
	}

	return int64(n), nil
}

// Next returns a new buffer that owns a copy of the pending bytes, used to hand pipelined data to
// the next request on the same connection. When nothing is pending the result is empty.
func (b *RequestBuffer) Next() *RequestBuffer {
	if b.Len() == 0 {
		return NewRequestBuffer()
	}

	return NewRequestBufferFrom(b.data[b.pos:])
}

// Release drops the underlying storage.
func (b *RequestBuffer) Release() {
	b.data, b.pos, b.text = nil, 0, nil
}

func decodeLatin1(p []byte) string {
	if isASCII(p) {
		return string(p)
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(p)
	if err != nil {
		// ISO-8859-1 maps all 256 byte values, the decoder cannot fail on input
		panic(errors.Wrap(err, "protocol: decode latin1"))
	}

	return string(out)
}

func isASCII(p []byte) bool {
	for _, c := range p {
		if c >= utf8.RuneSelf {
			return false
		}
	}

	return true
}
