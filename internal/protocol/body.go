package protocol

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

var (
	// ErrBodyTooLarge is returned when a body grows past the configured maximum.
	ErrBodyTooLarge = errors.New("protocol: request body too large")

	// ErrMalformedChunk is returned when the chunked transfer coding is violated.
	ErrMalformedChunk = errors.New("protocol: malformed chunked encoding")
)

// maxChunkLine bounds chunk-size and trailer lines.
const maxChunkLine = 4096

// BodyReader frames request bodies against a RequestBuffer. Whenever the pending bytes run out it
// calls fill, which must append more bytes from the connection (or return an error).
type BodyReader struct {
	buf  *RequestBuffer
	fill func() error
	max  int64
}

// NewBodyReader inits a body reader. A max of zero or less disables the size check.
func NewBodyReader(buf *RequestBuffer, fill func() error, max int64) *BodyReader {
	return &BodyReader{buf: buf, fill: fill, max: max}
}

// ReadLength moves exactly n body bytes into dst.
func (r *BodyReader) ReadLength(dst io.Writer, n int64) error {
	if r.max > 0 && n > r.max {
		return errors.Wrapf(ErrBodyTooLarge, "declared length %d exceeds %d", n, r.max)
	}

	return r.copy(dst, n)
}

func (r *BodyReader) copy(dst io.Writer, n int64) error {
	for n > 0 {
		if r.buf.Len() == 0 {
			if err := r.more(); err != nil {
				return err
			}
		}

		m, err := r.buf.Migrate(dst, n)
		if err != nil {
			return err
		}

		n -= m
	}

	return nil
}

// ReadChunked decodes a chunked body into dst and returns the trailer fields, if any.
func (r *BodyReader) ReadChunked(dst io.Writer) (http.Header, error) {
	var total int64

	for {
		line, err := r.line()
		if err != nil {
			return nil, err
		}

		sizeText, _, _ := strings.Cut(line, ";") // chunk extensions are ignored
		sizeText = strings.TrimSpace(sizeText)
		if sizeText == "" || strings.TrimLeft(sizeText, "0123456789abcdefABCDEF") != "" {
			return nil, errors.Wrapf(ErrMalformedChunk, "chunk size %q", line)
		}

		size, err := strconv.ParseInt(sizeText, 16, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedChunk, "chunk size %q", line)
		}

		if size == 0 {
			return r.trailers()
		}

		total += size
		if r.max > 0 && total > r.max {
			return nil, errors.Wrapf(ErrBodyTooLarge, "chunked body exceeds %d", r.max)
		}

		if err := r.copy(dst, size); err != nil {
			return nil, err
		}

		if line, err = r.line(); err != nil {
			return nil, err
		} else if line != "" {
			return nil, errors.Wrapf(ErrMalformedChunk, "missing CRLF after chunk data, got %q", line)
		}
	}
}

func (r *BodyReader) trailers() (http.Header, error) {
	var trailer http.Header

	for {
		line, err := r.line()
		if err != nil {
			return nil, err
		}

		if line == "" {
			return trailer, nil
		}

		if trailer == nil {
			trailer = http.Header{}
		}

		if err := parseField(trailer, line); err != nil {
			return nil, errors.Wrap(ErrMalformedChunk, err.Error())
		}
	}
}

// line consumes one LF terminated line and returns it without its line break.
func (r *BodyReader) line() (string, error) {
	for {
		text := r.buf.Text()
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			r.buf.Advance(utf8.RuneCountInString(text[:i+1]))
			return strings.TrimSuffix(text[:i], "\r"), nil
		}

		if len(text) > maxChunkLine {
			return "", errors.Wrapf(ErrMalformedChunk, "line longer than %d bytes", maxChunkLine)
		}

		if err := r.more(); err != nil {
			return "", err
		}
	}
}

func (r *BodyReader) more() error {
	before := r.buf.Len()
	if err := r.fill(); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}

		return err
	}

	if r.buf.Len() == before {
		return errors.Wrap(io.ErrNoProgress, "fill appended no bytes")
	}

	return nil
}
