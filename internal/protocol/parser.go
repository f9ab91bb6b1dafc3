package protocol

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/http/httpguts"
)

var (
	// ErrMalformedHead is returned when the request line or a header field cannot be parsed.
	ErrMalformedHead = errors.New("protocol: malformed request head")

	// ErrHeadTooLarge is returned when no complete head arrived within the configured size.
	ErrHeadTooLarge = errors.New("protocol: request head too large")
)

// Head is the framed request line and header section of a request.
type Head struct {
	Method string
	Target string
	Proto  string
	Major  int
	Minor  int
	Header http.Header
}

// ParseHead frames a request head from the pending bytes of buf. It reports false when the head
// is not complete yet; the caller appends more bytes and calls again. On success the head has been
// consumed from buf and the cursor sits on the first body byte (or the next pipelined request).
func ParseHead(buf *RequestBuffer, maxSize int) (*Head, bool, error) {
	text := buf.Text()

	// RFC 9112 2.2: a server SHOULD ignore at least one empty line received prior to the request-line.
	skip := 0
	for skip < len(text) && (text[skip] == '\r' || text[skip] == '\n') {
		skip++
	}

	end, sepLen := headEnd(text[skip:])
	if end < 0 {
		if maxSize > 0 && len(text)-skip > maxSize {
			return nil, false, errors.Wrapf(ErrHeadTooLarge, "%d bytes without end of head", len(text)-skip)
		}

		if skip > 0 {
			buf.Advance(skip) // line breaks are ASCII, one byte per character
		}

		return nil, false, nil
	}

	if maxSize > 0 && end > maxSize {
		return nil, false, errors.Wrapf(ErrHeadTooLarge, "head of %d bytes", end)
	}

	head, err := parseHead(text[skip : skip+end])
	if err != nil {
		return nil, false, err
	}

	buf.Advance(utf8.RuneCountInString(text[:skip+end+sepLen]))

	return head, true, nil
}

// headEnd returns the offset of the blank line that terminates the head and the separator length.
func headEnd(s string) (int, int) {
	crlf := strings.Index(s, "\r\n\r\n")
	lf := strings.Index(s, "\n\n")

	switch {
	case crlf < 0 && lf < 0:
		return -1, 0
	case lf < 0 || (crlf >= 0 && crlf < lf):
		return crlf, 4
	default:
		return lf, 2
	}
}

func parseHead(raw string) (*Head, error) {
	lines := strings.Split(raw, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	method, rest, ok1 := strings.Cut(lines[0], " ")
	target, proto, ok2 := strings.Cut(rest, " ")
	if !ok1 || !ok2 || method == "" || target == "" || !httpguts.ValidHeaderFieldName(method) {
		return nil, errors.Wrapf(ErrMalformedHead, "request line %q", lines[0])
	}

	major, minor, ok := http.ParseHTTPVersion(proto)
	if !ok || major != 1 {
		return nil, errors.Wrapf(ErrMalformedHead, "unsupported protocol %q", proto)
	}

	head := &Head{
		Method: method,
		Target: target,
		Proto:  proto,
		Major:  major,
		Minor:  minor,
		Header: make(http.Header, len(lines)-1),
	}

	for _, line := range lines[1:] {
		if err := parseField(head.Header, line); err != nil {
			return nil, err
		}
	}

	return head, nil
}

// parseField adds a single "name: value" line to h.
func parseField(h http.Header, line string) error {
	// obsolete line folding is rejected (RFC 9112 5.2)
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return errors.Wrapf(ErrMalformedHead, "header line %q", line)
	}

	name, value, ok := strings.Cut(line, ":")
	if !ok || !httpguts.ValidHeaderFieldName(name) {
		return errors.Wrapf(ErrMalformedHead, "header field name in %q", line)
	}

	value = strings.Trim(value, " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return errors.Wrapf(ErrMalformedHead, "header field value for %q", name)
	}

	h.Add(name, value)

	return nil
}

// ContentLength returns the declared body length or -1 when absent.
func (h *Head) ContentLength() (int64, error) {
	vals := h.Header.Values("Content-Length")
	if len(vals) == 0 {
		return -1, nil
	}

	text := strings.TrimSpace(vals[0])
	if text == "" || strings.TrimLeft(text, "0123456789") != "" {
		return 0, errors.Wrapf(ErrMalformedHead, "content length %q", vals[0])
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedHead, "content length %q", vals[0])
	}

	for _, v := range vals[1:] {
		if strings.TrimSpace(v) != strings.TrimSpace(vals[0]) {
			return 0, errors.Wrapf(ErrMalformedHead, "conflicting content lengths %q", vals)
		}
	}

	return n, nil
}

// Chunked reports whether the body uses the chunked transfer coding.
func (h *Head) Chunked() bool {
	return httpguts.HeaderValuesContainsToken(h.Header["Transfer-Encoding"], "chunked")
}

// KeepAlive reports whether the client allows the connection to be reused after this request.
func (h *Head) KeepAlive() bool {
	conn := h.Header["Connection"]
	if httpguts.HeaderValuesContainsToken(conn, "close") {
		return false
	}

	if h.Minor == 0 {
		return httpguts.HeaderValuesContainsToken(conn, "keep-alive")
	}

	return true
}

// ExpectContinue reports whether the client waits for an interim 100 response before sending the body.
func (h *Head) ExpectContinue() bool {
	return h.Minor >= 1 && strings.EqualFold(h.Header.Get("Expect"), "100-continue")
}
