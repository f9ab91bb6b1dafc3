package protocol

import (
	"bufio"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrContentLength is returned when a handler writes more or less than its declared Content-Length.
var ErrContentLength = errors.New("protocol: body does not match Content-Length")

// ResponseWriter serializes a single response onto a connection. The status line and header are
// committed by the first WriteHeader, Write or Flush. Without a Content-Length the body is sent
// with the chunked transfer coding (HTTP/1.1) or delimited by closing the connection (HTTP/1.0).
type ResponseWriter struct {
	w      *bufio.Writer
	method string
	minor  int
	close  bool

	header      http.Header
	status      int
	wroteHeader bool
	chunked     bool
	noBody      bool
	length      int64
	written     int64
}

// NewResponseWriter inits a writer for a response to a request with the given method and minor
// protocol version. When close is set the response announces that the connection will be closed.
func NewResponseWriter(w *bufio.Writer, method string, minor int, close bool) *ResponseWriter {
	return &ResponseWriter{
		w:      w,
		method: method,
		minor:  minor,
		close:  close,
		header: http.Header{},
		length: -1,
	}
}

func (rw *ResponseWriter) Header() http.Header { return rw.header }

// Status returns the committed status code, or zero.
func (rw *ResponseWriter) Status() int { return rw.status }

// Closing reports whether the connection must be closed after this response.
func (rw *ResponseWriter) Closing() bool { return rw.close }

func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}

	if code < 100 || code > 999 {
		panic(fmt.Sprintf("protocol: invalid WriteHeader code %v", code))
	}

	rw.commit(code, false)
}

func (rw *ResponseWriter) commit(code int, final bool) {
	rw.wroteHeader, rw.status = true, code
	rw.noBody = rw.method == http.MethodHead || !bodyAllowedForStatus(code)

	h := rw.header
	if cl := h.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			rw.length = n
		} else {
			h.Del("Content-Length")
		}
	}

	switch {
	case rw.noBody || rw.length >= 0:
		h.Del("Transfer-Encoding")
	case final:
		h.Set("Content-Length", "0")
		rw.length = 0
	case rw.minor >= 1:
		h.Set("Transfer-Encoding", "chunked")
		rw.chunked = true
	default:
		rw.close = true
	}

	if h.Get("Date") == "" {
		h.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}

	if rw.close {
		h.Set("Connection", "close")
	} else if strings.EqualFold(h.Get("Connection"), "close") {
		rw.close = true
	} else if rw.minor == 0 {
		h.Set("Connection", "keep-alive")
	}

	fmt.Fprintf(rw.w, "HTTP/1.%d %03d %s\r\n", rw.minor, code, http.StatusText(code))
	_ = h.Write(rw.w)
	_, _ = rw.w.WriteString("\r\n")
}

func (rw *ResponseWriter) Write(p []byte) (int, error) {
	if !rw.wroteHeader {
		rw.commit(http.StatusOK, false)
	}

	if rw.noBody || len(p) == 0 {
		return len(p), nil
	}

	if rw.length >= 0 && rw.written+int64(len(p)) > rw.length {
		return 0, errors.Wrapf(ErrContentLength, "writing %d bytes past declared %d", len(p), rw.length)
	}

	if rw.chunked {
		fmt.Fprintf(rw.w, "%x\r\n", len(p))
	}

	n, err := rw.w.Write(p)
	rw.written += int64(n)

	if rw.chunked {
		_, _ = rw.w.WriteString("\r\n")
	}

	if err != nil {
		return n, errors.Wrap(err, "write response body")
	}

	return n, nil
}

// Flush sends what has been written so far to the connection.
func (rw *ResponseWriter) Flush() {
	_ = rw.FlushError()
}

// FlushError is Flush with an error result, see [http.ResponseController].
func (rw *ResponseWriter) FlushError() error {
	if !rw.wroteHeader {
		rw.commit(http.StatusOK, false)
	}

	return errors.Wrap(rw.w.Flush(), "flush response")
}

// Finish terminates the body framing and flushes the response. When the body is shorter than the
// declared length the connection can not be reused and an error is returned.
func (rw *ResponseWriter) Finish() error {
	if !rw.wroteHeader {
		rw.commit(http.StatusOK, true)
	}

	if rw.chunked {
		_, _ = rw.w.WriteString("0\r\n\r\n")
	}

	if err := rw.w.Flush(); err != nil {
		return errors.Wrap(err, "flush response")
	}

	if !rw.noBody && rw.length >= 0 && rw.written != rw.length {
		rw.close = true
		return errors.Wrapf(ErrContentLength, "wrote %d of declared %d bytes", rw.written, rw.length)
	}

	return nil
}

// WriteContinue sends the interim "100 Continue" response.
func WriteContinue(w *bufio.Writer, minor int) error {
	fmt.Fprintf(w, "HTTP/1.%d 100 Continue\r\n\r\n", minor)
	return errors.Wrap(w.Flush(), "write 100 continue")
}

// WriteStatus writes a minimal, connection closing response with a plain text body and the fields of
// header, which may be nil. It is used when a request can not be framed and no handler runs.
func WriteStatus(w *bufio.Writer, code int, header http.Header) error {
	rw := NewResponseWriter(w, http.MethodGet, 1, true)
	for k, v := range header {
		rw.Header()[k] = v
	}

	text := http.StatusText(code) + "\n"
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.Header().Set("Content-Length", strconv.Itoa(len(text)))
	rw.WriteHeader(code)
	_, _ = rw.Write([]byte(text))

	return rw.Finish()
}

func bodyAllowedForStatus(code int) bool {
	switch {
	case code >= 100 && code <= 199:
		return false
	case code == http.StatusNoContent, code == http.StatusNotModified:
		return false
	}

	return true
}
