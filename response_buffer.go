package bserve

import (
	"bytes"
	"net/http"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrBufferFull is returned when the write limit of the response buffer is reached.
var ErrBufferFull = errors.New("bserve: response buffer is full")

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// ResponseBuffer holds the status, header and body of a response until it is flushed to the
// underlying writer, either explicitly through [http.ResponseController] or implicitly after
// the handler returns.
type ResponseBuffer struct {
	resp   http.ResponseWriter
	header http.Header
	status int
	buf    *bytes.Buffer
	limit  int

	flushed bool
}

func newBufferResponse(resp http.ResponseWriter, limit int) *ResponseBuffer {
	buf, _ := bufPool.Get().(*bytes.Buffer)
	buf.Reset()

	return &ResponseBuffer{
		resp:   resp,
		header: http.Header{},
		buf:    buf,
		limit:  limit,
	}
}

func (w *ResponseBuffer) Header() http.Header { return w.header }

// WriteHeader records the status code, only the first call has an effect.
func (w *ResponseBuffer) WriteHeader(code int) {
	if w.status != 0 {
		return
	}

	w.status = code
}

// Write buffers p, or fails with [ErrBufferFull] without writing anything if p does not fit.
func (w *ResponseBuffer) Write(p []byte) (int, error) {
	if w.limit >= 0 && w.buf.Len()+len(p) > w.limit {
		return 0, errors.Wrapf(ErrBufferFull, "writing %d bytes with %d of %d used", len(p), w.buf.Len(), w.limit)
	}

	return w.buf.Write(p)
}

// Reset discards the buffered status, header and body. It panics when part of the response has
// already been flushed.
func (w *ResponseBuffer) Reset() {
	if w.flushed {
		panic("bserve: cannot reset response, already flushed")
	}

	w.status = 0
	w.buf.Reset()
	clear(w.header)
}

// Flushed reports whether part of the response reached the underlying writer, after which it can no
// longer be reset.
func (w *ResponseBuffer) Flushed() bool { return w.flushed }

// Unwrap returns the underlying writer, see [http.ResponseController].
func (w *ResponseBuffer) Unwrap() http.ResponseWriter { return w.resp }

// FlushError writes what has been buffered so far and flushes the underlying writer. After this the
// response can no longer be reset.
func (w *ResponseBuffer) FlushError() error {
	if err := w.flush(); err != nil {
		return err
	}

	if err := http.NewResponseController(w.resp).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return errors.Wrap(err, "flush underlying")
	}

	return nil
}

// FlushBuffer writes the buffered response to the underlying writer. If nothing was flushed
// explicitly before the Content-Length is known and will be set.
func (w *ResponseBuffer) FlushBuffer() error {
	if !w.flushed && w.header.Get("Content-Length") == "" && w.header.Get("Transfer-Encoding") == "" &&
		bodyAllowed(w.status) {
		w.header.Set("Content-Length", strconv.Itoa(w.buf.Len()))
	}

	return w.flush()
}

func (w *ResponseBuffer) flush() error {
	if !w.flushed {
		if w.status == 0 {
			w.status = http.StatusOK
		}

		dst := w.resp.Header()
		for k, v := range w.header {
			dst[k] = v
		}

		w.resp.WriteHeader(w.status)
		w.flushed = true
	}

	if w.buf.Len() == 0 {
		return nil
	}

	_, err := w.buf.WriteTo(w.resp)
	if err != nil {
		return errors.Wrap(err, "write buffered body")
	}

	return nil
}

// Free returns the buffer to the pool, the response must not be used afterwards.
func (w *ResponseBuffer) Free() {
	if w.buf == nil {
		return
	}

	bufPool.Put(w.buf)
	w.buf = nil
}

func bodyAllowed(code int) bool {
	switch {
	case code >= 100 && code <= 199:
		return false
	case code == http.StatusNoContent, code == http.StatusNotModified:
		return false
	}

	return true
}

var _ ResponseWriter = &ResponseBuffer{}
