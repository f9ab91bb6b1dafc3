package bserve

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/advdv/bserve/internal/protocol"
	"github.com/cockroachdb/errors"
)

const readChunk = 8 << 10

// conn serves the requests of a single connection, one after the other.
type conn struct {
	srv     *Server
	rwc     net.Conn
	handler http.Handler
	secure  bool
	idle    atomic.Bool
}

func (c *conn) remote() string { return c.rwc.RemoteAddr().String() }

func (c *conn) serve(ctx context.Context) {
	defer c.rwc.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var state *tls.ConnectionState
	if tc, ok := c.rwc.(*tls.Conn); ok {
		if err := tc.HandshakeContext(ctx); err != nil {
			c.srv.logs.LogHandshakeError(c.remote(), err)
			return
		}

		cs := tc.ConnectionState()
		state = &cs
	}

	buf := protocol.NewRequestBuffer()
	defer func() { buf.Release() }()

	chunk := make([]byte, readChunk)
	fill := func() error {
		n, err := c.rwc.Read(chunk)
		if n > 0 {
			buf.Append(chunk[:n])
			return nil
		}

		if err == nil {
			return io.ErrNoProgress
		}

		return err
	}

	bw := bufio.NewWriter(c.rwc)

	for {
		c.idle.Store(buf.Len() == 0)
		if c.srv.closing.Load() && buf.Len() == 0 {
			return
		}

		head, err := c.readHead(buf, fill)
		c.idle.Store(false)

		if err != nil {
			c.fail(bw, err)
			return
		}

		keep, err := c.serveRequest(ctx, head, buf, fill, bw, state)
		if err != nil {
			c.fail(bw, err)
			return
		}

		if !keep {
			return
		}

		next := buf.Next()
		buf.Release()
		buf = next
	}
}

// readHead fills the buffer until it holds a complete request head. A connection that is closed before
// any byte of the next request arrived ends with io.EOF.
func (c *conn) readHead(buf *protocol.RequestBuffer, fill func() error) (*protocol.Head, error) {
	for {
		head, ok, err := protocol.ParseHead(buf, c.srv.maxHead)
		if err != nil || ok {
			return head, err
		}

		if err := fill(); err != nil {
			if errors.Is(err, io.EOF) && buf.Len() > 0 {
				return nil, io.ErrUnexpectedEOF
			}

			return nil, err
		}
	}
}

func (c *conn) serveRequest(
	ctx context.Context,
	head *protocol.Head,
	buf *protocol.RequestBuffer,
	fill func() error,
	bw *bufio.Writer,
	state *tls.ConnectionState,
) (bool, error) {
	length, err := head.ContentLength()
	if err != nil {
		return false, err
	}

	chunked := head.Chunked()
	if chunked && length >= 0 {
		return false, errors.Wrap(protocol.ErrMalformedHead, "both content length and chunked coding")
	}

	if head.ExpectContinue() && (chunked || length > 0) {
		if err := protocol.WriteContinue(bw, head.Minor); err != nil {
			return false, errors.Wrap(err, "write continue")
		}
	}

	body := protocol.NewSpillBuffer(c.srv.maxMemoryBody, c.srv.tempDir, c.srv.logs)
	defer body.Release()

	br := protocol.NewBodyReader(buf, fill, c.srv.maxBody)

	var trailer http.Header
	switch {
	case chunked:
		trailer, err = br.ReadChunked(body)
	case length > 0:
		err = br.ReadLength(body, length)
	}

	if err != nil {
		return false, errors.Wrap(err, "read body")
	}

	req, err := c.newRequest(ctx, head, body, trailer, state)
	if err != nil {
		return false, err
	}
	defer req.Body.Close()

	rw := protocol.NewResponseWriter(bw, head.Method, head.Minor, !head.KeepAlive() || c.srv.closing.Load())
	c.handler.ServeHTTP(rw, req)

	if err := rw.Finish(); err != nil {
		c.srv.logs.LogConnectionError(c.remote(), errors.Wrap(err, "finish response"))
		return false, nil
	}

	return !rw.Closing(), nil
}

func (c *conn) newRequest(
	ctx context.Context,
	head *protocol.Head,
	body *protocol.SpillBuffer,
	trailer http.Header,
	state *tls.ConnectionState,
) (*http.Request, error) {
	u, err := url.ParseRequestURI(head.Target)
	if err != nil {
		return nil, errors.Wrapf(protocol.ErrMalformedHead, "request target %q", head.Target)
	}

	rc, err := body.Reader()
	if err != nil {
		return nil, errors.Wrap(err, "open body")
	}

	host := u.Host
	if host == "" {
		host = head.Header.Get("Host")
	}

	head.Header.Del("Host")

	req := &http.Request{
		Method:        head.Method,
		URL:           u,
		Proto:         head.Proto,
		ProtoMajor:    head.Major,
		ProtoMinor:    head.Minor,
		Header:        head.Header,
		Body:          rc,
		ContentLength: body.Size(),
		Host:          host,
		RemoteAddr:    c.remote(),
		RequestURI:    head.Target,
		Trailer:       trailer,
		Close:         !head.KeepAlive(),
		TLS:           state,
	}

	return req.WithContext(ctx), nil
}

// fail answers requests that could not be framed. Nothing is written for connections that were
// closed or reset by the peer.
func (c *conn) fail(bw *bufio.Writer, err error) {
	var code int
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrUnexpectedEOF):
		return
	case errors.Is(err, protocol.ErrHeadTooLarge):
		code = http.StatusRequestHeaderFieldsTooLarge
	case errors.Is(err, protocol.ErrBodyTooLarge):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, protocol.ErrMalformedHead), errors.Is(err, protocol.ErrMalformedChunk):
		code = http.StatusBadRequest
	default:
		c.srv.logs.LogConnectionError(c.remote(), err)
		code = http.StatusInternalServerError

		var nerr net.Error
		if errors.As(err, &nerr) {
			return
		}
	}

	var header http.Header
	if c.secure {
		if v := c.srv.StrictTransport().HeaderValue(); v != "" {
			header = http.Header{"Strict-Transport-Security": {v}}
		}
	}

	if werr := protocol.WriteStatus(bw, code, header); werr != nil {
		c.srv.logs.LogConnectionError(c.remote(), werr)
	}
}
