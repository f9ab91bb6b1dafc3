package protocol_test

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/advdv/bserve/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readBack parses what the writer produced with the standard library client parser.
func readBack(t *testing.T, raw []byte, method string) (*http.Response, string) {
	t.Helper()

	req, _ := http.NewRequest(method, "http://x/", nil) //nolint:noctx
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestResponseWriter(t *testing.T) {
	t.Run("should use the declared content length", func(t *testing.T) {
		var out bytes.Buffer
		bw := bufio.NewWriter(&out)
		rw := protocol.NewResponseWriter(bw, http.MethodGet, 1, false)
		rw.Header().Set("Content-Length", "5")
		rw.WriteHeader(http.StatusCreated)
		_, err := rw.Write([]byte("hello"))
		require.NoError(t, err)
		require.NoError(t, rw.Finish())

		resp, body := readBack(t, out.Bytes(), http.MethodGet)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "hello", body)
		assert.Empty(t, resp.TransferEncoding)
		assert.False(t, rw.Closing())
		assert.NotEmpty(t, resp.Header.Get("Date"))
	})

	t.Run("should fall back to chunked encoding", func(t *testing.T) {
		var out bytes.Buffer
		rw := protocol.NewResponseWriter(bufio.NewWriter(&out), http.MethodGet, 1, false)
		_, _ = rw.Write([]byte("foo"))
		rw.Flush()
		_, _ = rw.Write([]byte("bar"))
		require.NoError(t, rw.Finish())

		resp, body := readBack(t, out.Bytes(), http.MethodGet)
		assert.Equal(t, []string{"chunked"}, resp.TransferEncoding)
		assert.Equal(t, "foobar", body)
	})

	t.Run("should send an empty length for untouched responses", func(t *testing.T) {
		var out bytes.Buffer
		rw := protocol.NewResponseWriter(bufio.NewWriter(&out), http.MethodGet, 1, false)
		require.NoError(t, rw.Finish())

		assert.Contains(t, out.String(), "Content-Length: 0\r\n")
		assert.True(t, strings.HasPrefix(out.String(), "HTTP/1.1 200 OK\r\n"))
	})

	t.Run("should close http/1.0 responses without length", func(t *testing.T) {
		var out bytes.Buffer
		rw := protocol.NewResponseWriter(bufio.NewWriter(&out), http.MethodGet, 0, false)
		_, _ = rw.Write([]byte("foo"))
		require.NoError(t, rw.Finish())

		assert.True(t, rw.Closing())
		assert.Contains(t, out.String(), "Connection: close\r\n")
	})

	t.Run("should omit the body for HEAD", func(t *testing.T) {
		var out bytes.Buffer
		rw := protocol.NewResponseWriter(bufio.NewWriter(&out), http.MethodHead, 1, false)
		rw.Header().Set("Content-Length", "3")
		_, _ = rw.Write([]byte("foo"))
		require.NoError(t, rw.Finish())

		assert.True(t, strings.HasSuffix(out.String(), "\r\n\r\n"))
		assert.NotContains(t, out.String(), "foo")
	})

	t.Run("should refuse writes past the declared length", func(t *testing.T) {
		rw := protocol.NewResponseWriter(bufio.NewWriter(io.Discard), http.MethodGet, 1, false)
		rw.Header().Set("Content-Length", "1")
		_, err := rw.Write([]byte("ab"))
		require.ErrorIs(t, err, protocol.ErrContentLength)
	})

	t.Run("should mark short bodies as closing", func(t *testing.T) {
		rw := protocol.NewResponseWriter(bufio.NewWriter(io.Discard), http.MethodGet, 1, false)
		rw.Header().Set("Content-Length", "10")
		_, _ = rw.Write([]byte("ab"))
		require.ErrorIs(t, rw.Finish(), protocol.ErrContentLength)
		assert.True(t, rw.Closing())
	})

	t.Run("should honour a handler's connection close", func(t *testing.T) {
		rw := protocol.NewResponseWriter(bufio.NewWriter(io.Discard), http.MethodGet, 1, false)
		rw.Header().Set("Connection", "close")
		require.NoError(t, rw.Finish())
		assert.True(t, rw.Closing())
	})
}

func TestWriteStatus(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, protocol.WriteStatus(bufio.NewWriter(&out), http.StatusBadRequest, http.Header{
		"Strict-Transport-Security": {"max-age=60"},
	}))

	resp, body := readBack(t, out.Bytes(), http.MethodGet)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Bad Request\n", body)
	assert.Equal(t, "max-age=60", resp.Header.Get("Strict-Transport-Security"))
	assert.True(t, resp.Close)

	out.Reset()
	require.NoError(t, protocol.WriteStatus(bufio.NewWriter(&out), http.StatusRequestEntityTooLarge, nil))

	resp, _ = readBack(t, out.Bytes(), http.MethodGet)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))
}

func TestWriteContinue(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, protocol.WriteContinue(bufio.NewWriter(&out), 1))
	assert.Equal(t, "HTTP/1.1 100 Continue\r\n\r\n", out.String())
}
