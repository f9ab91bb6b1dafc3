package protocol_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/advdv/bserve/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feeder appends the next part to the buffer on each fill.
func feeder(buf *protocol.RequestBuffer, parts ...string) func() error {
	return func() error {
		if len(parts) == 0 {
			return io.EOF
		}

		buf.Append([]byte(parts[0]))
		parts = parts[1:]

		return nil
	}
}

func TestBodyReaderLength(t *testing.T) {
	t.Run("should read across fills and leave the rest", func(t *testing.T) {
		buf := protocol.NewRequestBufferFrom([]byte("hel"))
		br := protocol.NewBodyReader(buf, feeder(buf, "lo w", "orldGET /next"), 0)

		var dst bytes.Buffer
		require.NoError(t, br.ReadLength(&dst, 11))

		assert.Equal(t, "hello world", dst.String())
		assert.Equal(t, "GET /next", buf.Text())
	})

	t.Run("should fail on a truncated body", func(t *testing.T) {
		buf := protocol.NewRequestBufferFrom([]byte("abc"))
		br := protocol.NewBodyReader(buf, feeder(buf), 0)

		err := br.ReadLength(&bytes.Buffer{}, 10)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("should reject declared lengths over the maximum", func(t *testing.T) {
		buf := protocol.NewRequestBuffer()
		br := protocol.NewBodyReader(buf, feeder(buf), 5)

		err := br.ReadLength(&bytes.Buffer{}, 6)
		require.ErrorIs(t, err, protocol.ErrBodyTooLarge)
	})

	t.Run("should spill large bodies to disk", func(t *testing.T) {
		dir := t.TempDir()
		payload := strings.Repeat("x", 1024)

		buf := protocol.NewRequestBufferFrom([]byte(payload[:100]))
		br := protocol.NewBodyReader(buf, feeder(buf, payload[100:600], payload[600:]), 0)

		sb := protocol.NewSpillBuffer(256, dir, nil)
		defer sb.Release()

		require.NoError(t, br.ReadLength(sb, 1024))
		assert.True(t, sb.Spilled())

		rc, err := sb.Reader()
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		assert.Equal(t, payload, string(data))
	})
}

func TestBodyReaderChunked(t *testing.T) {
	t.Run("should decode chunks split across fills", func(t *testing.T) {
		buf := protocol.NewRequestBufferFrom([]byte("5\r\nhel"))
		br := protocol.NewBodyReader(buf, feeder(buf, "lo\r\n6;ext=1\r\n wor", "ld\r\n0\r\n", "\r\nNEXT"), 0)

		var dst bytes.Buffer
		trailer, err := br.ReadChunked(&dst)
		require.NoError(t, err)

		assert.Nil(t, trailer)
		assert.Equal(t, "hello world", dst.String())
		assert.Equal(t, "NEXT", buf.Text())
	})

	t.Run("should parse trailers", func(t *testing.T) {
		buf := protocol.NewRequestBufferFrom([]byte("3\r\nabc\r\n0\r\nX-Checksum: 42\r\n\r\n"))
		br := protocol.NewBodyReader(buf, feeder(buf), 0)

		trailer, err := br.ReadChunked(&bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "42", trailer.Get("X-Checksum"))
	})

	for _, tt := range []struct {
		name  string
		input string
	}{
		{"invalid size", "zz\r\n"},
		{"signed size", "+3\r\nabc\r\n0\r\n\r\n"},
		{"negative size", "-3\r\nabc\r\n0\r\n\r\n"},
		{"hex prefix", "0x3\r\nabc\r\n0\r\n\r\n"},
		{"empty size", "\r\nabc\r\n0\r\n\r\n"},
		{"missing data CRLF", "3\r\nabcX\r\n0\r\n\r\n"},
	} {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			buf := protocol.NewRequestBufferFrom([]byte(tt.input))
			_, err := protocol.NewBodyReader(buf, feeder(buf), 0).ReadChunked(&bytes.Buffer{})
			require.ErrorIs(t, err, protocol.ErrMalformedChunk)
		})
	}

	t.Run("should enforce the maximum over all chunks", func(t *testing.T) {
		buf := protocol.NewRequestBufferFrom([]byte("3\r\nabc\r\n3\r\ndef\r\n0\r\n\r\n"))
		_, err := protocol.NewBodyReader(buf, feeder(buf), 5).ReadChunked(&bytes.Buffer{})
		require.ErrorIs(t, err, protocol.ErrBodyTooLarge)
	})
}
