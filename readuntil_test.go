package iocoro

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUntilFindsDelimiterAcrossChunks(t *testing.T) {
	conn := NewMockConn()
	conn.Feed([]byte("GET / HTTP/1"))
	conn.Feed([]byte(".1\r\nHost: x\r\n"))
	conn.Close()

	line, rest, err := ReadUntil(context.Background(), conn, nil, []byte("\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "GET / HTTP/1.1\r\n", string(line))
	assert.Equal(t, "Host: x\r\n", string(rest))
}

func TestReadUntilReturnsEOFWithoutDelimiter(t *testing.T) {
	conn := NewMockConn()
	conn.Feed([]byte("no newline here"))
	conn.Close()

	_, _, err := ReadUntil(context.Background(), conn, nil, []byte("\n"))
	assert.Equal(t, ErrEOF, err)
}

func TestReadUntilStartsFromPreexistingPrefix(t *testing.T) {
	conn := NewMockConn()
	conn.Feed([]byte("World\n"))
	conn.Close()

	line, _, err := ReadUntil(context.Background(), conn, []byte("Hello "), []byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, "Hello World\n", string(line))
}
