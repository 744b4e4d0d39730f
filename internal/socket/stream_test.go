package socket

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-iocoro/internal/corereactor"
	"github.com/ehrlich-b/go-iocoro/internal/ioerr"
)

func newTestReactor(t *testing.T) *corereactor.Reactor {
	t.Helper()
	r, err := corereactor.New(corereactor.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestStreamSocketConnectReadWriteLoopback(t *testing.T) {
	r := newTestReactor(t)
	go r.Run()
	defer r.Stop()

	ep := TCPEndpoint(loopbackIP(), 0)
	acceptor, err := NewAcceptor(r, ep, 16)
	require.NoError(t, err)
	defer acceptor.Close()

	addr, err := unix.Getsockname(acceptor.FD().Int())
	require.NoError(t, err)
	boundPort := addr.(*unix.SockaddrInet4).Port

	serverDone := make(chan struct{})
	var serverErr error
	go func() {
		defer close(serverDone)
		conn, _, aerr := acceptor.Accept(context.Background())
		if aerr != nil {
			serverErr = aerr
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, rerr := conn.Read(context.Background(), buf)
		if rerr != nil {
			serverErr = rerr
			return
		}
		if _, werr := conn.Write(context.Background(), buf[:n]); werr != nil {
			serverErr = werr
		}
	}()

	client, err := NewStreamSocket(r, unix.AF_INET)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Connect(context.Background(), TCPEndpoint(loopbackIP(), boundPort)))

	_, err = client.Write(context.Background(), []byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := client.Read(context.Background(), buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))

	select {
	case <-serverDone:
		require.NoError(t, serverErr)
	case <-time.After(2 * time.Second):
		t.Fatal("server goroutine did not finish")
	}
}

func loopbackIP() net.IP {
	return net.IPv4(127, 0, 0, 1)
}

func connectedLoopbackPair(t *testing.T, r *corereactor.Reactor) (*StreamSocket, *StreamSocket) {
	t.Helper()
	ep := TCPEndpoint(loopbackIP(), 0)
	acceptor, err := NewAcceptor(r, ep, 16)
	require.NoError(t, err)

	addr, err := unix.Getsockname(acceptor.FD().Int())
	require.NoError(t, err)
	boundPort := addr.(*unix.SockaddrInet4).Port

	serverCh := make(chan *StreamSocket, 1)
	go func() {
		conn, _, aerr := acceptor.Accept(context.Background())
		require.NoError(t, aerr)
		serverCh <- conn
	}()

	client, err := NewStreamSocket(r, unix.AF_INET)
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background(), TCPEndpoint(loopbackIP(), boundPort)))

	server := <-serverCh
	acceptor.Close()
	return client, server
}

func TestStreamSocketShutdownOnUnconnectedSocketReturnsNotConnected(t *testing.T) {
	r := newTestReactor(t)
	go r.Run()
	defer r.Stop()

	s, err := NewStreamSocket(r, unix.AF_INET)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, ioerr.NotConnected, s.Shutdown(ShutdownBoth))
}

func TestStreamSocketShutdownReadCausesReadToReturnEOF(t *testing.T) {
	r := newTestReactor(t)
	go r.Run()
	defer r.Stop()

	client, server := connectedLoopbackPair(t, r)
	defer client.Close()
	defer server.Close()

	require.NoError(t, client.Shutdown(ShutdownRead))

	buf := make([]byte, 16)
	_, err := client.Read(context.Background(), buf)
	require.Equal(t, ioerr.EOF, err)
}

func TestStreamSocketShutdownWriteCausesWriteToReturnBrokenPipe(t *testing.T) {
	r := newTestReactor(t)
	go r.Run()
	defer r.Stop()

	client, server := connectedLoopbackPair(t, r)
	defer client.Close()
	defer server.Close()

	require.NoError(t, client.Shutdown(ShutdownWrite))

	_, err := client.Write(context.Background(), []byte("x"))
	require.Equal(t, ioerr.BrokenPipe, err)
}

func TestStreamSocketCancelReadAbortsInFlightRead(t *testing.T) {
	r := newTestReactor(t)
	go r.Run()
	defer r.Stop()

	client, server := connectedLoopbackPair(t, r)
	defer client.Close()
	defer server.Close()

	errCh := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		_, err := client.Read(context.Background(), make([]byte, 16))
		errCh <- err
	}()
	<-started
	time.Sleep(20 * time.Millisecond)
	client.CancelRead()

	select {
	case err := <-errCh:
		require.Equal(t, ioerr.OperationAborted, err)
	case <-time.After(2 * time.Second):
		t.Fatal("CancelRead did not unblock the pending Read")
	}
}
