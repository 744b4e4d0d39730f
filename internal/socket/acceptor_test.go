package socket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAcceptorAcceptReportsPeerAndConnects(t *testing.T) {
	r := newTestReactor(t)
	go r.Run()
	defer r.Stop()

	acceptor, err := NewAcceptor(r, TCPEndpoint(loopbackIP(), 0), 16)
	require.NoError(t, err)
	defer acceptor.Close()

	addr, err := unix.Getsockname(acceptor.FD().Int())
	require.NoError(t, err)
	port := addr.(*unix.SockaddrInet4).Port

	client, err := NewStreamSocket(r, unix.AF_INET)
	require.NoError(t, err)
	defer client.Close()

	connectDone := make(chan error, 1)
	go func() { connectDone <- client.Connect(context.Background(), TCPEndpoint(loopbackIP(), port)) }()

	conn, peer, err := acceptor.Accept(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	require.True(t, conn.Connected())
	require.NotEmpty(t, peer.IP)

	select {
	case cerr := <-connectDone:
		require.NoError(t, cerr)
	case <-time.After(2 * time.Second):
		t.Fatal("client connect did not finish")
	}
}

func TestAcceptorServesCallersInFIFOOrder(t *testing.T) {
	r := newTestReactor(t)
	go r.Run()
	defer r.Stop()

	acceptor, err := NewAcceptor(r, TCPEndpoint(loopbackIP(), 0), 16)
	require.NoError(t, err)
	defer acceptor.Close()

	addr, err := unix.Getsockname(acceptor.FD().Int())
	require.NoError(t, err)
	port := addr.(*unix.SockaddrInet4).Port

	const n = 3
	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			// Stagger call order so FIFO is observable.
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)
			conn, _, err := acceptor.Accept(context.Background())
			if err != nil {
				return
			}
			defer conn.Close()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}()
	}

	for i := 0; i < n; i++ {
		time.Sleep(30 * time.Millisecond)
		client, err := NewStreamSocket(r, unix.AF_INET)
		require.NoError(t, err)
		require.NoError(t, client.Connect(context.Background(), TCPEndpoint(loopbackIP(), port)))
		client.Close()
	}

	wg.Wait()
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestAcceptorWaitersTracksQueueDepth(t *testing.T) {
	r := newTestReactor(t)
	go r.Run()
	defer r.Stop()

	acceptor, err := NewAcceptor(r, TCPEndpoint(loopbackIP(), 0), 16)
	require.NoError(t, err)
	defer acceptor.Close()

	require.Equal(t, int32(0), acceptor.Waiters())

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		close(started)
		acceptor.Accept(ctx)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), acceptor.Waiters())

	cancel()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(0), acceptor.Waiters())
}
