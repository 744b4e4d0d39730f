package iocoro

import (
	"context"

	"github.com/ehrlich-b/go-iocoro/internal/socket"
)

// Acceptor listens for incoming TCP or Unix-domain stream connections and
// serves concurrent Accept callers in FIFO order.
type Acceptor struct {
	a       *socket.Acceptor
	metrics *Metrics
}

// ListenTCP creates a listening TCP socket on addr ("host:port").
func ListenTCP(r *Reactor, addr string) (*Acceptor, error) {
	ep, err := ParseEndpoint(addr)
	if err != nil {
		return nil, err
	}
	return ListenEndpoint(r, ep, DefaultAcceptBacklog)
}

// ListenUnix creates a listening Unix-domain stream socket at path.
func ListenUnix(r *Reactor, path string) (*Acceptor, error) {
	return ListenEndpoint(r, UnixEndpoint(path), DefaultAcceptBacklog)
}

// ListenEndpoint creates a listening socket on an arbitrary Endpoint with an
// explicit backlog.
func ListenEndpoint(r *Reactor, ep Endpoint, backlog int) (*Acceptor, error) {
	a, err := socket.NewAcceptor(r.internalCore(), ep, backlog)
	if err != nil {
		return nil, NewEndpointError("listen", ep.String(), KindOf(err))
	}
	return &Acceptor{a: a, metrics: r.metrics}, nil
}

// Accept blocks for the next incoming connection.
func (a *Acceptor) Accept(ctx context.Context) (*StreamConn, error) {
	s, peer, err := a.a.Accept(ctx)
	a.metrics.RecordAccept(err == nil)
	if err != nil {
		return nil, NewEndpointError("accept", peer.String(), KindOf(err))
	}
	return &StreamConn{s: s, metrics: a.metrics}, nil
}

// Waiters reports how many goroutines are currently queued in Accept.
func (a *Acceptor) Waiters() int32 { return a.a.Waiters() }

// Close stops listening.
func (a *Acceptor) Close() error { return a.a.Close() }
