package iocoro

import (
	"context"

	"github.com/ehrlich-b/go-iocoro/internal/socket"
)

// DatagramConn is an unconnected or connected UDP / Unix-domain datagram
// socket.
type DatagramConn struct {
	s       *socket.DatagramSocket
	metrics *Metrics
}

// NewUDPSocket creates a UDP socket, optionally bound to a local endpoint
// (pass a zero Endpoint to leave it unbound, e.g. for a pure client).
func NewUDPSocket(r *Reactor, local Endpoint) (*DatagramConn, error) {
	return newDatagramSocket(r, socket.Domain(local), local)
}

// NewUnixDatagramSocket creates a Unix-domain datagram socket bound to path.
func NewUnixDatagramSocket(r *Reactor, path string) (*DatagramConn, error) {
	ep := UnixEndpoint(path)
	return newDatagramSocket(r, socket.Domain(ep), ep)
}

func newDatagramSocket(r *Reactor, domain int, local Endpoint) (*DatagramConn, error) {
	s, err := socket.NewDatagramSocket(r.internalCore(), domain)
	if err != nil {
		return nil, WrapError("new_datagram_socket", err)
	}
	if local.IP != nil || local.IsUnix() {
		if err := s.Bind(local); err != nil {
			s.Close()
			return nil, NewEndpointError("bind", local.String(), KindOf(err))
		}
	}
	return &DatagramConn{s: s, metrics: r.metrics}, nil
}

// Connect fixes ep as the default peer for Send/Receive.
func (c *DatagramConn) Connect(ep Endpoint) error {
	if err := c.s.Connect(ep); err != nil {
		return NewEndpointError("connect", ep.String(), KindOf(err))
	}
	return nil
}

// SendTo sends buf to ep.
func (c *DatagramConn) SendTo(ctx context.Context, buf []byte, ep Endpoint) (int, error) {
	n, err := c.s.SendTo(ctx, buf, ep)
	c.metrics.RecordWrite(uint64(n), 0, err == nil)
	return n, mapSocketErr("send_to", ep.String(), err)
}

// Send sends buf to the connected peer.
func (c *DatagramConn) Send(ctx context.Context, buf []byte) (int, error) {
	n, err := c.s.Send(ctx, buf)
	c.metrics.RecordWrite(uint64(n), 0, err == nil)
	return n, mapSocketErr("send", "", err)
}

// ReceiveFrom reads one datagram, reporting the sender's endpoint.
func (c *DatagramConn) ReceiveFrom(ctx context.Context, buf []byte) (int, Endpoint, error) {
	n, from, err := c.s.ReceiveFrom(ctx, buf)
	c.metrics.RecordRead(uint64(n), 0, err == nil || err == ErrMessageSize)
	return n, from, mapSocketErr("receive_from", from.String(), err)
}

// Receive reads one datagram from the connected peer.
func (c *DatagramConn) Receive(ctx context.Context, buf []byte) (int, error) {
	n, err := c.s.Receive(ctx, buf)
	c.metrics.RecordRead(uint64(n), 0, err == nil)
	return n, mapSocketErr("receive", "", err)
}

// Close closes the socket.
func (c *DatagramConn) Close() error { return c.s.Close() }

// CancelRead aborts a ReceiveFrom/Receive currently in flight on this
// socket. A no-op if no read is pending.
func (c *DatagramConn) CancelRead() { c.s.CancelRead() }

// CancelWrite is CancelRead's write-direction counterpart, aborting a
// pending SendTo/Send.
func (c *DatagramConn) CancelWrite() { c.s.CancelWrite() }
