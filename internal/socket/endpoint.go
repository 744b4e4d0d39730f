package socket

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Endpoint is a protocol-agnostic address: an IPv4/IPv6 host+port pair or a
// Unix-domain path, giving stream and datagram sockets one shared endpoint
// type across TCP, UDP, and Unix-domain transports.
type Endpoint struct {
	IP   net.IP
	Port int
	Path string // non-empty selects AF_UNIX
}

// TCPEndpoint builds an IP endpoint.
func TCPEndpoint(ip net.IP, port int) Endpoint { return Endpoint{IP: ip, Port: port} }

// UnixEndpoint builds an AF_UNIX endpoint.
func UnixEndpoint(path string) Endpoint { return Endpoint{Path: path} }

// IsUnix reports whether the endpoint names a Unix-domain path.
func (e Endpoint) IsUnix() bool { return e.Path != "" }

func (e Endpoint) String() string {
	if e.IsUnix() {
		return e.Path
	}
	return fmt.Sprintf("%s:%d", e.IP, e.Port)
}

// ToSockaddr converts an Endpoint to a unix.Sockaddr, choosing AF_UNIX,
// AF_INET, or AF_INET6 based on the endpoint's shape.
func ToSockaddr(e Endpoint) (unix.Sockaddr, error) {
	if e.IsUnix() {
		return &unix.SockaddrUnix{Name: e.Path}, nil
	}
	if ip4 := e.IP.To4(); ip4 != nil {
		var sa unix.SockaddrInet4
		sa.Port = e.Port
		copy(sa.Addr[:], ip4)
		return &sa, nil
	}
	if ip6 := e.IP.To16(); ip6 != nil {
		var sa unix.SockaddrInet6
		sa.Port = e.Port
		copy(sa.Addr[:], ip6)
		return &sa, nil
	}
	return nil, fmt.Errorf("endpoint: invalid address %v", e.IP)
}

// FromSockaddr converts a unix.Sockaddr back into an Endpoint, the inverse
// of ToSockaddr, used to report peer addresses after accept/recvfrom.
func FromSockaddr(sa unix.Sockaddr) Endpoint {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return Endpoint{IP: net.IP(s.Addr[:]), Port: s.Port}
	case *unix.SockaddrInet6:
		return Endpoint{IP: net.IP(s.Addr[:]), Port: s.Port}
	case *unix.SockaddrUnix:
		return Endpoint{Path: s.Name}
	default:
		return Endpoint{}
	}
}

// Domain returns the AF_* constant appropriate for e.
func Domain(e Endpoint) int {
	switch {
	case e.IsUnix():
		return unix.AF_UNIX
	case e.IP.To4() != nil:
		return unix.AF_INET
	default:
		return unix.AF_INET6
	}
}
