package iocoro

import (
	"net"
	"strconv"

	"github.com/ehrlich-b/go-iocoro/internal/socket"
)

// Endpoint is a protocol-agnostic address: an IP host+port pair or a
// Unix-domain socket path.
type Endpoint = socket.Endpoint

// TCPEndpoint builds an IP endpoint (used for both TCP and UDP).
func TCPEndpoint(ip net.IP, port int) Endpoint { return socket.TCPEndpoint(ip, port) }

// UnixEndpoint builds an AF_UNIX endpoint.
func UnixEndpoint(path string) Endpoint { return socket.UnixEndpoint(path) }

// ParseEndpoint parses "host:port" into an Endpoint.
func ParseEndpoint(hostport string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return Endpoint{}, NewEndpointError("parse_endpoint", hostport, ErrInvalidEndpoint)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, NewEndpointError("parse_endpoint", hostport, ErrInvalidEndpoint)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, lerr := net.LookupIP(host)
		if lerr != nil || len(ips) == 0 {
			return Endpoint{}, NewEndpointError("parse_endpoint", hostport, ErrInvalidEndpoint)
		}
		ip = ips[0]
	}
	return TCPEndpoint(ip, port), nil
}
