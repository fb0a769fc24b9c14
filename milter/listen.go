package milter

import (
	"fmt"
	"net"
	"strings"
)

// ParseAddress converts a Sendmail-style milter socket specification into a
// network and address for net.Listen. Accepted forms are
//
//	unix:/path/to/socket
//	local:/path/to/socket
//	/path/to/socket
//	inet:port@host
//	inet6:port@host
//
// An inet socket without a host listens on all interfaces.
func ParseAddress(spec string) (network, address string, err error) {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "/") {
		return "unix", spec, nil
	}

	kind, rest, ok := strings.Cut(spec, ":")
	if !ok || rest == "" {
		return "", "", fmt.Errorf("invalid milter socket %q", spec)
	}

	kind = strings.ToLower(kind)
	switch kind {
	case "unix", "local":
		return "unix", rest, nil
	case "inet", "inet6":
		port, host, _ := strings.Cut(rest, "@")
		if port == "" {
			return "", "", fmt.Errorf("invalid milter socket %q: missing port", spec)
		}
		network = "tcp4"
		if kind == "inet6" {
			network = "tcp6"
			host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
		}
		return network, net.JoinHostPort(host, port), nil
	}
	return "", "", fmt.Errorf("invalid milter socket %q: unknown type %q", spec, kind)
}

// Listen opens a listener for a socket specification accepted by
// ParseAddress. An existing unix socket file is not removed.
func Listen(spec string) (net.Listener, error) {
	network, address, err := ParseAddress(spec)
	if err != nil {
		return nil, err
	}
	return net.Listen(network, address)
}
