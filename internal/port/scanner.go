// scanner.go implements host port availability checks for the Storybook dev server.
// A port counts as free when the OS lets us bind it; nothing else (process
// tables, /proc/net, lsof) is consulted.
package port

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// MaxPort is the highest valid port number.
const MaxPort = 65535

// ErrNoPortAvailable is returned when every port of the searched range is
// taken.
var ErrNoPortAvailable = errors.New("no available port")

// Scanner checks whether ports are free on the host by binding them.
//
// It asks the operating system's network stack directly through net.Listen
// (TCP) and net.ListenPacket (UDP). Parsing /proc/net or shelling out to
// lsof or ss would need permissions the CLI may not have.
//
// A Scanner holds only its bind address and is safe for concurrent use.
// The check is inherently racy: a port reported free can be taken by another
// process before the dev server binds it.
type Scanner struct {
	// host is the bind address checked, empty for all interfaces.
	host string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithHost checks a specific interface, e.g. "127.0.0.1", instead of all
// of them.
func WithHost(host string) Option {
	return func(s *Scanner) {
		s.host = host
	}
}

// NewScanner creates a Scanner checking all interfaces unless WithHost is given.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsPortAvailable checks whether a single port is free on the host.
//
// For TCP it attempts net.Listen("tcp", addr), for UDP
// net.ListenPacket("udp", addr). When the bind succeeds the port is free and
// the listener is closed again right away.
//
// Start-storybook listens on all interfaces, so by default the check binds
// ":port" as well; WithHost narrows it to one address.
//
// Parameters:
//   - port: the port number to check (1-65535)
//   - protocol: "tcp" or "udp"
//
// Returns true if the port is free, false if it is in use, out of range, or
// the protocol is unknown.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	if port < 1 || port > MaxPort {
		return false
	}
	addr := net.JoinHostPort(s.host, strconv.Itoa(port))

	switch protocol {
	case "tcp":
		// Fails with "address already in use" when another process holds it.
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = listener.Close() }()
		return true

	case "udp":
		// UDP is connectionless, hence ListenPacket instead of Listen.
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = conn.Close() }()
		return true

	default:
		return false
	}
}

// FindAvailablePort scans [startPort, endPort] upward and returns the first
// free port.
//
// endPort is clamped to MaxPort. A range in which every port is taken (or an
// empty range, startPort > endPort) yields ErrNoPortAvailable naming the
// protocol and the range.
//
// Parameters:
//   - startPort: the first port to try
//   - endPort: the last port to try, inclusive
//   - protocol: "tcp" or "udp"
func (s *Scanner) FindAvailablePort(startPort, endPort int, protocol string) (int, error) {
	if endPort > MaxPort {
		endPort = MaxPort
	}
	for port := startPort; port <= endPort; port++ {
		if s.IsPortAvailable(port, protocol) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w: %s range %d-%d", ErrNoPortAvailable, protocol, startPort, endPort)
}

// Resolve picks the dev server port: preferred when it is free for TCP,
// otherwise the next free port among the following attempts-1 ports.
//
// attempts below 1 is treated as 1, so only preferred is tried. This is the
// method launcher.Plan calls through its PortResolver interface.
func (s *Scanner) Resolve(preferred, attempts int) (int, error) {
	if attempts < 1 {
		attempts = 1
	}
	return s.FindAvailablePort(preferred, preferred+attempts-1, "tcp")
}
