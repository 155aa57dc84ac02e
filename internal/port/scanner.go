// Package port implements host port availability checks for the dashboard.
//
// The dashboard publishes a single fixed port (8501 by default), so the only
// port management needed is a preflight: confirm the host port is free before
// asking Docker to bind it, and optionally probe upward for a free port when
// the default is taken. Ports are checked with net.Listen/net.ListenPacket,
// asking the OS directly rather than parsing /proc/net/* or shelling out to
// `lsof`/`ss`, which may require elevated permissions.
package port

import (
	"fmt"
	"net"
)

// Scanner checks whether specific ports are available on the host machine.
//
// The struct is currently stateless, but is defined as a struct (rather than
// bare functions) so that future options (e.g., bind address, timeout) can be
// added without breaking the API.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable checks whether a single port is free on the host machine.
//
// For TCP, it attempts net.Listen("tcp", ":port"). For UDP, it attempts
// net.ListenPacket("udp", ":port"). If the listen/bind succeeds, the port
// is available; the listener is closed again immediately.
//
// The bind targets all interfaces (":port" rather than "127.0.0.1:port")
// because Docker publishes ports on 0.0.0.0, so the check has to cover the
// same address space to avoid false positives.
//
// Returns true if the port is free, false if it is already in use or the
// protocol is unknown.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	addr := fmt.Sprintf(":%d", port)

	switch protocol {
	case "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = listener.Close() }()
		return true

	case "udp":
		// UDP is connectionless, so ListenPacket (which returns a PacketConn)
		// replaces Listen here.
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = conn.Close() }()
		return true

	default:
		// Unknown protocol: treat as unavailable.
		return false
	}
}

// EnsureAvailable verifies that the given TCP port can be bound on the host.
// It returns an error naming the port when something else already holds it,
// so the caller can refuse to start the dashboard before Docker ever gets
// involved (Docker's own bind error surfaces much later and less clearly).
func (s *Scanner) EnsureAvailable(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range (1-65535)", port)
	}
	if !s.IsPortAvailable(port, "tcp") {
		return fmt.Errorf("port %d is already in use on the host", port)
	}
	return nil
}

// FindAvailablePort scans a port range [startPort, endPort] (inclusive) and
// returns the first port that is available for the given protocol.
//
// The search is sequential from startPort upward. This deterministic ordering
// means the same free port will be selected consistently, which helps with
// reproducibility in testing and debugging.
//
// Returns an error if no available port is found in the entire range.
func (s *Scanner) FindAvailablePort(startPort, endPort int, protocol string) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if s.IsPortAvailable(port, protocol) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available %s port found in range %d-%d", protocol, startPort, endPort)
}
