package port

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenTCP occupies an OS-assigned TCP port for the duration of the test.
func listenTCP(t *testing.T, addr string) int {
	t.Helper()

	listener, err := net.Listen("tcp", addr)
	require.NoError(t, err, "failed to start test listener")
	t.Cleanup(func() { _ = listener.Close() })

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return tcpAddr.Port
}

// TestIsPortAvailable_FreePort verifies a port found free is reported free.
func TestIsPortAvailable_FreePort(t *testing.T) {
	scanner := NewScanner()

	freePort, err := scanner.FindAvailablePort(50000, 50100, "tcp")
	require.NoError(t, err, "should find at least one free port in 50000-50100")

	assert.True(t, scanner.IsPortAvailable(freePort, "tcp"), "port %d should be available", freePort)
}

// TestIsPortAvailable_UsedPort verifies a bound port is reported in use.
func TestIsPortAvailable_UsedPort(t *testing.T) {
	port := listenTCP(t, ":0")

	assert.False(t, NewScanner().IsPortAvailable(port, "tcp"), "port %d should be in use", port)
}

// TestIsPortAvailable_Host verifies the scanner binds the configured
// interface.
func TestIsPortAvailable_Host(t *testing.T) {
	port := listenTCP(t, "127.0.0.1:0")

	assert.False(t, NewScanner(WithHost("127.0.0.1")).IsPortAvailable(port, "tcp"))
}

// TestIsPortAvailable_UDP verifies UDP scanning.
func TestIsPortAvailable_UDP(t *testing.T) {
	conn, err := net.ListenPacket("udp", ":0")
	require.NoError(t, err, "failed to start test UDP listener")
	defer func() { _ = conn.Close() }()

	udpAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)

	assert.False(t, NewScanner().IsPortAvailable(udpAddr.Port, "udp"))
}

// TestIsPortAvailable_Invalid covers unknown protocols and out-of-range ports.
func TestIsPortAvailable_Invalid(t *testing.T) {
	scanner := NewScanner()

	assert.False(t, scanner.IsPortAvailable(9001, "sctp"))
	assert.False(t, scanner.IsPortAvailable(0, "tcp"))
	assert.False(t, scanner.IsPortAvailable(MaxPort+1, "tcp"))
}

// TestFindAvailablePort_NoneAvailable occupies a small range and verifies
// the search fails with ErrNoPortAvailable.
func TestFindAvailablePort_NoneAvailable(t *testing.T) {
	scanner := NewScanner()

	basePort, err := scanner.FindAvailablePort(51000, 51100, "tcp")
	require.NoError(t, err)

	actualEnd := basePort
	for i := 0; i < 3; i++ {
		ln, listenErr := net.Listen("tcp", fmt.Sprintf(":%d", basePort+i))
		if listenErr != nil {
			if i == 0 {
				t.Skip("could not bind base port, skipping")
			}
			break
		}
		t.Cleanup(func() { _ = ln.Close() })
		actualEnd = basePort + i
	}

	_, err = scanner.FindAvailablePort(basePort, actualEnd, "tcp")
	require.ErrorIs(t, err, ErrNoPortAvailable)
	assert.Contains(t, err.Error(), fmt.Sprintf("%d-%d", basePort, actualEnd))
}

// TestResolve_PreferredFree verifies the preferred port is kept when free.
func TestResolve_PreferredFree(t *testing.T) {
	scanner := NewScanner()

	free, err := scanner.FindAvailablePort(52000, 52100, "tcp")
	require.NoError(t, err)

	got, err := scanner.Resolve(free, 10)
	require.NoError(t, err)
	assert.Equal(t, free, got)
}

// TestResolve_PreferredBusy verifies the next free port is picked when the
// preferred one is taken.
func TestResolve_PreferredBusy(t *testing.T) {
	busy := listenTCP(t, ":0")

	got, err := NewScanner().Resolve(busy, 20)
	require.NoError(t, err)
	assert.Greater(t, got, busy)
	assert.LessOrEqual(t, got, busy+19)

	_, err = NewScanner().Resolve(busy, 0)
	assert.ErrorIs(t, err, ErrNoPortAvailable, "a single attempt on a busy port should fail")
}
