package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DefaultPollInterval bounds a single receive attempt. Short enough
// that interrupt requests are observed promptly, long enough to avoid
// spinning the CPU when the peer is silent.
const DefaultPollInterval = 100 * time.Millisecond

// Sentinel errors for endpoint operations.
var (
	// ErrNoData indicates a receive attempt that timed out with no
	// datagram available. It is the steady-state idle result, not a
	// failure.
	ErrNoData = errors.New("no datagram available")

	// ErrEndpointClosed indicates use of an endpoint after Close.
	ErrEndpointClosed = errors.New("endpoint is closed")
)

// Config describes the endpoint's addressing.
type Config struct {
	// RemoteHost and RemotePort identify the peer all outbound
	// datagrams are sent to.
	RemoteHost string
	RemotePort string

	// LocalPort is the receive port to bind on all interfaces.
	LocalPort string

	// PollInterval bounds one receive attempt. Zero selects
	// DefaultPollInterval.
	PollInterval time.Duration
}

// Endpoint is a bidirectional UDP endpoint bound to a local port with a
// resolved peer address for transmission.
type Endpoint struct {
	conn         *net.UDPConn
	remote       *net.UDPAddr
	pollInterval time.Duration
	closed       bool
}

// New resolves the peer address, binds the local receive port with
// SO_REUSEADDR, and returns the ready endpoint. Resolution or bind
// failures are fatal to the caller; no partial endpoint is returned.
func New(cfg Config) (*Endpoint, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	remote, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(cfg.RemoteHost, cfg.RemotePort))
	if err != nil {
		return nil, fmt.Errorf("resolve peer %s:%s: %w", cfg.RemoteHost, cfg.RemotePort, err)
	}

	local, err := net.ResolveUDPAddr("udp4", net.JoinHostPort("", cfg.LocalPort))
	if err != nil {
		return nil, fmt.Errorf("resolve local port %s: %w", cfg.LocalPort, err)
	}

	conn, err := listenReuseAddr(local)
	if err != nil {
		return nil, fmt.Errorf("bind local port %s: %w", cfg.LocalPort, err)
	}

	logrus.WithFields(logrus.Fields{
		"local":         conn.LocalAddr().String(),
		"peer":          remote.String(),
		"poll_interval": cfg.PollInterval.String(),
	}).Info("udp endpoint ready")

	return &Endpoint{
		conn:         conn,
		remote:       remote,
		pollInterval: cfg.PollInterval,
	}, nil
}

// listenReuseAddr binds a UDP socket with SO_REUSEADDR so a restarted
// relay can rebind the port while the old socket lingers in the kernel.
func listenReuseAddr(local *net.UDPAddr) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	conn, err := lc.ListenPacket(context.Background(), "udp4", local.String())
	if err != nil {
		return nil, err
	}
	udpConn, ok := conn.(*net.UDPConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("unexpected connection type %T", conn)
	}
	return udpConn, nil
}

// Send transmits one datagram to the peer. Delivery is best-effort;
// callers treat failures as warnings, not loop exits.
func (e *Endpoint) Send(datagram []byte) (int, error) {
	if e.closed {
		return 0, ErrEndpointClosed
	}
	n, err := e.conn.WriteToUDP(datagram, e.remote)
	if err != nil {
		return n, fmt.Errorf("send to %s: %w", e.remote.String(), err)
	}
	return n, nil
}

// Receive attempts to read one datagram into buf within the poll
// interval. It returns ErrNoData when the deadline passes without a
// datagram, which the caller's loop treats as "iterate again".
func (e *Endpoint) Receive(buf []byte) (int, net.Addr, error) {
	if e.closed {
		return 0, nil, ErrEndpointClosed
	}

	_ = e.conn.SetReadDeadline(time.Now().Add(e.pollInterval))

	n, addr, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, nil, ErrNoData
		}
		return 0, nil, fmt.Errorf("receive: %w", err)
	}
	return n, addr, nil
}

// LocalAddr returns the bound local address.
func (e *Endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// RemoteAddr returns the resolved peer address.
func (e *Endpoint) RemoteAddr() net.Addr {
	return e.remote
}

// Close releases the socket.
func (e *Endpoint) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.conn.Close()
}
