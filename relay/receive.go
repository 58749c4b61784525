package relay

import (
	"errors"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/voicelink/transport"
)

// receiveLoop pulls datagrams off the socket, transforms them, and
// enqueues the result for playback. It runs on Run's goroutine and is
// the relay's interrupt point: each iteration polls the interrupt flag
// before touching the network, so the signal handler only ever has to
// set that flag.
func (r *Relay) receiveLoop() {
	buf := make([]byte, r.transform.MaxDatagram())

	for {
		if r.interrupted.Load() {
			logrus.Info("interrupted, exiting")
			return
		}

		n, addr, err := r.conn.Receive(buf)
		if err != nil {
			if errors.Is(err, transport.ErrNoData) {
				continue
			}
			if errors.Is(err, transport.ErrEndpointClosed) || errors.Is(err, net.ErrClosed) {
				logrus.Debug("receive socket closed")
				return
			}
			logrus.WithField("error", err.Error()).Warn("receive failed")
			continue
		}

		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			logrus.WithFields(logrus.Fields{
				"size": n,
				"from": senderName(addr),
			}).Debug("received datagram")
		}

		queued, err := r.transform.Inbound(buf[:n])
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"size":  n,
				"error": err.Error(),
			}).Warn("inbound transform failed, datagram dropped")
			continue
		}

		r.queue.Enqueue(queued)
	}
}

// senderName resolves the sender address to a host name for
// diagnostics, falling back to the numeric form when the lookup fails.
// Called only at Debug level; the reverse lookup is not on the hot
// path otherwise.
func senderName(addr net.Addr) string {
	if addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	names, err := net.LookupAddr(host)
	if err != nil || len(names) == 0 {
		logrus.WithFields(logrus.Fields{
			"addr": addr.String(),
		}).Debug("reverse lookup failed")
		return host
	}
	return names[0]
}
