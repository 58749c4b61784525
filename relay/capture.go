package relay

import (
	"time"

	"github.com/sirupsen/logrus"
)

// captureLoop reads fixed-size frames from the source, transforms them,
// and ships them to the peer. It busy-polls: an empty read iterates
// immediately so the loop stays within one read of live input. The
// only sleep is the transform's send pacing, which raw mode uses to
// keep large uncompressed frames from flooding the peer.
func (r *Relay) captureLoop() {
	defer close(r.captureDone)

	buf := make([]byte, r.transform.FrameBytes())
	pacing := r.transform.SendPacing()

	for !r.captureQuit.Load() {
		n, err := r.source.ReadFrame(buf)
		if err != nil {
			logrus.WithField("error", err.Error()).Warn("capture read failed")
			continue
		}
		if n == 0 {
			continue
		}

		datagram, err := r.transform.Outbound(buf[:n])
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"frame_bytes": n,
				"error":       err.Error(),
			}).Warn("outbound transform failed, frame dropped")
			continue
		}

		// Best-effort delivery: a failed send is logged and the loop
		// moves on, the transport is lossy anyway.
		if _, err := r.conn.Send(datagram); err != nil {
			logrus.WithFields(logrus.Fields{
				"size":  len(datagram),
				"error": err.Error(),
			}).Warn("send failed")
		}

		if pacing > 0 {
			time.Sleep(pacing)
		}
	}

	logrus.Debug("capture loop exited")
}
