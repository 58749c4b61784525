package codec

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/voicelink/protocol"
)

// Transform converts captured PCM frames into datagrams and received
// datagrams into playable PCM frames. It is the single point of
// variation between the raw and compressed operating modes.
//
// Outbound is called only from the capture loop. Inbound is called only
// from the receive loop. PlaybackFrame is called only from the playback
// loop. Implementations that keep shared decode state must serialize
// Inbound and PlaybackFrame internally.
type Transform interface {
	// FrameBytes returns the fixed size in bytes of one capture frame.
	FrameBytes() int

	// MaxDatagram returns the largest datagram the transform accepts
	// on the inbound path.
	MaxDatagram() int

	// SendPacing returns the delay the capture loop must observe after
	// each successful send. Zero means no pacing.
	SendPacing() time.Duration

	// Outbound converts one captured PCM frame into a datagram body
	// ready for transmission. The returned slice may alias internal
	// buffers and is only valid until the next Outbound call.
	Outbound(pcm []byte) ([]byte, error)

	// Inbound processes one received datagram and returns an owned
	// buffer to enqueue for playback. The input slice is not retained.
	Inbound(datagram []byte) ([]byte, error)

	// PlaybackFrame converts one queued buffer into the PCM frame to
	// submit to the output device.
	PlaybackFrame(queued []byte) ([]byte, error)

	// Close releases codec resources. The transform must not be used
	// afterwards.
	Close() error
}

// rawSendPacing is the delay between raw-mode sends. Raw frames are
// large (up to 8 KiB) and unpaced sends would flood the peer.
const rawSendPacing = 50 * time.Millisecond

// Passthrough is the raw-mode transform: PCM travels uncompressed with
// no header in either direction.
type Passthrough struct {
	closed bool
}

// NewPassthrough creates the raw PCM transform.
func NewPassthrough() *Passthrough {
	logrus.WithFields(logrus.Fields{
		"frame_bytes": protocol.MaxRawDatagram,
		"pacing":      rawSendPacing.String(),
	}).Debug("created passthrough transform")
	return &Passthrough{}
}

// FrameBytes returns the raw-mode capture buffer size.
func (p *Passthrough) FrameBytes() int { return protocol.MaxRawDatagram }

// MaxDatagram returns the raw-mode datagram limit.
func (p *Passthrough) MaxDatagram() int { return protocol.MaxRawDatagram }

// SendPacing returns the fixed raw-mode inter-send delay.
func (p *Passthrough) SendPacing() time.Duration { return rawSendPacing }

// Outbound passes the captured frame through unchanged.
func (p *Passthrough) Outbound(pcm []byte) ([]byte, error) {
	if p.closed {
		return nil, ErrTransformClosed
	}
	if err := protocol.ValidateDatagramSize(pcm, protocol.MaxRawDatagram); err != nil {
		return nil, err
	}
	return pcm, nil
}

// Inbound copies the datagram into an owned buffer for the queue.
func (p *Passthrough) Inbound(datagram []byte) ([]byte, error) {
	if p.closed {
		return nil, ErrTransformClosed
	}
	if err := protocol.ValidateDatagramSize(datagram, protocol.MaxRawDatagram); err != nil {
		return nil, err
	}
	owned := make([]byte, len(datagram))
	copy(owned, datagram)
	return owned, nil
}

// PlaybackFrame returns the queued PCM unchanged.
func (p *Passthrough) PlaybackFrame(queued []byte) ([]byte, error) {
	if p.closed {
		return nil, ErrTransformClosed
	}
	return queued, nil
}

// Close marks the transform closed.
func (p *Passthrough) Close() error {
	p.closed = true
	return nil
}
