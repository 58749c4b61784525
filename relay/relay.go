package relay

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/voicelink/codec"
)

// queueWaitTimeout caps the playback loop's wait on the frame queue.
// It exists only so the loop re-checks its quit flag periodically when
// no audio is arriving; a timeout is starvation, not an error.
const queueWaitTimeout = 3 * time.Second

// PacketConn is the network surface the relay needs: best-effort send
// to the pre-resolved peer and a deadline-bounded receive. Satisfied by
// *transport.Endpoint.
type PacketConn interface {
	Send(datagram []byte) (int, error)
	Receive(buf []byte) (int, net.Addr, error)
	Close() error
}

// Output is the playback surface. Play may block until the hardware
// accepts the buffer. Satisfied by *audiodev.Device.
type Output interface {
	Play(pcm []byte) error
	Close() error
}

// Relay coordinates the three pipeline flows and owns their shutdown.
// After Run returns, the transform, connection, and output device are
// closed; a Relay is single-use.
type Relay struct {
	transform codec.Transform
	conn      PacketConn
	out       Output
	source    FrameSource
	queue     *FrameQueue

	// One quit flag per long-lived loop, written only by the
	// coordinator during shutdown and read only by the owning loop.
	captureQuit  atomic.Bool
	playbackQuit atomic.Bool

	captureDone  chan struct{}
	playbackDone chan struct{}

	interrupted atomic.Bool
	ran         atomic.Bool
}

// New assembles a relay from its collaborators. The relay takes
// ownership of transform, conn, and out; all three are closed when Run
// returns.
func New(transform codec.Transform, conn PacketConn, out Output, source FrameSource) (*Relay, error) {
	if transform == nil {
		return nil, ErrMissingTransform
	}
	if conn == nil {
		return nil, ErrMissingConn
	}
	if out == nil {
		return nil, ErrMissingOutput
	}
	if source == nil {
		return nil, ErrMissingSource
	}

	return &Relay{
		transform:    transform,
		conn:         conn,
		out:          out,
		source:       source,
		queue:        NewFrameQueue(),
		captureDone:  make(chan struct{}),
		playbackDone: make(chan struct{}),
	}, nil
}

// Interrupt requests termination of the receive loop and, through it,
// of the whole relay. Safe to call from a signal-handling goroutine;
// it only sets a flag that Run's loop polls.
func (r *Relay) Interrupt() {
	r.interrupted.Store(true)
}

// Run starts the capture and playback loops, drives the receive loop
// on the calling goroutine until Interrupt is called, then performs the
// ordered shutdown. It returns after both loops have been joined and
// all collaborators are closed.
func (r *Relay) Run() error {
	if !r.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRan
	}

	logrus.Info("relay starting")

	go r.playbackLoop()
	go r.captureLoop()

	r.receiveLoop()
	r.shutdown()

	logrus.Info("relay stopped")
	return nil
}

// shutdown is the two-phase teardown: capture first (it never blocks,
// so it exits within one poll), then playback, which must be woken out
// of its timed wait before it can observe its quit flag.
func (r *Relay) shutdown() {
	r.captureQuit.Store(true)
	<-r.captureDone

	r.playbackQuit.Store(true)
	r.queue.Signal()
	<-r.playbackDone

	if err := r.transform.Close(); err != nil {
		logrus.WithField("error", err.Error()).Warn("transform close failed")
	}
	if err := r.out.Close(); err != nil {
		logrus.WithField("error", err.Error()).Warn("output device close failed")
	}
	if err := r.conn.Close(); err != nil {
		logrus.WithField("error", err.Error()).Warn("connection close failed")
	}
}
