package relay

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FrameSource supplies raw PCM capture frames. ReadFrame must not
// block: it returns (0, nil) when no data is currently available, and
// the capture loop polls again immediately.
type FrameSource interface {
	ReadFrame(buf []byte) (int, error)
}

// FDSource reads capture frames from a file descriptor switched to
// non-blocking mode, typically standard input fed by an external
// recording process. Reads bypass the Go runtime poller so that an
// empty pipe yields EAGAIN instead of parking the goroutine.
type FDSource struct {
	fd int
}

// NewFDSource puts fd into non-blocking mode and wraps it.
func NewFDSource(fd int) (*FDSource, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("set fd %d non-blocking: %w", fd, err)
	}
	return &FDSource{fd: fd}, nil
}

// NewStdinSource wraps standard input as a non-blocking frame source.
func NewStdinSource() (*FDSource, error) {
	return NewFDSource(int(os.Stdin.Fd()))
}

// ReadFrame reads up to len(buf) bytes. An empty pipe, an interrupted
// read, and end-of-file all report (0, nil): the capture loop keeps
// polling, matching the relay's treatment of the source as a live
// stream that may simply have nothing to say right now.
func (s *FDSource) ReadFrame(buf []byte) (int, error) {
	n, err := unix.Read(s.fd, buf)
	switch err {
	case nil:
	case unix.EAGAIN, unix.EINTR:
		return 0, nil
	default:
		return 0, fmt.Errorf("read capture source: %w", err)
	}
	if n <= 0 {
		return 0, nil
	}
	return n, nil
}
