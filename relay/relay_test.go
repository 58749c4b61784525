package relay

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/voicelink/codec"
	"github.com/opd-ai/voicelink/transport"
)

// fakeConn records sends and serves queued inbound datagrams,
// mimicking the endpoint's deadline-bounded receive.
type fakeConn struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	closed  bool

	inbox chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbox: make(chan []byte, 64)}
}

func (c *fakeConn) Send(datagram []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, transport.ErrEndpointClosed
	}
	owned := make([]byte, len(datagram))
	copy(owned, datagram)
	c.sent = append(c.sent, owned)
	if c.sendErr != nil {
		return 0, c.sendErr
	}
	return len(datagram), nil
}

func (c *fakeConn) Receive(buf []byte) (int, net.Addr, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, nil, transport.ErrEndpointClosed
	}

	select {
	case d := <-c.inbox:
		n := copy(buf, d)
		return n, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}, nil
	case <-time.After(5 * time.Millisecond):
		return 0, nil, transport.ErrNoData
	}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// fakeOutput records played buffers and flags any use after close.
type fakeOutput struct {
	mu               sync.Mutex
	played           [][]byte
	closed           bool
	playedAfterClose bool
}

func (o *fakeOutput) Play(pcm []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		o.playedAfterClose = true
		return nil
	}
	owned := make([]byte, len(pcm))
	copy(owned, pcm)
	o.played = append(o.played, owned)
	return nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *fakeOutput) playedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.played)
}

// fakeSource serves queued frames; an empty source reads as "no data
// yet" with a small delay so the test doesn't spin a core.
type fakeSource struct {
	frames chan []byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan []byte, 64)}
}

func (s *fakeSource) ReadFrame(buf []byte) (int, error) {
	select {
	case f := <-s.frames:
		return copy(buf, f), nil
	case <-time.After(time.Millisecond):
		return 0, nil
	}
}

func newTestRelay(t *testing.T) (*Relay, *fakeConn, *fakeOutput, *fakeSource) {
	t.Helper()
	conn := newFakeConn()
	out := &fakeOutput{}
	source := newFakeSource()
	r, err := New(codec.NewPassthrough(), conn, out, source)
	require.NoError(t, err)
	return r, conn, out, source
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewValidatesCollaborators(t *testing.T) {
	conn := newFakeConn()
	out := &fakeOutput{}
	source := newFakeSource()
	tr := codec.NewPassthrough()

	tests := []struct {
		name      string
		build     func() (*Relay, error)
		expectErr error
	}{
		{name: "missing_transform", build: func() (*Relay, error) { return New(nil, conn, out, source) }, expectErr: ErrMissingTransform},
		{name: "missing_conn", build: func() (*Relay, error) { return New(tr, nil, out, source) }, expectErr: ErrMissingConn},
		{name: "missing_output", build: func() (*Relay, error) { return New(tr, conn, nil, source) }, expectErr: ErrMissingOutput},
		{name: "missing_source", build: func() (*Relay, error) { return New(tr, conn, out, nil) }, expectErr: ErrMissingSource},
		{name: "complete", build: func() (*Relay, error) { return New(tr, conn, out, source) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.build()
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, r)
		})
	}
}

func TestRelayCapturesAndTransmitsEveryFrame(t *testing.T) {
	r, conn, _, source := newTestRelay(t)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	const frames = 3
	for i := 0; i < frames; i++ {
		source.frames <- []byte{byte(i), 0xaa, 0xbb}
	}

	waitFor(t, func() bool { return conn.sentCount() == frames }, "all frames to be sent")

	r.Interrupt()
	require.NoError(t, <-done)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.sent, frames)
	for i, d := range conn.sent {
		assert.Equal(t, []byte{byte(i), 0xaa, 0xbb}, d, "raw mode sends frames unchanged")
	}
}

func TestRelayReceivesAndPlaysInOrder(t *testing.T) {
	r, conn, out, _ := newTestRelay(t)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	conn.inbox <- []byte{1, 1}
	conn.inbox <- []byte{2, 2}
	conn.inbox <- []byte{3, 3}

	waitFor(t, func() bool { return out.playedCount() == 3 }, "all datagrams to be played")

	r.Interrupt()
	require.NoError(t, <-done)

	out.mu.Lock()
	defer out.mu.Unlock()
	assert.Equal(t, [][]byte{{1, 1}, {2, 2}, {3, 3}}, out.played)
}

func TestRelayShutdownSequencing(t *testing.T) {
	r, conn, out, _ := newTestRelay(t)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	// Let the loops spin up, then interrupt with nothing in flight.
	time.Sleep(20 * time.Millisecond)
	r.Interrupt()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(queueWaitTimeout + 2*time.Second):
		t.Fatal("relay did not shut down within the playback wait bound")
	}

	// Both loops joined and every collaborator closed.
	<-r.captureDone
	<-r.playbackDone
	conn.mu.Lock()
	assert.True(t, conn.closed)
	conn.mu.Unlock()
	out.mu.Lock()
	assert.True(t, out.closed)
	assert.False(t, out.playedAfterClose, "no device submission after shutdown")
	out.mu.Unlock()
}

func TestRelaySendFailureDoesNotStopCapture(t *testing.T) {
	r, conn, _, source := newTestRelay(t)
	conn.sendErr = assert.AnError

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	source.frames <- []byte{1}
	source.frames <- []byte{2}

	waitFor(t, func() bool { return conn.sentCount() == 2 }, "capture to keep sending after a failure")

	r.Interrupt()
	require.NoError(t, <-done)
}

func TestRelayIsSingleUse(t *testing.T) {
	r, _, _, _ := newTestRelay(t)

	r.Interrupt()
	require.NoError(t, r.Run())

	assert.ErrorIs(t, r.Run(), ErrAlreadyRan)
}
