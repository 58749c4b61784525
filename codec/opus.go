package codec

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"layeh.com/gopus"

	"github.com/opd-ai/voicelink/protocol"
)

// frameDurationMs is the fixed frame duration. 20 ms is the standard
// speech frame and yields 320 samples at the default 16 kHz rate.
const frameDurationMs = 20

// Opus is the compressed-mode transform. Captured frames are encoded
// with the Opus speech profile and framed with the protocol header;
// received payloads pass through a timestamp-ordered jitter buffer and
// are decoded one fixed-size PCM frame at a time, with silence
// concealment when the expected packet never arrived.
type Opus struct {
	enc *gopus.Encoder

	// timestamp is the sender frame clock. It is touched only by the
	// capture loop and advances by frameSamples per encoded frame.
	timestamp uint32
	sendBuf   []byte

	// mu guards the decoder and jitter buffer, which race between the
	// receive loop (Put) and the playback loop (Get + decode). It is
	// intentionally distinct from the frame queue's lock.
	mu        sync.Mutex
	dec       *gopus.Decoder
	jitter    *JitterBuffer
	concealed uint64

	sampleRate   int
	frameSamples int
	closed       bool
}

// NewOpus creates the compressed-mode transform for the given sample
// rate. Only mono streams are supported; Opus speech framing operates
// on a single channel here, matching the relay's wire format.
func NewOpus(sampleRate, channels int) (*Opus, error) {
	if channels != 1 {
		return nil, fmt.Errorf("%w: %d (compressed mode is mono)", ErrUnsupportedChannels, channels)
	}
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return nil, fmt.Errorf("%w: %d Hz", ErrUnsupportedRate, sampleRate)
	}

	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	dec, err := gopus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}

	frameSamples := sampleRate * frameDurationMs / 1000
	o := &Opus{
		enc:          enc,
		dec:          dec,
		jitter:       NewJitterBuffer(),
		sampleRate:   sampleRate,
		frameSamples: frameSamples,
		sendBuf:      make([]byte, protocol.MaxCompressedDatagram),
	}

	logrus.WithFields(logrus.Fields{
		"sample_rate":   sampleRate,
		"frame_samples": frameSamples,
	}).Info("opus transform initialized")

	return o, nil
}

// FrameBytes returns the fixed capture frame size: frameSamples 16-bit
// mono samples.
func (o *Opus) FrameBytes() int { return o.frameSamples * 2 }

// FrameSamples returns the number of samples per frame.
func (o *Opus) FrameSamples() int { return o.frameSamples }

// MaxDatagram returns the compressed-mode datagram limit.
func (o *Opus) MaxDatagram() int { return protocol.MaxCompressedDatagram }

// SendPacing returns zero: the encoder's fixed frame cadence already
// paces the compressed stream.
func (o *Opus) SendPacing() time.Duration { return 0 }

// Outbound encodes one PCM frame and prepends the protocol header.
// Short frames (a partial read from the source) are zero-padded to the
// full frame before encoding. The returned slice is reused across
// calls.
func (o *Opus) Outbound(pcm []byte) ([]byte, error) {
	if o.closed {
		return nil, ErrTransformClosed
	}
	if len(pcm) > o.FrameBytes() {
		return nil, fmt.Errorf("%w: %d bytes, frame is %d", ErrFrameTooLarge, len(pcm), o.FrameBytes())
	}

	samples := make([]int16, o.frameSamples)
	pcmToSamples(pcm, samples)

	encoded, err := o.enc.Encode(samples, o.frameSamples, protocol.MaxCompressedDatagram-protocol.HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}

	datagram := o.sendBuf[:protocol.HeaderSize+len(encoded)]
	protocol.AppendHeader(datagram, o.timestamp)
	copy(datagram[protocol.HeaderSize:], encoded)
	o.timestamp += uint32(o.frameSamples)

	return datagram, nil
}

// Inbound validates the protocol framing, copies the payload into an
// owned buffer, and feeds it to the jitter buffer under the codec lock.
// The owned buffer is returned for the frame queue; in compressed mode
// the queue entry only drives playback cadence, the audio itself comes
// out of the jitter buffer.
func (o *Opus) Inbound(datagram []byte) ([]byte, error) {
	if err := protocol.ValidateDatagramSize(datagram, protocol.MaxCompressedDatagram); err != nil {
		return nil, err
	}

	hdr, payload, sigOK, err := protocol.ParseHeader(datagram)
	if err != nil {
		return nil, err
	}
	if !sigOK {
		logrus.WithFields(logrus.Fields{
			"timestamp": hdr.Timestamp,
			"size":      len(datagram),
		}).Debug("datagram signature mismatch, processing anyway")
	}

	owned := make([]byte, len(payload))
	copy(owned, payload)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrTransformClosed
	}
	o.jitter.Put(owned, hdr.Timestamp)
	o.mu.Unlock()

	return owned, nil
}

// PlaybackFrame pulls the next payload out of the jitter buffer and
// decodes it into one fixed-size PCM frame. When the buffer has nothing
// to deliver, or decoding fails, the gap is concealed with a silent
// frame so playback cadence is preserved. The queued buffer is ignored;
// it only signalled that a datagram arrived.
func (o *Opus) PlaybackFrame(_ []byte) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrTransformClosed
	}

	payload, timestamp, ok := o.jitter.Get()
	if !ok {
		o.concealed++
		return make([]byte, o.FrameBytes()), nil
	}

	samples, err := o.dec.Decode(payload, o.frameSamples, false)
	if err != nil {
		o.concealed++
		logrus.WithFields(logrus.Fields{
			"timestamp": timestamp,
			"size":      len(payload),
			"error":     err.Error(),
		}).Warn("opus decode failed, concealing frame")
		return make([]byte, o.FrameBytes()), nil
	}

	return samplesToPCM(samples), nil
}

// JitterStats returns a snapshot of jitter buffer counters plus the
// number of frames concealed on playback.
func (o *Opus) JitterStats() (JitterStats, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.jitter == nil {
		return JitterStats{}, o.concealed
	}
	return o.jitter.Stats(), o.concealed
}

// Close releases codec state. gopus frees its C state through
// finalizers; dropping the references here is sufficient.
func (o *Opus) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.enc = nil
	o.dec = nil
	o.jitter = nil
	return nil
}

// pcmToSamples fills dst with little-endian 16-bit samples from b,
// zero-padding when b covers fewer samples than dst.
func pcmToSamples(b []byte, dst []int16) {
	n := len(b) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// samplesToPCM converts 16-bit samples to little-endian bytes.
func samplesToPCM(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
