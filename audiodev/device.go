// Package audiodev abstracts the audio output device behind a small
// open/play/close surface, backed by PortAudio.
//
// Play may block until the hardware accepts the buffer; the relay's
// playback loop relies on that for output pacing in raw mode. Only
// 16-bit signed little-endian PCM is supported, matching the wire
// format on both paths.
package audiodev

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

// Sentinel errors for device operations.
var (
	// ErrUnsupportedBits indicates a bit depth other than 16.
	ErrUnsupportedBits = errors.New("unsupported bits per sample")

	// ErrNoSuchDevice indicates a device index outside the host's
	// device list.
	ErrNoSuchDevice = errors.New("no such output device")

	// ErrDeviceClosed indicates use of a device after Close.
	ErrDeviceClosed = errors.New("output device is closed")
)

// UseDefaultDevice selects the host's default output device.
const UseDefaultDevice = -1

// Config describes the output stream to open.
type Config struct {
	// SampleRate in Hz, per channel.
	SampleRate int

	// Bits per sample. Only 16 is supported.
	Bits int

	// Channels is the interleaved channel count.
	Channels int

	// DeviceIndex selects an entry from the host device list, or
	// UseDefaultDevice.
	DeviceIndex int
}

// Device is an open PortAudio output stream.
type Device struct {
	stream   *portaudio.Stream
	buf      []int16
	channels int
	closed   bool
}

// Open initializes PortAudio and opens an output stream with the given
// format. The stream accepts variable-length writes, which playback
// needs because raw-mode datagrams are not fixed-size.
func Open(cfg Config) (*Device, error) {
	if cfg.Bits != 16 {
		return nil, fmt.Errorf("%w: %d (only 16-bit PCM)", ErrUnsupportedBits, cfg.Bits)
	}
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", cfg.Channels)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	info, err := pickDevice(cfg.DeviceIndex)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}

	d := &Device{channels: cfg.Channels}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: cfg.Channels,
			Latency:  info.DefaultHighOutputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}

	stream, err := portaudio.OpenStream(params, &d.buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	d.stream = stream

	logrus.WithFields(logrus.Fields{
		"device":      info.Name,
		"sample_rate": cfg.SampleRate,
		"channels":    cfg.Channels,
		"bits":        cfg.Bits,
	}).Info("output device opened")

	return d, nil
}

// pickDevice resolves a device index against the host device list.
func pickDevice(index int) (*portaudio.DeviceInfo, error) {
	if index == UseDefaultDevice {
		info, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("default output device: %w", err)
		}
		return info, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("%w: index %d, host has %d devices", ErrNoSuchDevice, index, len(devices))
	}
	return devices[index], nil
}

// ListDevices returns the names of the host's output-capable devices,
// indexed as Config.DeviceIndex expects. Used for diagnostics when a
// device override fails.
func ListDevices() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	names := make([]string, len(devices))
	for i, info := range devices {
		names[i] = info.Name
	}
	return names, nil
}

// Play submits one buffer of interleaved 16-bit little-endian PCM.
// It blocks until PortAudio has accepted the whole buffer. A trailing
// odd byte is ignored.
func (d *Device) Play(pcm []byte) error {
	if d.closed {
		return ErrDeviceClosed
	}

	samples := len(pcm) / 2
	// Truncate to whole interleaved frames.
	samples -= samples % d.channels
	if samples == 0 {
		return nil
	}

	d.buf = d.buf[:0]
	for i := 0; i < samples; i++ {
		d.buf = append(d.buf, int16(pcm[i*2])|int16(pcm[i*2+1])<<8)
	}

	if err := d.stream.Write(); err != nil {
		return fmt.Errorf("write to output stream: %w", err)
	}
	return nil
}

// Close stops the stream and shuts PortAudio down.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var firstErr error
	if err := d.stream.Stop(); err != nil {
		firstErr = fmt.Errorf("stop output stream: %w", err)
	}
	if err := d.stream.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close output stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("terminate portaudio: %w", err)
	}
	return firstErr
}
