package audiodev

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Hardware-dependent paths (Open against a real host device) are not
// exercised here; these tests cover the validation that runs before
// PortAudio is touched.

func TestOpenRejectsUnsupportedBits(t *testing.T) {
	tests := []struct {
		name string
		bits int
	}{
		{name: "eight_bit", bits: 8},
		{name: "twenty_four_bit", bits: 24},
		{name: "zero", bits: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(Config{SampleRate: 8000, Bits: tt.bits, Channels: 1, DeviceIndex: UseDefaultDevice})
			assert.ErrorIs(t, err, ErrUnsupportedBits)
		})
	}
}

func TestOpenRejectsInvalidChannels(t *testing.T) {
	_, err := Open(Config{SampleRate: 8000, Bits: 16, Channels: 0, DeviceIndex: UseDefaultDevice})
	assert.Error(t, err)
}

func TestClosedDeviceRejectsPlay(t *testing.T) {
	d := &Device{closed: true}
	assert.ErrorIs(t, d.Play([]byte{0, 0}), ErrDeviceClosed)
	assert.NoError(t, d.Close(), "close after close is harmless")
}
