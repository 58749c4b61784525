// Package protocol defines the voicelink wire format and datagram size
// limits. Centralizing the limits here keeps validation consistent across
// the transport and codec layers.
//
// Compressed-mode datagrams carry a fixed 8-byte header:
//
//	offset 0: 4-byte signature 0xCAFEBABE, big endian
//	offset 4: 4-byte frame timestamp, little endian
//	offset 8: Opus payload
//
// The timestamp advances by the frame size (in samples) per encoded
// frame and is monotonic for the lifetime of the sending process.
// Raw-mode datagrams have no header; the whole body is PCM.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Signature marks the start of a compressed-mode datagram.
	Signature = 0xcafebabe

	// HeaderSize is the fixed size of the compressed-mode header.
	HeaderSize = 8

	// MaxCompressedDatagram bounds a compressed-mode datagram
	// (header plus encoded payload) to a single Ethernet MTU.
	MaxCompressedDatagram = 1500

	// MaxRawDatagram bounds a raw-mode datagram. It matches the
	// fixed capture buffer size in raw mode.
	MaxRawDatagram = 8192
)

var (
	// ErrShortDatagram indicates a compressed-mode datagram smaller
	// than the fixed header.
	ErrShortDatagram = errors.New("datagram shorter than header")

	// ErrDatagramTooLarge indicates a payload that exceeds the mode's
	// datagram limit.
	ErrDatagramTooLarge = errors.New("datagram too large")
)

// Header is the fixed prefix of every compressed-mode datagram.
type Header struct {
	// Timestamp is the sender's frame clock, in samples.
	Timestamp uint32
}

// AppendHeader writes the header for the given timestamp into the first
// HeaderSize bytes of dst. dst must have room for at least HeaderSize
// bytes.
func AppendHeader(dst []byte, timestamp uint32) {
	binary.BigEndian.PutUint32(dst[0:4], Signature)
	binary.LittleEndian.PutUint32(dst[4:8], timestamp)
}

// ParseHeader splits a compressed-mode datagram into its header and
// payload. The payload aliases data; callers that retain it past the
// datagram's lifetime must copy it.
//
// A wrong signature does not reject the datagram. The relay predates
// strict signature checking on the wire, and peers in the field send
// valid audio either way; the mismatch is reported to the caller
// through the returned ok flag for diagnostics only.
func ParseHeader(data []byte) (hdr Header, payload []byte, sigOK bool, err error) {
	if len(data) < HeaderSize {
		return Header{}, nil, false, fmt.Errorf("%w: got %d bytes, need %d", ErrShortDatagram, len(data), HeaderSize)
	}
	sigOK = binary.BigEndian.Uint32(data[0:4]) == Signature
	hdr.Timestamp = binary.LittleEndian.Uint32(data[4:8])
	return hdr, data[HeaderSize:], sigOK, nil
}

// ValidateDatagramSize checks a datagram body against the given limit.
func ValidateDatagramSize(data []byte, max int) error {
	if len(data) > max {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrDatagramTooLarge, len(data), max)
	}
	return nil
}
