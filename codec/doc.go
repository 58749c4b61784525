// Package codec implements the frame transform capability of the relay
// pipeline.
//
// A Transform sits between the capture/playback loops and the network,
// converting PCM frames to datagrams and back. Two implementations
// exist:
//
//   - Passthrough: raw PCM in both directions, no header, explicit
//     pacing between sends.
//   - Opus: speech encoding via layeh.com/gopus, an 8-byte protocol
//     header carrying a monotonic frame timestamp, and a
//     timestamp-ordered jitter buffer that conceals lost or late
//     packets on the playback side.
//
// The encoder state is exclusive to the capture loop. The decoder and
// jitter buffer are shared between the receive loop (producer) and the
// playback loop (consumer) and are serialized by a single lock internal
// to the Opus transform; that lock is held across the decode call
// itself, which is bounded CPU-only work.
package codec
