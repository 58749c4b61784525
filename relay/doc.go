// Package relay implements the core audio pipeline: three concurrent
// control flows connected by a frame queue.
//
//	source ──▸ capture loop ──▸ transform ──▸ peer        (capture goroutine)
//	peer ──▸ receive loop ──▸ transform ──▸ frame queue   (Run's goroutine)
//	frame queue ──▸ playback loop ──▸ output device       (playback goroutine)
//
// The capture and receive paths never block: both busy-poll with
// non-blocking I/O so that interrupt and quit flags are observed
// promptly. The playback loop is the only blocking point, waiting on
// the queue's notification with a fixed 3-second ceiling so it can
// re-check its quit flag even when no audio arrives.
//
// Each long-lived loop owns one run-state flag, written only by the
// coordinator during shutdown and read only by the owning loop.
// Shutdown is two-phase: the capture loop is stopped and joined first
// (it has no blocking wait, so it exits promptly), then the playback
// quit flag is set, the queue is re-signalled to break a pending timed
// wait, and the playback loop is joined. Only then are the codec,
// device, and socket released.
package relay
