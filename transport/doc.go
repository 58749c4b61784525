// Package transport provides the UDP endpoint for the relay.
//
// An Endpoint owns one bound socket used for both directions: datagrams
// are sent to the pre-resolved peer address and received from whatever
// source reaches the local port. The transport is connectionless and
// best-effort; there is no retry, ordering, or delivery
// guarantee.
//
// Receives are bounded by a short read deadline rather than blocking
// indefinitely, so the caller's loop can poll its interrupt flag at a
// fixed cadence. The deadline is the poll interval of the whole receive
// path and is tunable through Config.
package transport
