// Package net carries the block-sync sub-protocol between rollup nodes.
//
// A session opens with a protocol header (a u32 protocol id followed by a
// u16-length-prefixed protocol name). The dialer writes the header and the
// acceptor answers with its own; either side closes the connection on a
// mismatch. After that every message is a frame: a little-endian u32 length
// followed by that many bytes.
//
// An established session is exposed as a Stream. Sessions accepted by a
// Transport are offered to a Source, a single-slot hand-off to the block-sync
// client. At most one stream is useful at a time, so the Source holds one and
// applies its Policy to any session arriving while the slot is full.
//
// There are two Transport implementations:
//
// - TCP: NetworkTransport over a TCPStreamLayer
//
// - Inmem: in-memory pipes, used for testing
package net
