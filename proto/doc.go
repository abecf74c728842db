// Package proto implements the binary request/reply protocol that exposes the
// scanner to external consumers.
//
// A request is [opcode: 1 byte][payload: 0..N bytes]. A reply is
// [status: 1 byte][payload], where status 0x00 means success and 0x01 means
// error with exactly one error code byte as payload.
//
// The Dispatcher decodes requests and drives the scanner; it is transport
// agnostic and handles one request per call. Server and Client carry the
// protocol over TCP, delimiting each request and reply with a 2-byte
// big-endian length prefix.
package proto
