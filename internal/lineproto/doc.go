// Package lineproto serves the newline-delimited JSON command protocol.
//
// Each accepted TCP connection is attached to an observer.Pool slot, receives
// a full state snapshot, and from then on both issues commands and receives
// unsolicited state notifications. Lines are split by a Splitter: carriage
// returns are dropped and a line feed ends a line. Lines that fail to decode
// get an invalid_json reply; the connection stays open.
//
// Lifecycle:
//
//	srv, err := lineproto.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
package lineproto
