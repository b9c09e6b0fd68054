// Package acproto describes the named-protocol climate abstraction the
// controller drives: the parameter set a manufacturer protocol encoder
// accepts, the catalogue of protocol names it knows, and the lenient string
// coercions applied to user input before a send.
//
// Encoding the parameters into a manufacturer bit stream is the job of a
// Sender implementation owned by the emitter layer.
package acproto
