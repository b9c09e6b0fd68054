// Package emitter owns the controller's IR output channels.
//
// A Manager is built from configuration and hands out Handles by index.
// Each Handle carries a raw pulse sender and, unless disabled, a
// named-protocol sender. Two transports exist: "log" writes every program to
// the structured log, "mqtt" publishes it as JSON for a remote LED driver.
//
// Handles are only valid until the next rebuild; callers borrow them per
// command and never keep them.
package emitter
