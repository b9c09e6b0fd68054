// Package hvac is the command and state synchronisation core.
//
// A Registry maps device identifiers to their immutable configuration, a
// Store keeps one runtime State per device, and a Processor interprets
// decoded Commands against both: it resolves the device and its emitter,
// transmits through the waveform codec or the named-protocol sender, commits
// the new state and fans out a notification when the state materially
// changed.
//
// None of these types lock. All access goes through a Loop, a single
// goroutine that runs submitted closures one at a time, so each command's
// lookup, send, commit and broadcast sequence is atomic with respect to
// every other command.
package hvac
