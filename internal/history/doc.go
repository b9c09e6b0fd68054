// Package history persists device state changes and the command audit log
// in SQLite.
//
// StateHistory keeps a JSON snapshot of every material state change and is
// pruned to a retention window. CommandLog records each send and raw
// command with its origin and outcome. Both implement the hvac event sink
// interfaces, so they run off the control loop via hvac.Dispatcher; a
// failed write is logged and never fails the command that produced it.
package history
