// Package observer maintains a bounded pool of observer sessions and pushes
// state notifications to them.
//
// Each Session owns a buffered outbound queue drained by its own writer
// goroutine, so Broadcast never blocks the control loop. A session whose
// write fails is marked dead and its slot becomes reusable; a full queue
// drops the message.
//
// The line-protocol server and the websocket endpoint each run a Pool.
// Fanout joins several pools into one hvac.Broadcaster.
package observer
