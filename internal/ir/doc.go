// Package ir converts textual infrared codes into pulse programs.
//
// Three encodings are understood:
//
//   - gc: Global Caché "sendir" style decimal lists, handed to a GC sender
//   - pronto: Pronto hex words with an optional leading "R<n>" repeat token
//   - racepoint: hex words carrying a carrier frequency followed by
//     half-cycle durations, synthesised here into mark/space pulses
//
// The package performs no I/O. Callers provide a PulseSender that drives the
// actual hardware (or a transport standing in for it).
package ir
