// Package events defines the normalized streaming event shared by every
// provider adapter, plus the newline-delimited JSON codec used on the wire.
//
// Design decisions:
//   - Sealed union: Event is an interface with an unexported marker method,
//     one struct per variant (Start, Delta, End, Error)
//   - Efficient JSON: Custom marshaling with pre-allocated type markers,
//     gjson/sjson for field access without reflection
//   - Atomic emission: Encoder serializes concurrent writers so one event
//     is always exactly one complete line, flushed immediately
//
// Sequencing contract, per model within one request:
//   - at most one Start
//   - zero or more Delta, in upstream chunk order
//   - exactly one End or Error, never both
//
// No ordering is guaranteed across models; a consumer demultiplexes by the
// model tag and treats each sequence independently.
package events
