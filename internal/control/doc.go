// Package control implements the remote pause/resume protocol for the
// capture stream.
//
// Commands arrive as bare string payloads on the per-receiver control
// topic. The vocabulary is deliberately tiny - "PAUSE" and "RESUME",
// exact match, case-sensitive - so an operator can drive a receiver
// from any MQTT client without framing or serialization. Everything
// else that lands on the topic is logged and recorded as unknown.
//
// The dispatcher holds the stream's two-state machine. Transitions are
// serialized under a mutex and idempotent: repeating a command in the
// state it already produced is a recorded no-op, so retried or
// duplicated deliveries (QoS 1) are harmless.
package control
