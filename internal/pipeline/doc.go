// Package pipeline assembles and runs the capture-to-broker chain.
//
// The chain has exactly two moving parts at steady state: the driver's
// sample callback feeding the bounded queue through the producer, and
// the publisher loop draining it into MQTT. The pipeline constructs
// both around shared lifecycle state, registers the control dispatcher
// on the inbound topic, and sequences startup and shutdown.
//
// Shutdown is deadline-driven rather than drain-driven: clearing the
// run flag stops the producer immediately and the publisher within one
// poll interval, and whatever is still queued at that point is
// abandoned. For a live IQ stream that is the correct trade - the
// consumer cares about fresh samples, not a complete archive.
package pipeline
