// Package publisher provides the queue-draining loop that delivers IQ
// chunks to the MQTT transport.
//
// The loop is the downstream half of the pipeline and the only consumer
// of the bounded queue. Its contract mirrors the producer's: bounded
// blocking only (WaitPop with the configured poll interval), no
// retries, no reconnection logic. A chunk that cannot be delivered
// right now is discarded - guaranteed delivery is explicitly out of
// scope for a live IQ stream, where a stale chunk is worthless anyway.
//
// Shutdown is cooperative: the loop re-checks the shared run flag after
// every pop and every timeout, so it exits within one poll interval of
// the flag clearing, leaving any remaining queued chunks undelivered.
package publisher
