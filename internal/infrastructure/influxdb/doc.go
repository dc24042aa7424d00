// Package influxdb provides the optional telemetry sink for the
// iqstream pipeline.
//
// The pipeline samples queue depth and chunk counters on a fixed
// interval and records session transitions as they happen. Writes are
// batched and asynchronous; telemetry can never block the data path.
//
// The sink is disabled by default. When disabled, Connect returns
// ErrDisabled and the pipeline simply runs without it - telemetry
// failure is never fatal.
//
// # Measurements
//
//   - queue_depth:     depth/capacity gauge per receiver
//   - chunk_counters:  monotonic produced/dropped/published/discarded totals
//   - session_events:  capture start/stop transitions with trigger
package influxdb
