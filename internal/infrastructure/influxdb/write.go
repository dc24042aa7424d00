package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteQueueDepth records the current bounded-queue length.
//
// Sampled periodically by the pipeline; a sustained depth near capacity
// means the broker or network cannot keep up with the device.
//
// Parameters:
//   - receiverID: Receiver identifier (device.id from config)
//   - depth: Current queue length in chunks
//   - capacity: Configured capacity (0 = unbounded)
func (c *Client) WriteQueueDepth(receiverID string, depth, capacity int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"queue_depth",
		map[string]string{
			"receiver_id": receiverID,
		},
		map[string]interface{}{
			"depth":    depth,
			"capacity": capacity,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteChunkCounters records cumulative pipeline chunk counters.
//
// All values are monotonic totals since process start; rate queries
// belong in the dashboard layer.
//
// Parameters:
//   - receiverID: Receiver identifier
//   - produced: Chunks accepted into the queue
//   - dropped: Chunks rejected by a full queue
//   - published: Chunks delivered to the broker
//   - discarded: Chunks popped but discarded (transport down or publish failure)
func (c *Client) WriteChunkCounters(receiverID string, produced, dropped, published, discarded uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"chunk_counters",
		map[string]string{
			"receiver_id": receiverID,
		},
		map[string]interface{}{
			"produced":  produced,
			"dropped":   dropped,
			"published": published,
			"discarded": discarded,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSessionEvent records a capture session transition.
//
// Parameters:
//   - receiverID: Receiver identifier
//   - event: "started" or "stopped"
//   - trigger: What caused the transition (boot, resume, pause, shutdown)
func (c *Client) WriteSessionEvent(receiverID, event, trigger string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"session_events",
		map[string]string{
			"receiver_id": receiverID,
			"event":       event,
		},
		map[string]interface{}{
			"trigger": trigger,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
