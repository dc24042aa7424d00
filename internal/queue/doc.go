// Package queue provides the bounded FIFO buffer between the capture
// producer and the MQTT publisher.
//
// The queue is the only synchronisation point shared by the three
// steady-state execution contexts (driver callback, publisher
// goroutine, MQTT network callbacks). Its contract is deliberately
// asymmetric:
//
//   - TryPush never blocks. The producer runs inside the device
//     driver's callback; any blocking there would stall the hardware
//     stream. When the queue is full the push is rejected and the
//     chunk is dropped upstream (backpressure by loss).
//   - WaitPop blocks with a bounded timeout. The publisher uses the
//     timeout to re-check the run flag, which bounds shutdown latency
//     to one poll interval.
//
// The backing store is the eapache/queue ring buffer, which avoids
// per-item allocations for the FIFO structure itself.
package queue
