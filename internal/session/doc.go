// Package session records capture sessions and control events in the
// local SQLite ledger.
//
// A session is one span of active streaming: boot-to-pause,
// resume-to-shutdown, and so on. Each row carries what started and
// stopped it plus the process-lifetime chunk counters at stop time, so
// an operator can answer "was this receiver capturing at 03:00, and
// was it keeping up" without trawling logs. Control events are recorded
// verbatim alongside, including payloads that matched nothing.
//
// The ledger is deliberately off the data path. Writes happen on state
// transitions and inbound commands only, and every write is
// best-effort: a failed insert is logged and forgotten.
package session
