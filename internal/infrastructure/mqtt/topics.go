package mqtt

import "fmt"

// TopicPrefix is the base for all iqstream topics.
// Layout: iqstream/{category}/{receiver_id}[/suffix]
const TopicPrefix = "iqstream"

// Topics provides builders for iqstream MQTT topics.
// Using these helpers keeps topic naming consistent between the
// config defaults, the publisher, and external consumers.
//
//	topics := mqtt.Topics{}
//	dataTopic := topics.Data("hackrf-01")
//	// Returns: "iqstream/data/hackrf-01/iq"
type Topics struct{}

// Data returns the topic carrying raw IQ chunks for a receiver.
//
// Example: iqstream/data/hackrf-01/iq
func (Topics) Data(receiverID string) string {
	return fmt.Sprintf("%s/data/%s/iq", TopicPrefix, receiverID)
}

// Control returns the inbound control-command topic for a receiver.
// Payloads are the bare text commands PAUSE and RESUME.
//
// Example: iqstream/control/hackrf-01
func (Topics) Control(receiverID string) string {
	return fmt.Sprintf("%s/control/%s", TopicPrefix, receiverID)
}

// Status returns the receiver status topic (online/offline, LWT).
//
// Example: iqstream/status/hackrf-01
func (Topics) Status(receiverID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, receiverID)
}

// Session returns the topic announcing capture session transitions.
//
// Example: iqstream/session/hackrf-01
func (Topics) Session(receiverID string) string {
	return fmt.Sprintf("%s/session/%s", TopicPrefix, receiverID)
}

// AllControl returns a pattern matching control topics of every receiver.
//
// Pattern: iqstream/control/+
func (Topics) AllControl() string {
	return fmt.Sprintf("%s/control/+", TopicPrefix)
}

// AllStatus returns a pattern matching status topics of every receiver.
//
// Pattern: iqstream/status/+
func (Topics) AllStatus() string {
	return fmt.Sprintf("%s/status/+", TopicPrefix)
}
