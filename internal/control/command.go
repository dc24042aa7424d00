package control

// Command is a parsed control-topic instruction.
type Command int

const (
	// CommandUnknown is any payload that is not an exact command match.
	CommandUnknown Command = iota

	// CommandPause stops the capture driver and halts sample production.
	CommandPause

	// CommandResume restarts the capture driver.
	CommandResume
)

// String returns the command's wire spelling, or "UNKNOWN".
func (c Command) String() string {
	switch c {
	case CommandPause:
		return "PAUSE"
	case CommandResume:
		return "RESUME"
	default:
		return "UNKNOWN"
	}
}

// Parse maps a raw control payload to a Command.
//
// Matching is exact and case-sensitive: the payload must be the bare
// ASCII string "PAUSE" or "RESUME" with no framing, whitespace, or
// JSON wrapping. Anything else is CommandUnknown.
//
// Parameters:
//   - payload: Raw message payload from the control topic
//
// Returns:
//   - Command: The matched command, or CommandUnknown
func Parse(payload []byte) Command {
	switch string(payload) {
	case "PAUSE":
		return CommandPause
	case "RESUME":
		return CommandResume
	default:
		return CommandUnknown
	}
}
