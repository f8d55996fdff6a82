package recorder

import "time"

// Manifest describes one recording session next to its logs.
type Manifest struct {
	ID          string `json:"id"`
	Participant string `json:"participant"`
	Config      any    `json:"config"`
	// ClockOffset is the local clock's offset from the NTP server, when one
	// was reachable.
	ClockOffset *time.Duration `json:"clock_offset,omitempty"`
	Report      Report         `json:"report"`
}
