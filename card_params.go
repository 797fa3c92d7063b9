package sdcard

import "time"

// Timing bounds every polling loop in the driver. Each loop gives up after
// its attempt budget; the delay is slept between attempts.
type Timing struct {
	PowerUpDelay time.Duration // after the bus is configured, before the first clocks

	ResetAttempts int // GO_IDLE_STATE until the card reports idle
	ResetDelay    time.Duration

	OpCondPolls int // ACMD41 or CMD1 until the card leaves idle
	OpCondDelay time.Duration

	ReadyPolls int // 0xFF from the card before a command or data token
	ReadyDelay time.Duration

	TokenPolls int // data start token after a read command
	TokenDelay time.Duration

	ErasePolls int // busy after ERASE
	EraseDelay time.Duration

	// ResponseBytes is how many bytes after a command frame may pass before
	// R1 shows up (N_CR).
	ResponseBytes int
}

// DefaultTiming follows [SD-PLS|4.6.2 Read, Write and Erase Timeout Conditions]
// with the 500ms write busy and 1s initialization budgets.
var DefaultTiming = Timing{
	PowerUpDelay: 10 * time.Millisecond,

	ResetAttempts: 5,
	ResetDelay:    time.Millisecond,

	OpCondPolls: 1000,
	OpCondDelay: time.Millisecond,

	ReadyPolls: 5000,
	ReadyDelay: 100 * time.Microsecond,

	TokenPolls: 1000,
	TokenDelay: 100 * time.Microsecond,

	ErasePolls: 30000,
	EraseDelay: time.Millisecond,

	ResponseBytes: 10,
}

// Manufacturer IDs are not published by the SD Association. These are the
// ones commonly reported by cards in the field.
var knownManufacturers = map[uint8]string{
	0x01: "Panasonic",
	0x02: "Toshiba",
	0x03: "SanDisk",
	0x09: "ATP",
	0x1B: "Samsung",
	0x1D: "ADATA",
	0x27: "Phison",
	0x28: "Lexar",
	0x31: "Silicon Power",
	0x41: "Kingston",
	0x74: "Transcend",
	0x82: "Sony",
}
