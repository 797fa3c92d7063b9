package sdcard

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized     = errors.New("sdcard: card not initialized")
	ErrAlreadyInitialized = errors.New("sdcard: card already initialized")

	// ErrTimeout is returned when the card never produced an expected
	// response, start token or ready byte within the polling budget.
	ErrTimeout = errors.New("sdcard: timeout")

	// ErrRejected matches every *ResponseError.
	ErrRejected = errors.New("sdcard: command rejected")

	// ErrChecksum is returned when a data block's CRC16 does not match.
	ErrChecksum = errors.New("sdcard: data checksum mismatch")

	ErrNoCard   = errors.New("sdcard: no card type detected")
	ErrVoltage  = errors.New("sdcard: card does not support 2.7-3.6V")
	ErrGeometry = errors.New("sdcard: unsupported card geometry")

	ErrBufferSize   = errors.New("sdcard: buffer is not a whole number of sectors")
	ErrAddressRange = errors.New("sdcard: sector address does not fit a command argument")
)

// ResponseError reports an R1 response with error bits set.
type ResponseError struct {
	Cmd    byte // command index, ACMD flag included
	Status Status
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("sdcard: %s failed: %s", cmdName(e.Cmd), e.Status)
}

func (e *ResponseError) Is(target error) bool {
	return target == ErrRejected
}

// DataResponseError reports a data block the card did not accept.
type DataResponseError struct {
	Token byte
}

func (e *DataResponseError) Error() string {
	var reason string
	switch e.Token & dataResponseMask {
	case dataCRCError:
		reason = "CRC error"
	case dataWriteError:
		reason = "write error"
	default:
		reason = "invalid response"
	}
	return fmt.Sprintf("sdcard: data rejected: %s (0x%02X)", reason, e.Token)
}
