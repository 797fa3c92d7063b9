package sdcard

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Data tokens. [SD-PLS|7.3.3 Control Tokens]
const (
	tokenStartBlock      = 0xFE // single and multiple block read, single block write
	tokenStartBlockMulti = 0xFC // multiple block write
	tokenStopTran        = 0xFD

	dataResponseMask = 0x1F
	dataAccepted     = 0x05
	dataCRCError     = 0x0B
	dataWriteError   = 0x0D
)

// waitReady polls until the card drives DO high, meaning it is not busy.
func (c *Card) waitReady(polls int, delay time.Duration) error {
	for i := range polls {
		if i > 0 {
			c.cfg.sleep(delay)
		}
		b, err := c.readByte()
		if err != nil {
			return err
		}
		if b == 0xFF {
			return nil
		}
	}
	return ErrTimeout
}

// receiveBlock waits for a start token and reads len(p) bytes plus CRC16.
func (c *Card) receiveBlock(p []byte) error {
	t := &c.cfg.timing
	tok := byte(0xFF)
	for i := 0; i < t.TokenPolls && tok == 0xFF; i++ {
		if i > 0 {
			c.cfg.sleep(t.TokenDelay)
		}
		var err error
		if tok, err = c.readByte(); err != nil {
			return err
		}
	}
	switch {
	case tok == 0xFF:
		return fmt.Errorf("no data token: %w", ErrTimeout)
	case tok != tokenStartBlock:
		// 000xxxxx is a data error token [SD-PLS|7.3.3.3]
		return fmt.Errorf("sdcard: unexpected data token 0x%02X", tok)
	}

	if err := c.recv(p); err != nil {
		return err
	}
	var crc [2]byte
	if err := c.recv(crc[:]); err != nil {
		return err
	}
	if got, want := binary.BigEndian.Uint16(crc[:]), CRC16(0, p); got != want {
		return fmt.Errorf("%w: got %04X, computed %04X", ErrChecksum, got, want)
	}
	return nil
}

// transmitBlock sends token and, unless it is the stop token, one sector
// from p followed by its CRC16. The card must accept the block.
func (c *Card) transmitBlock(p []byte, token byte) error {
	t := &c.cfg.timing
	if err := c.waitReady(t.ReadyPolls, t.ReadyDelay); err != nil {
		return fmt.Errorf("card busy: %w", err)
	}

	if err := c.send([]byte{token}); err != nil {
		return err
	}
	if token == tokenStopTran {
		return nil
	}

	if err := c.send(p[:SectorSize]); err != nil {
		return err
	}
	var crc [2]byte
	binary.BigEndian.PutUint16(crc[:], CRC16(0, p[:SectorSize]))
	if err := c.send(crc[:]); err != nil {
		return err
	}

	resp, err := c.readByte()
	if err != nil {
		return err
	}
	if resp&dataResponseMask != dataAccepted {
		c.logf("data not accepted: 0x%02X", resp)
		return &DataResponseError{Token: resp}
	}
	return nil
}
