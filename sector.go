package sdcard

import (
	"encoding/binary"
	"fmt"
	"math"
)

func sectorCount(buf []byte) (int, error) {
	if len(buf) == 0 || len(buf)%SectorSize != 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrBufferSize, len(buf))
	}
	return len(buf) / SectorSize, nil
}

// address converts a sector number into a command argument: the sector
// itself for block addressed cards, its byte offset otherwise.
func (c *Card) address(sector uint64) (uint32, error) {
	if c.typ&TypeBlock == 0 {
		if sector > math.MaxUint32>>sectorShift {
			return 0, fmt.Errorf("%w: sector %d", ErrAddressRange, sector)
		}
		sector <<= sectorShift
	}
	if sector > math.MaxUint32 {
		return 0, fmt.Errorf("%w: sector %d", ErrAddressRange, sector)
	}
	return uint32(sector), nil
}

// span converts the first and last of count sectors.
func (c *Card) span(sector uint64, count int) (first, last uint32, err error) {
	if first, err = c.address(sector); err != nil {
		return
	}
	last, err = c.address(sector + uint64(count) - 1)
	return
}

// ReadSectors fills buf, a whole number of sectors, starting at sector.
func (c *Card) ReadSectors(sector uint64, buf []byte) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	count, err := sectorCount(buf)
	if err != nil {
		return err
	}
	addr, _, err := c.span(sector, count)
	if err != nil {
		return err
	}

	err = c.transaction(func() error {
		if count == 1 {
			_, err := c.command(cmdReadSingleBlock, addr, buf)
			return err
		}

		if _, err := c.command(cmdReadMultipleBlock, addr, nil); err != nil {
			return err
		}
		var rerr error
		for off := 0; off < len(buf); off += SectorSize {
			if rerr = c.receiveBlock(buf[off : off+SectorSize]); rerr != nil {
				rerr = fmt.Errorf("sector %d: %w", sector+uint64(off/SectorSize), rerr)
				break
			}
		}
		if _, err := c.command(cmdStopTransmission, 0, nil); err != nil && rerr == nil {
			rerr = err
		}
		return rerr
	})
	if err != nil {
		return fmt.Errorf("read %d sectors at %d: %w", count, sector, err)
	}
	return nil
}

// WriteSectors writes buf, a whole number of sectors, starting at sector.
func (c *Card) WriteSectors(sector uint64, buf []byte) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	count, err := sectorCount(buf)
	if err != nil {
		return err
	}
	addr, _, err := c.span(sector, count)
	if err != nil {
		return err
	}

	err = c.transaction(func() error {
		if count == 1 {
			if _, err := c.command(cmdWriteBlock, addr, nil); err != nil {
				return err
			}
			return c.transmitBlock(buf, tokenStartBlock)
		}

		if c.typ&TypeSD != 0 {
			// pre-erase hint only; cards that refuse it still write correctly
			c.command(acmdSetWrBlkEraseCount, uint32(count), nil)
		}
		if _, err := c.command(cmdWriteMultipleBlock, addr, nil); err != nil {
			return err
		}
		var werr error
		for off := 0; off < len(buf); off += SectorSize {
			if werr = c.transmitBlock(buf[off:off+SectorSize], tokenStartBlockMulti); werr != nil {
				werr = fmt.Errorf("sector %d: %w", sector+uint64(off/SectorSize), werr)
				break
			}
		}
		if err := c.transmitBlock(nil, tokenStopTran); err != nil && werr == nil {
			werr = fmt.Errorf("stop transmission: %w", err)
		}
		return werr
	})
	if err != nil {
		return fmt.Errorf("write %d sectors at %d: %w", count, sector, err)
	}
	return nil
}

// EraseSectors erases count sectors starting at sector. Erased sectors read
// back as all zeros or all ones depending on the card.
func (c *Card) EraseSectors(sector uint64, count int) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	if count <= 0 {
		return fmt.Errorf("sdcard: invalid erase count %d", count)
	}
	first, last, err := c.span(sector, count)
	if err != nil {
		return err
	}

	err = c.transaction(func() error {
		if _, err := c.command(cmdEraseWrBlkStart, first, nil); err != nil {
			return err
		}
		if _, err := c.command(cmdEraseWrBlkEnd, last, nil); err != nil {
			return err
		}
		_, err := c.command(cmdErase, 0, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("erase %d sectors at %d: %w", count, sector, err)
	}
	return nil
}

// Sync waits for the card to finish any pending write.
func (c *Card) Sync() error {
	if !c.initialized {
		return ErrNotInitialized
	}
	t := &c.cfg.timing
	return c.transaction(func() error {
		return c.waitReady(t.ReadyPolls, t.ReadyDelay)
	})
}

// Status returns the card status from SEND_STATUS.
func (c *Card) Status() (Status2, error) {
	if !c.initialized {
		return 0, ErrNotInitialized
	}
	var b [1]byte
	var st Status
	err := c.transaction(func() (err error) {
		st, err = c.command(cmdSendStatus, 0, b[:])
		return err
	})
	return Status2(uint16(st)<<8 | uint16(b[0])), err
}

// ReadOCR returns the operating conditions register.
func (c *Card) ReadOCR() (uint32, error) {
	if !c.initialized {
		return 0, ErrNotInitialized
	}
	var b [4]byte
	err := c.transaction(func() error {
		_, err := c.command(cmdReadOCR, 0, b[:])
		return err
	})
	return binary.BigEndian.Uint32(b[:]), err
}

// SDStatus is the 512-bit SD Status register. [SD-PLS|4.10.2 SD Status]
type SDStatus [64]byte

func (s SDStatus) BusWidth() uint8   { return s[0] >> 6 }
func (s SDStatus) SecuredMode() bool { return s[0]&0x20 != 0 }
func (s SDStatus) CardType() uint16  { return binary.BigEndian.Uint16(s[2:4]) }
func (s SDStatus) SpeedClass() uint8 { return s[8] }
func (s SDStatus) AUSize() uint8     { return s[10] >> 4 }

// SDStatus reads the SD Status register. MMC cards reject it.
func (c *Card) SDStatus() (SDStatus, error) {
	var s SDStatus
	if !c.initialized {
		return s, ErrNotInitialized
	}
	var b [1 + len(s)]byte
	err := c.transaction(func() error {
		_, err := c.command(acmdSDStatus, 0, b[:])
		return err
	})
	copy(s[:], b[1:])
	return s, err
}
