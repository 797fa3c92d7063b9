package sdcard

import (
	"fmt"
)

// initState is a step of the power-on sequence.
// [SD-PLS|7.2.1 Mode Selection and Initialization]
type initState int

const (
	stateReset           initState = iota // CMD0 until idle
	stateVersionBranch                    // CMD8 splits v2 from legacy cards
	stateVoltageCheck                     // v2: CMD8 echo
	stateLegacy                           // SD v1 or MMC probe
	stateReadyPoll                        // ACMD41 or CMD1 until ready
	stateReadOCR                          // v2: capacity class
	stateBlockLength                      // legacy: CMD16
	stateGeometry                         // CSD, CID
	stateDone
)

func (s initState) String() string {
	switch s {
	case stateReset:
		return "reset"
	case stateVersionBranch:
		return "version"
	case stateVoltageCheck:
		return "voltage check"
	case stateLegacy:
		return "legacy probe"
	case stateReadyPoll:
		return "ready poll"
	case stateReadOCR:
		return "read OCR"
	case stateBlockLength:
		return "block length"
	case stateGeometry:
		return "geometry"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("initState(%d)", int(s))
}

const (
	ifCondPattern = 0x1AA   // 2.7-3.6V, check pattern 0xAA
	ocrHCS        = 1 << 30 // host supports high capacity
	ocrCCS        = 0x40    // card capacity status, in the OCR's first byte
)

// initRun carries what the states learn on the way to a session.
type initRun struct {
	session
	ifCond [4]byte
	opCond byte // command polled in stateReadyPoll
	opArg  uint32
}

// init runs the power-on sequence and returns what it learned about the card.
func (c *Card) init() (session, error) {
	// >= 74 clocks with CS high [SD-PLS|6.4.1.1 Power Up Time of Card]
	var clocks [10]byte
	if err := c.bus.Tx(c.ones[:len(clocks)], clocks[:]); err != nil {
		return session{}, err
	}

	var run initRun
	err := c.transaction(func() error {
		for st := stateReset; st != stateDone; {
			next, err := c.step(st, &run)
			if err != nil {
				return fmt.Errorf("%s: %w", st, err)
			}
			st = next
		}
		return nil
	})
	if err != nil {
		return session{}, err
	}
	return run.session, nil
}

func (c *Card) step(st initState, run *initRun) (initState, error) {
	c.logf("init: %s", st)
	t := &c.cfg.timing

	switch st {
	case stateReset:
		if _, err := c.commandRetry(cmdGoIdleState, 0, 1, t.ResetAttempts, t.ResetDelay); err != nil {
			return st, fmt.Errorf("%w: %w", ErrNoCard, err)
		}
		return stateVersionBranch, nil

	case stateVersionBranch:
		if r1, _ := c.command(cmdSendIfCond, ifCondPattern, run.ifCond[:]); r1 == 1 {
			return stateVoltageCheck, nil
		}
		return stateLegacy, nil

	case stateVoltageCheck:
		if run.ifCond[2]&0x0F != ifCondPattern>>8 || run.ifCond[3] != ifCondPattern&0xFF {
			return st, fmt.Errorf("%w: R7 % X", ErrVoltage, run.ifCond)
		}
		run.typ = TypeSD2
		run.opCond, run.opArg = acmdSendOpCond, ocrHCS
		return stateReadyPoll, nil

	case stateLegacy:
		if r1, _ := c.command(acmdSendOpCond, 0, nil); r1 <= 1 {
			run.typ = TypeSD1
			run.opCond = acmdSendOpCond
		} else {
			run.typ = TypeMMC
			run.opCond = cmdSendOpCond
		}
		run.opArg = 0
		return stateReadyPoll, nil

	case stateReadyPoll:
		if _, err := c.commandRetry(run.opCond, run.opArg, 0, t.OpCondPolls, t.OpCondDelay); err != nil {
			return st, fmt.Errorf("%w: %w", ErrNoCard, err)
		}
		if run.typ == TypeSD2 {
			return stateReadOCR, nil
		}
		return stateBlockLength, nil

	case stateReadOCR:
		var ocr [4]byte
		if _, err := c.command(cmdReadOCR, 0, ocr[:]); err != nil {
			return st, err
		}
		if ocr[0]&ocrCCS != 0 {
			run.typ |= TypeBlock
		}
		c.logf("init: OCR % X", ocr)
		return stateGeometry, nil

	case stateBlockLength:
		if _, err := c.command(cmdSetBlockLen, SectorSize, nil); err != nil {
			return st, err
		}
		return stateGeometry, nil

	case stateGeometry:
		if _, err := c.command(cmdSendCSD, 0, run.csd[:]); err != nil {
			return st, err
		}
		sectors, err := capacity(run.csd, run.typ)
		if err != nil {
			return st, err
		}
		run.sectors = sectors
		if _, err := c.command(cmdSendCID, 0, run.cid[:]); err != nil {
			return st, err
		}
		return stateDone, nil
	}
	return st, fmt.Errorf("sdcard: unknown init state %d", int(st))
}

// capacity returns the sector count described by csd, checking it can be
// addressed by a 32-bit command argument.
func capacity(csd CSD, typ CardType) (uint64, error) {
	var size uint64
	switch {
	case typ&TypeMMC != 0:
		// MMC CSD_STRUCTURE values all share the v1 capacity fields
		size = CSDv1{csd}.Size()
	case csd.Valid():
		size = csd.Size()
	default:
		return 0, fmt.Errorf("%w: CSD structure %d", ErrGeometry, csd.Structure())
	}

	sectors := size >> sectorShift
	switch {
	case sectors == 0:
		return 0, fmt.Errorf("%w: size %d", ErrGeometry, size)
	case typ&TypeBlock != 0 && sectors > 1<<32:
		return 0, fmt.Errorf("%w: %d sectors exceed 32-bit sector addressing", ErrGeometry, sectors)
	case typ&TypeBlock == 0 && size > 1<<32:
		return 0, fmt.Errorf("%w: %d bytes exceed 32-bit byte addressing", ErrGeometry, size)
	}
	return sectors, nil
}
