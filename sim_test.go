package sdcard

import (
	"encoding/binary"
	"slices"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

type simKind int

const (
	simSDHC simKind = iota // SD v2, block addressed
	simSDSC                // SD v2, byte addressed
	simSDv1
	simMMC
)

func (k simKind) String() string {
	return [...]string{"SDHC", "SDSC", "SDv1", "MMC"}[k]
}

type simState int

const (
	simIdle simState = iota
	simWriteData
	simReadStream
)

// Samsung 32GB EVO Plus
var (
	sampleCSD = CSD{0x40, 0x0e, 0x00, 0x32, 0x5b, 0x59, 0x00, 0x00, 0xee, 0x7f, 0x7f, 0x80, 0x0a, 0x40, 0x40, 0x55}
	sampleCID = CID{0x1b, 0x53, 0x4d, 0x45, 0x42, 0x31, 0x51, 0x54, 0x30, 0xf1, 0x77, 0x5f, 0xea, 0x01, 0x1a, 0xb9}
)

// simCard is a byte level model of a card in SPI mode. Every byte the host
// shifts in is answered with whatever the card has queued, 0x00 while busy,
// or 0xFF.
type simCard struct {
	kind    simKind
	csd     CSD
	cid     CID
	ocr     uint32
	sectors uint32
	mem     map[uint32][]byte

	cs *gpiotest.Pin

	// fault injection
	silent       bool // no card on the bus
	stuckBusy    bool // DO held low
	readyAfter   int  // op-cond polls before leaving idle, -1 never
	corruptReads int  // data blocks to send with a bad CRC16
	rejectWrites bool

	state  simState
	idle   bool
	app    bool
	polls  int
	frame  []byte
	out    []byte
	busy   int
	speeds []physic.Frequency

	multi      bool
	writeBuf   []byte
	writeAddr  uint32
	readAddr   uint32
	eraseStart uint32
	eraseEnd   uint32

	counts     map[byte]int // by command index, acmd flag included
	deselected int          // frames received with CS high
}

func newSimCard(kind simKind) *simCard {
	s := &simCard{
		kind:   kind,
		cid:    sampleCID,
		mem:    map[uint32][]byte{},
		cs:     &gpiotest.Pin{N: "CS", L: gpio.High},
		counts: map[byte]int{},
		ocr:    0x80FF8000,
	}
	switch kind {
	case simSDHC:
		s.csd = sampleCSD
		s.ocr |= ocrHCS
	case simMMC:
		// MMC CSD_STRUCTURE 2 (v1.2) still uses the v1 capacity fields
		s.csd = v1CSD(2, 511, 7, 9)
	default:
		s.csd = v1CSD(0, 1023, 7, 9)
	}
	s.sectors = uint32(csdSectors(s.csd, kind))
	return s
}

func csdSectors(csd CSD, kind simKind) uint64 {
	if kind == simMMC {
		return CSDv1{csd}.Size() >> sectorShift
	}
	return csd.Size() >> sectorShift
}

func setBits(r *[16]byte, start, width uint, v uint32) {
	for i := range width {
		bit := start + i
		idx := 15 - bit/8
		mask := byte(1) << (bit % 8)
		if v&(1<<i) != 0 {
			r[idx] |= mask
		} else {
			r[idx] &^= mask
		}
	}
}

func v1CSD(structure uint32, cSize, cSizeMult, readBlLen uint32) CSD {
	var c CSD
	r := (*[16]byte)(&c)
	setBits(r, 126, 2, structure)
	setBits(r, 112, 8, 0x26)
	setBits(r, 96, 8, 0x32)
	setBits(r, 84, 12, 0x5F5)
	setBits(r, 80, 4, readBlLen)
	setBits(r, 62, 12, cSize)
	setBits(r, 47, 3, cSizeMult)
	setBits(r, 39, 7, 31)
	setBits(r, 22, 4, 9)
	setBits(r, 1, 7, uint32(CRC7(c[:15])))
	setBits(r, 0, 1, 1)
	return c
}

// Tx implements Bus.
func (s *simCard) Tx(w, r []byte) error {
	for i, b := range w {
		r[i] = s.exchange(b)
	}
	return nil
}

// SetSpeed implements Bus.
func (s *simCard) SetSpeed(f physic.Frequency) error {
	s.speeds = append(s.speeds, f)
	return nil
}

func (s *simCard) exchange(in byte) byte {
	out := s.next()
	s.receive(in)
	return out
}

func (s *simCard) next() byte {
	if s.silent {
		return 0xFF
	}
	if len(s.out) == 0 && s.state == simReadStream && s.readAddr < s.sectors && s.busy == 0 {
		s.queueBlock(s.sector(s.readAddr))
		s.readAddr++
	}
	if len(s.out) > 0 {
		b := s.out[0]
		s.out = s.out[1:]
		return b
	}
	if s.stuckBusy {
		return 0x00
	}
	if s.busy > 0 {
		s.busy--
		return 0x00
	}
	return 0xFF
}

func (s *simCard) receive(in byte) {
	if s.state == simWriteData {
		s.receiveData(in)
		return
	}
	if len(s.frame) == 0 && in&0xC0 != 0x40 {
		return
	}
	s.frame = append(s.frame, in)
	if len(s.frame) == frameSize {
		s.command(s.frame)
		s.frame = s.frame[:0]
	}
}

func (s *simCard) r1() byte {
	if s.idle {
		return 0x01
	}
	return 0x00
}

// respond queues N_CR filler, R1 and any trailing response bytes.
func (s *simCard) respond(r1 byte, extra ...byte) {
	s.out = append(s.out, 0xFF, r1)
	s.out = append(s.out, extra...)
}

func (s *simCard) queueBlock(p []byte) {
	crc := CRC16(0, p)
	if s.corruptReads > 0 {
		s.corruptReads--
		crc ^= 0x0001
	}
	s.out = append(s.out, 0xFF, tokenStartBlock)
	s.out = append(s.out, p...)
	s.out = binary.BigEndian.AppendUint16(s.out, crc)
}

func (s *simCard) sector(n uint32) []byte {
	if p, ok := s.mem[n]; ok {
		return p
	}
	return make([]byte, SectorSize)
}

// toSector converts a command argument, reporting false for an address error.
func (s *simCard) toSector(arg uint32) (uint32, bool) {
	if s.kind != simSDHC {
		if arg%SectorSize != 0 {
			return 0, false
		}
		arg /= SectorSize
	}
	return arg, arg < s.sectors
}

func (s *simCard) command(f []byte) {
	index := f[0] & 0x3F
	arg := binary.BigEndian.Uint32(f[1:5])
	key := index
	if s.app {
		key |= acmd
	}
	s.counts[key]++
	if s.cs.L == gpio.High {
		s.deselected++
	}
	if s.silent {
		return
	}

	if f[5] != CRC7(f[:5])<<1|1 {
		s.app = false
		s.respond(s.r1() | 0x08)
		return
	}
	app := s.app
	s.app = false
	legacy := s.kind == simSDv1 || s.kind == simMMC

	switch {
	case index == cmdGoIdleState:
		s.idle = true
		s.state = simIdle
		s.polls = 0
		s.respond(0x01)

	case index == cmdSendIfCond:
		if legacy {
			s.respond(s.r1() | 0x04)
			return
		}
		s.respond(s.r1(), 0x00, 0x00, byte(arg>>8)&0x0F, byte(arg))

	case index == cmdAppCmd:
		if s.kind == simMMC {
			s.respond(s.r1() | 0x04)
			return
		}
		s.app = true
		s.respond(s.r1())

	case index == 41 && app, index == cmdSendOpCond && s.kind == simMMC:
		s.polls++
		if s.readyAfter >= 0 && s.polls > s.readyAfter {
			s.idle = false
		}
		s.respond(s.r1())

	case s.idle:
		s.respond(s.r1() | 0x04)

	case index == cmdReadOCR:
		s.respond(s.r1(), binary.BigEndian.AppendUint32(nil, s.ocr)...)

	case index == cmdSetBlockLen:
		if arg != SectorSize {
			s.respond(0x40)
			return
		}
		s.respond(0x00)

	case index == cmdSendCSD:
		s.respond(0x00)
		s.queueBlock(s.csd[:])

	case index == cmdSendCID:
		s.respond(0x00)
		s.queueBlock(s.cid[:])

	case index == cmdSendStatus && app:
		status := make([]byte, 64)
		status[0] = 0x80 // 4-bit bus
		status[8] = 0x04 // class 10
		status[10] = 0x90
		s.respond(0x00, 0x00)
		s.queueBlock(status)

	case index == cmdSendStatus:
		s.respond(0x00, 0x00)

	case index == cmdReadSingleBlock:
		n, ok := s.toSector(arg)
		if !ok {
			s.respond(0x20)
			return
		}
		s.respond(0x00)
		s.queueBlock(s.sector(n))

	case index == cmdReadMultipleBlock:
		n, ok := s.toSector(arg)
		if !ok {
			s.respond(0x20)
			return
		}
		s.respond(0x00)
		s.state = simReadStream
		s.readAddr = n

	case index == cmdStopTransmission:
		s.out = s.out[:0]
		s.state = simIdle
		s.out = append(s.out, 0xFF) // stuff byte
		s.respond(0x00)
		s.busy = 3

	case index == 23 && app:
		s.respond(0x00)

	case index == cmdWriteBlock, index == cmdWriteMultipleBlock:
		n, ok := s.toSector(arg)
		if !ok {
			s.respond(0x20)
			return
		}
		s.respond(0x00)
		s.state = simWriteData
		s.multi = index == cmdWriteMultipleBlock
		s.writeAddr = n

	case index == cmdEraseWrBlkStart, index == cmdEraseWrBlkEnd:
		n, ok := s.toSector(arg)
		if !ok {
			s.respond(0x20)
			return
		}
		if index == cmdEraseWrBlkStart {
			s.eraseStart = n
		} else {
			s.eraseEnd = n
		}
		s.respond(0x00)

	case index == cmdErase:
		if s.eraseEnd < s.eraseStart {
			s.respond(0x10)
			return
		}
		for n := s.eraseStart; n <= s.eraseEnd; n++ {
			delete(s.mem, n)
		}
		s.respond(0x00)
		s.busy = 20

	default:
		s.respond(0x04)
	}
}

func (s *simCard) receiveData(in byte) {
	if s.writeBuf == nil {
		switch {
		case in == tokenStartBlock && !s.multi, in == tokenStartBlockMulti && s.multi:
			s.writeBuf = make([]byte, 0, SectorSize+2)
		case in == tokenStopTran && s.multi:
			s.state = simIdle
			s.busy = 5
		}
		return
	}

	s.writeBuf = append(s.writeBuf, in)
	if len(s.writeBuf) < SectorSize+2 {
		return
	}
	data, crc := s.writeBuf[:SectorSize], binary.BigEndian.Uint16(s.writeBuf[SectorSize:])
	s.writeBuf = nil
	switch {
	case crc != CRC16(0, data):
		s.out = append(s.out, 0xE0|dataCRCError)
	case s.rejectWrites:
		s.out = append(s.out, 0xE0|dataWriteError)
	default:
		s.mem[s.writeAddr] = slices.Clone(data)
		s.writeAddr++
		// upper bits of the data response are undefined
		s.out = append(s.out, 0xE0|dataAccepted)
		s.busy = 10
	}
	if !s.multi {
		s.state = simIdle
	}
}
