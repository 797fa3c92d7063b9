package sdcard

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

const (
	SectorSize  = 512
	sectorShift = 9

	// MaxFrequency caps the clock after initialization.
	MaxFrequency = 40 * physic.MegaHertz
	// initFrequency is the identification mode clock. [SD-PLS|6.4.1 Power Up]
	initFrequency = 400 * physic.KiloHertz
)

// CardType holds the generation and addressing flags detected by Begin.
type CardType uint8

const (
	TypeMMC   CardType = 1 << iota // MMC ver 3
	TypeSD1                        // SD ver 1
	TypeSD2                        // SD ver 2 or later
	TypeBlock                      // sector addressing (SDHC/SDXC)

	TypeSD = TypeSD1 | TypeSD2
)

func (t CardType) String() string {
	var s []string
	if t&TypeMMC != 0 {
		s = append(s, "MMC")
	}
	if t&TypeSD1 != 0 {
		s = append(s, "SDv1")
	}
	if t&TypeSD2 != 0 {
		s = append(s, "SDv2")
	}
	if t&TypeBlock != 0 {
		s = append(s, "block")
	}
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, ",")
}

// session is what Begin learns about the card. It is assigned once, on
// success, and never modified afterwards.
type session struct {
	typ     CardType
	sectors uint64
	csd     CSD
	cid     CID
}

// Card is an MMC or SD card on an SPI bus.
type Card struct {
	bus Bus
	cs  gpio.PinOut
	cfg config

	session
	initialized bool

	ones    [SectorSize]byte // MOSI held high while receiving
	discard [SectorSize]byte
}

// New returns an uninitialized card. Call Begin before any other operation.
func New(bus Bus, cs gpio.PinOut, opts ...Option) *Card {
	c := &Card{
		bus: bus,
		cs:  cs,
		cfg: defaultConfig(),
	}
	for _, opt := range opts {
		opt(&c.cfg)
	}
	for i := range c.ones {
		c.ones[i] = 0xFF
	}
	return c
}

// Begin initializes the card and raises the clock to freq. A zero freq, or
// one above MaxFrequency, selects MaxFrequency.
func (c *Card) Begin(freq physic.Frequency) error {
	if c.initialized {
		return ErrAlreadyInitialized
	}
	if freq <= 0 || freq > MaxFrequency {
		freq = MaxFrequency
	}

	if err := c.bus.SetSpeed(initFrequency); err != nil {
		return fmt.Errorf("sdcard: set clock: %w", err)
	}
	if err := c.cs.Out(gpio.High); err != nil {
		return err
	}
	c.cfg.sleep(c.cfg.timing.PowerUpDelay)

	s, err := c.init()
	if err != nil {
		c.logf("init failed: %v", err)
		return fmt.Errorf("sdcard: init: %w", err)
	}

	if err := c.bus.SetSpeed(freq); err != nil {
		return fmt.Errorf("sdcard: set clock: %w", err)
	}
	c.session = s
	c.initialized = true
	c.logf("OK: type %s, %d sectors, %s", s.typ, s.sectors, freq)
	return nil
}

// End marks the card uninitialized. The bus stays open.
func (c *Card) End() {
	c.initialized = false
	c.cs.Out(gpio.High)
}

func (c *Card) Initialized() bool   { return c.initialized }
func (c *Card) Type() CardType      { return c.typ }
func (c *Card) SectorSize() int     { return SectorSize }
func (c *Card) SectorCount() uint64 { return c.sectors }
func (c *Card) Size() uint64        { return c.sectors << sectorShift }
func (c *Card) CSD() CSD            { return c.csd }
func (c *Card) CID() CID            { return c.cid }

// EraseBlockSize returns the erase unit in sectors.
func (c *Card) EraseBlockSize() int {
	if c.csd.EraseBlkEn() {
		return 1
	}
	n := int(c.csd.SectorSize()) + 1
	if bl := c.csd.WriteBlLen(); bl > sectorShift {
		n <<= bl - sectorShift
	}
	return n
}

// transaction runs fn with the card selected.
func (c *Card) transaction(fn func() error) (err error) {
	if err = c.cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := c.cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
		// one more clock byte lets the card release DO
		if txErr := c.bus.Tx(c.ones[:1], c.discard[:1]); txErr != nil && err == nil {
			err = txErr
		}
	}()
	return fn()
}

// recv clocks in len(p) bytes, at most SectorSize.
func (c *Card) recv(p []byte) error {
	return c.bus.Tx(c.ones[:len(p)], p)
}

// send clocks out p, at most SectorSize bytes.
func (c *Card) send(p []byte) error {
	return c.bus.Tx(p, c.discard[:len(p)])
}

func (c *Card) readByte() (byte, error) {
	var b [1]byte
	err := c.recv(b[:])
	return b[0], err
}

func (c *Card) logf(format string, a ...any) {
	if c.cfg.logger != nil {
		c.cfg.logger.Printf(format, a...)
	}
}
