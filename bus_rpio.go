package sdcard

import (
	"errors"
	"fmt"

	rpio "github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// RPIOBus drives a Raspberry Pi SPI controller through /dev/mem.
type RPIOBus struct {
	dev rpio.SpiDev
}

// NewRPIOBus maps the GPIO registers and claims the SPI controller. Chip
// select is left to a plain GPIO; wire the card's CS to csPin, not to CE0/CE1.
func NewRPIOBus(dev rpio.SpiDev, csPin uint8) (*RPIOBus, gpio.PinOut, error) {
	if err := rpio.Open(); err != nil {
		return nil, nil, fmt.Errorf("rpio: %w", err)
	}
	if err := rpio.SpiBegin(dev); err != nil {
		rpio.Close()
		return nil, nil, fmt.Errorf("rpio: %w", err)
	}
	rpio.SpiMode(0, 0)

	pin := rpio.Pin(csPin)
	pin.Output()
	pin.High()
	return &RPIOBus{dev: dev}, &rpioPin{PinIO: gpio.INVALID, pin: pin}, nil
}

func (b *RPIOBus) Tx(w, r []byte) error {
	if len(w) != len(r) {
		return errors.New("sdcard: Tx buffers differ in length")
	}
	copy(r, w)
	rpio.SpiExchange(r)
	return nil
}

func (b *RPIOBus) SetSpeed(f physic.Frequency) error {
	hz := int(f / physic.Hertz)
	if hz <= 0 {
		return fmt.Errorf("rpio: invalid SPI clock %s", f)
	}
	rpio.SpiSpeed(hz)
	return nil
}

func (b *RPIOBus) Close() error {
	rpio.SpiEnd(b.dev)
	return rpio.Close()
}

// rpioPin exposes an rpio output as a periph gpio.PinOut.
type rpioPin struct {
	gpio.PinIO
	pin rpio.Pin
}

func (p *rpioPin) String() string { return fmt.Sprintf("GPIO%d", uint8(p.pin)) }
func (p *rpioPin) Name() string   { return p.String() }
func (p *rpioPin) Number() int    { return int(p.pin) }

func (p *rpioPin) Out(l gpio.Level) error {
	if l == gpio.High {
		p.pin.High()
	} else {
		p.pin.Low()
	}
	return nil
}
