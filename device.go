package sdcard

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	rpio "github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// Device is a Card together with the bus it was opened on.
type Device struct {
	*Card
	FTDI *ftdi.FT232H // set by OpenFTDI

	bus io.Closer
}

var hostInitialized atomic.Bool

func initHost() error {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			hostInitialized.Store(false)
			return fmt.Errorf("host initialization failed: %w", err)
		}
	}
	return nil
}

// OpenFTDI finds an FT232H or FT2232H and opens its MPSSE SPI port.
//
//	ADBUS0 | SCK  -> card CLK
//	ADBUS1 | MOSI -> card CMD (DI)
//	ADBUS2 | MISO <- card DAT0 (DO)
//	ADBUS4 | GPIO -> card DAT3 (CS)
//
// ADBUS3 is toggled by the MPSSE on every transfer, so CS is driven from
// ADBUS4 to keep the card selected across a whole command.
func OpenFTDI(opts ...Option) (*Device, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	ft, err := findFT232H()
	if err != nil {
		return nil, err
	}

	// [FTDI-AN_114|1.2] FTDI device can only support mode 0 and mode 2, SD cards use mode 0
	bus, err := NewPeriphBus(ft.SPI, initFrequency)
	if err != nil {
		return nil, err
	}
	return &Device{
		Card: New(bus, ft.D4, opts...),
		FTDI: ft,
		bus:  bus,
	}, nil
}

func findFT232H() (*ftdi.FT232H, error) {
	const vendorID = 0x0403 // FTDI
	productIDs := []uint16{
		0x6010, // FT2232H
		0x6014, // FT232H
	}

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID {
			continue
		}
		for _, pid := range productIDs {
			if info.DevID != pid {
				continue
			}
			if ft, ok := dev.(*ftdi.FT232H); ok {
				return ft, nil
			}
		}
	}
	return nil, errors.New("FT232H/FT2232H device not found")
}

// OpenHost opens a SPI port and a chip select GPIO by their periph registry
// names, e.g. "/dev/spidev0.1" and "GPIO25". An empty spiName picks the first
// port.
func OpenHost(spiName, csName string, opts ...Option) (*Device, error) {
	if err := initHost(); err != nil {
		return nil, err
	}
	cs := gpioreg.ByName(csName)
	if cs == nil {
		return nil, fmt.Errorf("chip select pin %q not found", csName)
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, err
	}

	bus, err := NewPeriphBus(func() (spi.PortCloser, error) {
		return spireg.Open(spiName)
	}, initFrequency)
	if err != nil {
		return nil, err
	}
	return &Device{Card: New(bus, cs, opts...), bus: bus}, nil
}

// OpenRPIO opens a Raspberry Pi SPI controller through go-rpio, with chip
// select on BCM pin csPin.
func OpenRPIO(dev rpio.SpiDev, csPin uint8, opts ...Option) (*Device, error) {
	bus, cs, err := NewRPIOBus(dev, csPin)
	if err != nil {
		return nil, err
	}
	return &Device{Card: New(bus, cs, opts...), bus: bus}, nil
}

// Close ends the card session and releases the bus.
func (d *Device) Close() error {
	d.Card.End()
	return d.bus.Close()
}
