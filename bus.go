package sdcard

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Bus is a synchronous full duplex SPI transport, mode 0, MSB first.
// Chip select is driven separately by Card.
type Bus interface {
	// Tx shifts out w and fills r with the bytes shifted in. len(r) == len(w).
	Tx(w, r []byte) error
	// SetSpeed changes the clock used by subsequent transfers.
	SetSpeed(f physic.Frequency) error
}

// PeriphBus adapts a periph.io SPI port.
//
// A periph port can be connected only once, and some drivers (the FTDI MPSSE
// port among them) only let LimitSpeed lower the clock. SetSpeed therefore
// lowers the clock in place and raises it by closing the port, opening it
// again and connecting at the new rate.
type PeriphBus struct {
	open  func() (spi.PortCloser, error)
	port  spi.PortCloser
	conn  spi.Conn
	speed physic.Frequency // current clock limit
	maxTx int
}

// NewPeriphBus opens a port with open and connects it in mode 0, 8 bits per
// word, MSB first, at speed. open is called again each time the clock is
// raised.
func NewPeriphBus(open func() (spi.PortCloser, error), speed physic.Frequency) (*PeriphBus, error) {
	b := &PeriphBus{open: open}
	if err := b.connect(speed); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *PeriphBus) connect(f physic.Frequency) error {
	if b.port != nil {
		err := b.port.Close()
		b.port, b.conn = nil, nil
		if err != nil {
			return fmt.Errorf("failed to close SPI port: %w", err)
		}
	}
	p, err := b.open()
	if err != nil {
		return fmt.Errorf("failed to open SPI port: %w", err)
	}
	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return fmt.Errorf("failed to connect SPI port: %w", err)
	}
	b.port, b.conn, b.speed = p, c, f
	b.maxTx = 4096
	if lim, ok := c.(conn.Limits); ok && lim.MaxTxSize() > 0 {
		b.maxTx = lim.MaxTxSize()
	}
	return nil
}

// Tx splits the exchange into transactions no larger than the port allows.
func (b *PeriphBus) Tx(w, r []byte) error {
	if len(w) != len(r) {
		return errors.New("sdcard: Tx buffers differ in length")
	}
	if b.conn == nil {
		return errors.New("sdcard: SPI port is closed")
	}
	for off := 0; off < len(w); {
		n := min(len(w)-off, b.maxTx)
		if err := b.conn.Tx(w[off:off+n], r[off:off+n]); err != nil {
			return err
		}
		off += n
	}
	return nil
}

// SetSpeed lowers the clock with LimitSpeed and raises it by reconnecting.
func (b *PeriphBus) SetSpeed(f physic.Frequency) error {
	if b.port == nil || f > b.speed {
		return b.connect(f)
	}
	if err := b.port.LimitSpeed(f); err != nil {
		return err
	}
	b.speed = f
	return nil
}

func (b *PeriphBus) Close() error {
	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port, b.conn = nil, nil
	return err
}
