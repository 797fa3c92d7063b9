package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/gentam/sdcard"
	rpio "github.com/stianeikeland/go-rpio/v4"
	"golang.org/x/term"
	"periph.io/x/conn/v3/physic"
)

var (
	busName = flag.String("bus", "ftdi", "bus driver: ftdi, host or rpio")
	spiName = flag.String("spi", "", "SPI port name for -bus host (default: first port)")
	csName  = flag.String("cs", "", "chip select: GPIO name for -bus host, BCM number for -bus rpio")
	verbose = flag.Bool("v", false, "log driver activity to stderr")
	hz      physic.Frequency
)

var (
	// openDevice is released by fatalf and fatalUsage, since os.Exit skips
	// the commands' deferred release.
	openDevice io.Closer
	exit       = os.Exit
)

func release() {
	if openDevice != nil {
		openDevice.Close()
		openDevice = nil
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	release()
	exit(1)
}

func fatalUsage(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	release()
	exit(2)
}

// confirm asks before a destructive command unless yes is set. Without a
// terminal on stdin there is nobody to ask, so -y is required.
func confirm(yes bool, format string, a ...any) {
	if yes {
		return
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fatalUsage("stdin is not a terminal, pass -y to confirm")
	}
	fmt.Fprintf(os.Stderr, format+" [y/N] ", a...)
	var answer string
	fmt.Scanln(&answer)
	if answer != "y" && answer != "Y" {
		fatalf("aborted")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	sdcard [flags] <command> [arguments]

Commands:
	info	 print card registers
	read	 read sectors
	write	 write a file to sectors
	erase	 erase sectors
	parts	 list the partition table

Flags:
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	flag.Var(&hz, "hz", "SPI clock after initialization (default 40MHz)")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	switch cmd := flag.Arg(0); cmd {
	case "info":
		infoCommand(flag.Args()[1:])
	case "read":
		readCommand(flag.Args()[1:])
	case "write":
		writeCommand(flag.Args()[1:])
	case "erase":
		eraseCommand(flag.Args()[1:])
	case "parts":
		partsCommand(flag.Args()[1:])
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", cmd)
		usage()
	}
}

// openCard opens the selected bus and initializes the card on it.
func openCard() *sdcard.Device {
	var opts []sdcard.Option
	if *verbose {
		opts = append(opts, sdcard.WithLogger(log.New(os.Stderr, "sdcard: ", log.Lmicroseconds)))
	}

	var (
		d   *sdcard.Device
		err error
	)
	switch *busName {
	case "ftdi":
		d, err = sdcard.OpenFTDI(opts...)
	case "host":
		if *csName == "" {
			fatalUsage("-cs is required for -bus host")
		}
		d, err = sdcard.OpenHost(*spiName, *csName, opts...)
	case "rpio":
		pin, perr := strconv.ParseUint(*csName, 10, 8)
		if perr != nil {
			fatalUsage("-cs must be a BCM pin number for -bus rpio")
		}
		d, err = sdcard.OpenRPIO(rpio.Spi0, uint8(pin), opts...)
	default:
		fatalUsage("unknown bus %q", *busName)
	}
	if err != nil {
		fatalf("%v", err)
	}

	openDevice = d
	if err := d.Begin(hz); err != nil {
		fatalf("%v", err)
	}
	return d
}
