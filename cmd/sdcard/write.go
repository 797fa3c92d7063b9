package main

import (
	"flag"
	"io"
	"os"

	"github.com/gentam/sdcard"
)

func writeCommand(args []string) {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	var (
		filename string
		sector   uint64
		chunk    int
		yes      bool
	)
	fs.StringVar(&filename, "f", "", "input file")
	fs.Uint64Var(&sector, "s", 0, "first sector")
	fs.IntVar(&chunk, "c", 64, "sectors per write command")
	fs.BoolVar(&yes, "y", false, "do not ask for confirmation")
	fs.Parse(args)

	if filename == "" {
		fatalUsage("input file is required")
	}
	if chunk <= 0 {
		fatalUsage("chunk size must be positive")
	}

	input, err := os.Open(filename)
	if err != nil {
		fatalf("failed to open file: %v", err)
	}
	defer input.Close()

	d := openCard()
	defer release()
	confirm(yes, "overwrite %s card from sector %d with %s?", d.Type(), sector, filename)

	buf := make([]byte, chunk*sdcard.SectorSize)
	for {
		n, err := io.ReadFull(input, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			fatalf("read file failed: %v", err)
		}
		if n == 0 {
			break
		}
		// pad the final partial sector with zeros
		size := (n + sdcard.SectorSize - 1) / sdcard.SectorSize * sdcard.SectorSize
		clear(buf[n:size])
		if err := d.WriteSectors(sector, buf[:size]); err != nil {
			fatalf("write failed: %v", err)
		}
		sector += uint64(size / sdcard.SectorSize)
	}
	if err := d.Sync(); err != nil {
		fatalf("sync failed: %v", err)
	}
}
