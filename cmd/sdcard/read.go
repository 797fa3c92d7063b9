package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/gentam/sdcard"
)

func readCommand(args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	var (
		sector  uint64
		count   int
		outFile string
	)
	fs.Uint64Var(&sector, "s", 0, "first sector")
	fs.IntVar(&count, "n", 1, "number of sectors to read")
	fs.StringVar(&outFile, "o", "", "output file (default: hexdump)")
	fs.Parse(args)

	if count <= 0 {
		fatalUsage("sector count must be positive")
	}

	d := openCard()
	defer release()

	data := make([]byte, count*sdcard.SectorSize)
	if err := d.ReadSectors(sector, data); err != nil {
		fatalf("read failed: %v", err)
	}
	if outFile == "" {
		fmt.Println(hex.Dump(data))
		return
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		fmt.Fprintln(os.Stderr, "write file failed:", err)
	}
}
