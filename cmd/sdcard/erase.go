package main

import (
	"flag"
	"fmt"
)

func eraseCommand(args []string) {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	var (
		sector uint64
		count  int
		yes    bool
	)
	fs.Uint64Var(&sector, "s", 0, "first sector")
	fs.IntVar(&count, "n", 0, "number of sectors to erase")
	fs.BoolVar(&yes, "y", false, "do not ask for confirmation")
	fs.Parse(args)

	if count <= 0 {
		fatalUsage("sector count must be positive")
	}

	d := openCard()
	defer release()

	if bs := d.EraseBlockSize(); sector%uint64(bs) != 0 || count%bs != 0 {
		fmt.Printf("warning: range is not aligned to the %d sector erase block\n", bs)
	}
	confirm(yes, "erase %d sectors at %d of %d?", count, sector, d.SectorCount())
	if err := d.EraseSectors(sector, count); err != nil {
		fatalf("erase failed: %v", err)
	}
}
