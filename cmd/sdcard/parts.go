package main

import (
	"flag"
	"fmt"
	"os"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/gentam/sdcard"
)

// partsCommand copies the sectors holding the partition table into a sparse
// image the size of the card and lets go-diskfs parse it.
func partsCommand(args []string) {
	fs := flag.NewFlagSet("parts", flag.ExitOnError)
	var headSectors int
	// MBR + GPT header + 128 entries of 128 bytes
	fs.IntVar(&headSectors, "n", 34, "number of leading sectors to read")
	fs.Parse(args)

	if headSectors <= 0 {
		fatalUsage("sector count must be positive")
	}

	d := openCard()
	defer release()

	head := make([]byte, headSectors*sdcard.SectorSize)
	if err := d.ReadSectors(0, head); err != nil {
		fatalf("read failed: %v", err)
	}

	img, err := os.CreateTemp("", "sdcard-*.img")
	if err != nil {
		fatalf("%v", err)
	}
	defer os.Remove(img.Name())
	fail := func(format string, a ...any) {
		os.Remove(img.Name())
		fatalf(format, a...)
	}
	if err := img.Truncate(int64(d.Size())); err != nil {
		fail("failed to size image: %v", err)
	}
	if _, err := img.WriteAt(head, 0); err != nil {
		fail("failed to write image: %v", err)
	}
	if err := img.Close(); err != nil {
		fail("%v", err)
	}

	disk, err := diskfs.Open(img.Name())
	if err != nil {
		fail("failed to open image: %v", err)
	}
	table, err := disk.GetPartitionTable()
	if err != nil {
		fail("no partition table: %v", err)
	}

	fmt.Printf("Table: %s\n", table.Type())
	for i, p := range table.GetPartitions() {
		if p.GetSize() == 0 {
			continue
		}
		fmt.Printf("%2d: start %12d  size %14d bytes\n", i+1, p.GetStart(), p.GetSize())
	}
}
