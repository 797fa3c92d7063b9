package main

import (
	"fmt"

	"github.com/gentam/sdcard"
)

func infoCommand(args []string) {
	d := openCard()
	defer release()

	fmt.Printf("Type:            %s\n", d.Type())
	fmt.Printf("Sectors:         %d\n", d.SectorCount())
	fmt.Printf("Size:            %d bytes\n", d.Size())
	fmt.Printf("Erase block:     %d sectors\n", d.EraseBlockSize())

	if ocr, err := d.ReadOCR(); err == nil {
		fmt.Printf("OCR:             %08X\n", ocr)
	}
	if st, err := d.Status(); err == nil {
		fmt.Printf("Status:          %s\n", st)
	}
	if d.Type()&sdcard.TypeSD != 0 {
		if ss, err := d.SDStatus(); err == nil {
			fmt.Printf("Speed class:     %d\n", ss.SpeedClass())
			fmt.Printf("AU size:         %d\n", ss.AUSize())
		}
	}

	csd := d.CSD()
	fmt.Printf("\nCSD (%X)\n%s", csd[:], csd)
	cid := d.CID()
	fmt.Printf("\nCID (%X)\n%s", cid[:], cid)
	if !cid.ChecksumOK() {
		fmt.Println("  CID checksum mismatch")
	}
}
