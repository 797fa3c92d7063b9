// Package sdcard drives MMC and SD memory cards in SPI mode. It brings a card
// from power-on to the transfer state, decodes its CSD and CID registers and
// reads, writes and erases 512-byte sectors.
//
// A Card owns its Bus and chip select for the duration of every call and does
// no locking; callers sharing one card between goroutines must serialize.
//
// # References:
//
// SD Association (https://www.sdcard.org/downloads/pls/)
//   - [SD-PLS]: Physical Layer Simplified Specification Version 9.10
//     (https://www.sdcard.org/downloads/pls/pdf/?p=Part1_Physical_Layer_Simplified_Specification_Ver9.10.jp)
//
// JEDEC
//   - [MMC]: MultiMediaCard System Specification Version 3.31 (no public URL)
//
// FTDI (https://ftdichip.com/document/application-notes/)
//   - [FTDI-AN_108]: Command Processor for MPSSE and MCU Host Bus Emulation Modes (https://ftdichip.com/wp-content/uploads/2020/08/AN_108_Command_Processor_for_MPSSE_and_MCU_Host_Bus_Emulation_Modes.pdf)
//   - [FTDI-AN_114]: Interfacing FT2232H Hi-Speed Devices To SPI Bus (https://ftdichip.com/wp-content/uploads/2020/08/AN_114_FTDI_Hi_Speed_USB_To_SPI_Example.pdf)
//   - [FTDI-AN_135]: FTDI MPSSE Basics (https://ftdichip.com/wp-content/uploads/2020/08/AN_135_MPSSE_Basics.pdf)
package sdcard
