package labelprint

import "encoding/binary"

// Protocol holds the command frames for one image split.
type Protocol struct {
	FirmwareRequest []byte // fixed, dimension independent
	Prefix          []byte // raster header for the split, precedes the data
	Postfix         []byte // fixed, sent once after the last split
}

var (
	cmdFirmwareVersion = []byte{0x10, 0xff, 0x20, 0xf1}

	// rasterHeader precedes every split; the device expects it to be
	// followed by height and width as big-endian 16-bit values and a
	// terminating zero byte.
	rasterHeader = []byte{0x10, 0xff, 0xfe, 0x01, 0x1b, 0x40, 0x00, 0x1f, 0x11, 0x02, 0x04}

	cmdFinish = []byte{0x10, 0xff, 0xfe, 0x45, 0x1b, 0x4a, 0x40}
)

// Frame builds the protocol frames for a split of the given width and pixel
// height.  It is a pure function and must be called anew for every split,
// because the width changes from split to split.
func Frame(width, height int) Protocol {
	prefix := make([]byte, 0, len(rasterHeader)+5)
	prefix = append(prefix, rasterHeader...)
	prefix = binary.BigEndian.AppendUint16(prefix, uint16(height))
	prefix = binary.BigEndian.AppendUint16(prefix, uint16(width))
	prefix = append(prefix, 0x00)
	return Protocol{
		FirmwareRequest: cmdFirmwareVersion,
		Prefix:          prefix,
		Postfix:         cmdFinish,
	}
}
