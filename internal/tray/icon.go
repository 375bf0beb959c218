package tray

import (
	"bytes"
	"encoding/binary"
)

const iconSize = 16

var (
	enabledColor  = [4]byte{0x50, 0xAF, 0x4C, 0xFF} // BGRA green
	disabledColor = [4]byte{0x9E, 0x9E, 0x9E, 0xFF} // BGRA grey

	enabledIcon  = buildIcon(enabledColor)
	disabledIcon = buildIcon(disabledColor)
)

func icon(enabled bool) []byte {
	if enabled {
		return enabledIcon
	}
	return disabledIcon
}

// buildIcon renders a 16x16 32-bit ICO with a rounded square of one colour
func buildIcon(color [4]byte) []byte {
	const (
		pixelBytes = iconSize * iconSize * 4
		maskBytes  = iconSize * 4 // 1bpp rows padded to 32 bits
		dibHeader  = 40
		imageBytes = dibHeader + pixelBytes + maskBytes
	)
	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	// ICONDIR
	w(uint16(0))
	w(uint16(1))
	w(uint16(1))
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	w(uint16(1))
	w(uint16(32))
	w(uint32(imageBytes))
	w(uint32(6 + 16))
	// BITMAPINFOHEADER, height doubled for the AND mask
	w(uint32(dibHeader))
	w(int32(iconSize))
	w(int32(iconSize * 2))
	w(uint16(1))
	w(uint16(32))
	w(uint32(0))
	w(uint32(pixelBytes + maskBytes))
	w([4]uint32{})

	// bottom-up rows
	for y := iconSize - 1; y >= 0; y-- {
		for x := 0; x < iconSize; x++ {
			if inside(x, y) {
				buf.Write(color[:])
			} else {
				buf.Write([]byte{0, 0, 0, 0})
			}
		}
	}
	buf.Write(make([]byte, maskBytes))
	return buf.Bytes()
}

// inside trims the corners of a 1px inset square
func inside(x, y int) bool {
	if x < 1 || y < 1 || x > iconSize-2 || y > iconSize-2 {
		return false
	}
	corner := func(v int) bool { return v == 1 || v == iconSize-2 }
	return !(corner(x) && corner(y))
}
