// Package loader reads binary program images into emulator memory.
package loader

import (
	"encoding/binary"
	"fmt"

	"github.com/archsim/mips32/emu"
)

// headerSize is the size in bytes of the image header: two
// little-endian u32 section sizes.
const headerSize = 8

// Image describes where a loaded program's segments ended up and
// where execution should begin.
type Image struct {
	// TextBase and DataBase are the addresses the text and data
	// segments were placed at.
	TextBase uint32
	DataBase uint32

	// TextSize and DataSize are the segment lengths, in bytes.
	TextSize uint32
	DataSize uint32

	// Entry is the initial program counter, equal to TextBase.
	Entry uint32
}

// LoadImage loads an 8-byte-header binary image (little-endian u32
// data_size, little-endian u32 text_size, data_size bytes of data,
// text_size bytes of text) into mem at the conventional MIPS32 memory
// map: text at emu.TextBase, data at emu.DataBase. After loading, the
// text segment is marked read-only.
func LoadImage(mem *emu.Memory, raw []byte) (Image, error) {
	if len(raw) < headerSize {
		return Image{}, fmt.Errorf("loader: image too short for an %d-byte header", headerSize)
	}

	dataSize := binary.LittleEndian.Uint32(raw[0:4])
	textSize := binary.LittleEndian.Uint32(raw[4:8])

	want := uint64(headerSize) + uint64(dataSize) + uint64(textSize)
	if uint64(len(raw)) < want {
		return Image{}, fmt.Errorf("loader: image declares %d bytes of sections but only has %d", want-headerSize, len(raw)-headerSize)
	}

	dataBytes := raw[headerSize : headerSize+dataSize]
	textBytes := raw[headerSize+dataSize : headerSize+dataSize+textSize]

	if err := writeSegment(mem, emu.DataBase, dataBytes); err != nil {
		return Image{}, fmt.Errorf("loader: placing data segment: %w", err)
	}
	if err := writeSegment(mem, emu.TextBase, textBytes); err != nil {
		return Image{}, fmt.Errorf("loader: placing text segment: %w", err)
	}

	mem.ProtectReadOnly(emu.TextBase, emu.TextBase+textSize)

	return Image{
		TextBase: emu.TextBase,
		DataBase: emu.DataBase,
		TextSize: textSize,
		DataSize: dataSize,
		Entry:    emu.TextBase,
	}, nil
}

// LoadFlat loads a headerless image consisting only of instruction
// words, placed directly at the text base with no data segment. This
// is a convenience for hand-assembled smoke-test programs; it is not
// a replacement for the full LoadImage format.
func LoadFlat(mem *emu.Memory, text []byte) (Image, error) {
	if err := writeSegment(mem, emu.TextBase, text); err != nil {
		return Image{}, fmt.Errorf("loader: placing text segment: %w", err)
	}

	textSize := uint32(len(text))
	mem.ProtectReadOnly(emu.TextBase, emu.TextBase+textSize)

	return Image{
		TextBase: emu.TextBase,
		TextSize: textSize,
		Entry:    emu.TextBase,
	}, nil
}

func writeSegment(mem *emu.Memory, base uint32, data []byte) error {
	for i, b := range data {
		if err := mem.InitWrite8(base+uint32(i), b); err != nil {
			return err
		}
	}
	return nil
}
