package main

import (
	"bytes"
	"fmt"
)

// Program is a loaded TM ROM image: its declared metadata plus the raw
// image bytes, indexed directly by absolute address exactly as
// tm_read_rom_byte/tm_write_rom_byte index m_rom — no header-relative
// rebasing. ROM[0] is the magic number's first byte, ROM[ProgramStart]
// is the first byte of the program region, and so on.
type Program struct {
	Name   string
	Author string
	ROM    []byte
}

// LoadProgram validates a ROM image against the container format in §3.3
// and returns the decoded Program. It mirrors tm_init_program's file-size
// bounds check (the metadata region's size as a floor, the address
// space's size as a ceiling), checks the magic number, and trims the
// name/author fields at their NUL terminator. The whole validated image
// is kept as Program.ROM; there is no header/body split.
func LoadProgram(data []byte) (*Program, error) {
	if err := validateImageSize(len(data)); err != nil {
		return nil, err
	}

	magic := uint32(data[MagicNumberAddress])<<24 | uint32(data[MagicNumberAddress+1])<<16 |
		uint32(data[MagicNumberAddress+2])<<8 | uint32(data[MagicNumberAddress+3])
	if magic != MagicNumber {
		return nil, fmt.Errorf("tm: bad magic number $%08X", magic)
	}

	name := readCString(data[ProgramNameAddress : int(ProgramNameAddress)+ProgramNameSize])
	author := readCString(data[ProgramAuthorAddress : int(ProgramAuthorAddress)+ProgramAuthorSize])

	return &Program{
		Name:   name,
		Author: author,
		ROM:    data,
	}, nil
}

// validateImageSize checks n (a candidate image's byte length) against
// tm_init_program's two file-size rejections: l_rom_size < TM_ROM_MINIMUM_SIZE
// (here, MetadataSize — the metadata region must fit) and
// l_rom_size > TM_ROM_SIZE (here, RomSize — the 2 GiB ROM address space
// ceiling). It is factored out of LoadProgram so the boundaries can be
// tested without allocating a 2 GiB fixture.
func validateImageSize(n int) error {
	if n < int(MetadataSize) {
		return fmt.Errorf("tm: program image too small (%d bytes, minimum %d)", n, MetadataSize)
	}
	if n > int(RomSize) {
		return fmt.Errorf("tm: program image too large (%d bytes, maximum %d)", n, RomSize)
	}
	return nil
}

func readCString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}

// Encode re-stamps p's header fields (magic number, name, author) into a
// copy of p.ROM and returns the result, for tooling that builds or edits
// ROM images rather than only reading them. The copy is grown to
// MetadataSize first if it is shorter than the header region it must hold;
// p.ROM itself is left unchanged.
func (p *Program) Encode() []byte {
	out := append([]byte(nil), p.ROM...)
	if len(out) < int(MetadataSize) {
		grown := make([]byte, MetadataSize)
		copy(grown, out)
		out = grown
	}

	out[0], out[1], out[2], out[3] = byte(MagicNumber>>24), byte(MagicNumber>>16&0xFF), byte(MagicNumber>>8&0xFF), byte(MagicNumber&0xFF)

	nameField := out[ProgramNameAddress : int(ProgramNameAddress)+ProgramNameSize]
	for i := range nameField {
		nameField[i] = 0
	}
	copy(nameField, p.Name)

	authorField := out[ProgramAuthorAddress : int(ProgramAuthorAddress)+ProgramAuthorSize]
	for i := range authorField {
		authorField[i] = 0
	}
	copy(authorField, p.Author)

	return out
}
