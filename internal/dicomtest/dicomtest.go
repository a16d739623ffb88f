// Package dicomtest writes minimal DICOM Part 10 files for tests.
package dicomtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// ExplicitVRLittleEndian is the transfer syntax of every generated file
const ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"

const preambleLen = 128

// Element is one short-form explicit-VR data element
type Element struct {
	Group, Element uint16
	VR             string
	Value          string
}

func encodeElement(buf *bytes.Buffer, e Element) {
	value := []byte(e.Value)
	if len(value)%2 == 1 {
		pad := byte(' ')
		if e.VR == "UI" {
			pad = 0
		}
		value = append(value, pad)
	}
	binary.Write(buf, binary.LittleEndian, e.Group)
	binary.Write(buf, binary.LittleEndian, e.Element)
	buf.WriteString(e.VR)
	binary.Write(buf, binary.LittleEndian, uint16(len(value)))
	buf.Write(value)
}

// Encode builds a file: preamble, DICM magic, file meta group with its
// group length, then elements in the order given.
func Encode(elements []Element) []byte {
	var meta bytes.Buffer
	encodeElement(&meta, Element{0x0002, 0x0002, "UI", "1.2.840.10008.5.1.4.1.1.4"})
	encodeElement(&meta, Element{0x0002, 0x0003, "UI", "1.2.826.0.1.3680043.2.1125.1"})
	encodeElement(&meta, Element{0x0002, 0x0010, "UI", ExplicitVRLittleEndian})

	var out bytes.Buffer
	out.Write(make([]byte, preambleLen))
	out.WriteString("DICM")

	binary.Write(&out, binary.LittleEndian, uint16(0x0002))
	binary.Write(&out, binary.LittleEndian, uint16(0x0000))
	out.WriteString("UL")
	binary.Write(&out, binary.LittleEndian, uint16(4))
	binary.Write(&out, binary.LittleEndian, uint32(meta.Len()))
	out.Write(meta.Bytes())

	for _, e := range elements {
		encodeElement(&out, e)
	}
	return out.Bytes()
}

// Broken passes the preamble check but ends inside the file meta group
func Broken() []byte {
	data := make([]byte, preambleLen)
	data = append(data, "DICM"...)
	return append(data, 0x02, 0x00, 0x00)
}

// Series returns every identifying attribute, sorted by tag
func Series(seriesNumber, description string) []Element {
	return []Element{
		{0x0008, 0x103E, "LO", description},
		{0x0010, 0x0010, "PN", "Doe^Jane"},
		{0x0010, 0x0020, "LO", "PID-0042"},
		{0x0010, 0x0030, "DA", "19800131"},
		{0x0010, 0x0040, "CS", "F"},
		{0x0010, 0x1010, "AS", "045Y"},
		{0x0020, 0x0011, "IS", seriesNumber},
		{0x0020, 0x0013, "IS", "7"},
		{0x0020, 0x0032, "DS", `-125.5\-98\42`},
	}
}

// WriteFile writes data to dir/name and returns the path
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
