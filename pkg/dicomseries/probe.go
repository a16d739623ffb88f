package dicomseries

import (
	"bytes"
	"io"
	"os"
)

const preambleLen = 128

var magic = []byte("DICM")

// IsDICOM reports whether path starts with a Part 10 preamble followed by the
// DICM magic. It reads 132 bytes and never parses the dataset; unreadable
// files are simply not DICOM.
func IsDICOM(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, preambleLen+len(magic))
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	return bytes.Equal(buf[preambleLen:], magic)
}
