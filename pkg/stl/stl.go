// Package stl reads and writes STL surface meshes.
//
// Both the binary and the ASCII encodings are read; output is always binary.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	headerSize   = 80
	triangleSize = 50
)

// Triangle represents a single facet with its normal vector
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// Vertices returns the three corners in order.
func (t Triangle) Vertices() [3][3]float32 {
	return [3][3]float32{t.Vertex1, t.Vertex2, t.Vertex3}
}

// ReadFile loads an STL file in either encoding
func ReadFile(path string) ([]Triangle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL file: %w", err)
	}
	triangles, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return triangles, nil
}

// Decode parses STL data. Data whose size matches the binary layout exactly
// is binary even when its header starts with "solid", which many exporters write.
func Decode(data []byte) ([]Triangle, error) {
	if len(data) >= headerSize+4 {
		count := binary.LittleEndian.Uint32(data[headerSize : headerSize+4])
		if int64(headerSize+4)+int64(count)*triangleSize == int64(len(data)) {
			return decodeBinary(data[headerSize+4:], int(count))
		}
	}
	if hasSolidPrefix(data) {
		if !isText(data) {
			return nil, fmt.Errorf("not an STL file: \"solid\" header followed by binary data of %d bytes", len(data))
		}
		return decodeASCII(bytes.NewReader(data))
	}
	if len(data) < headerSize+4 {
		return nil, fmt.Errorf("not an STL file: %d bytes", len(data))
	}
	return nil, fmt.Errorf("binary STL size mismatch: %d bytes", len(data))
}

func hasSolidPrefix(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) >= 5 && bytes.EqualFold(trimmed[:5], []byte("solid"))
}

// isText reports whether data holds no control bytes besides whitespace
func isText(data []byte) bool {
	for _, b := range data {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f' && b != '\v' {
			return false
		}
		if b == 0x7f {
			return false
		}
	}
	return true
}

func decodeBinary(body []byte, count int) ([]Triangle, error) {
	triangles := make([]Triangle, count)
	r := bytes.NewReader(body)
	for i := range triangles {
		var rec struct {
			Normal, V1, V2, V3 [3]float32
			Attr               uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("triangle %d: %w", i, err)
		}
		triangles[i] = Triangle{Normal: rec.Normal, Vertex1: rec.V1, Vertex2: rec.V2, Vertex3: rec.V3}
	}
	return triangles, nil
}

func decodeASCII(r io.Reader) ([]Triangle, error) {
	var (
		triangles []Triangle
		current   Triangle
		vertex    int
		inFacet   bool
		ended     bool
		line      int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		// keywords are case-insensitive; CAD exporters write both cases
		switch strings.ToLower(fields[0]) {
		case "facet":
			if len(fields) != 5 || !strings.EqualFold(fields[1], "normal") {
				return nil, fmt.Errorf("line %d: malformed facet", line)
			}
			n, err := parseVector(fields[2:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			current = Triangle{Normal: n}
			vertex = 0
			inFacet = true
		case "vertex":
			if !inFacet || vertex > 2 || len(fields) != 4 {
				return nil, fmt.Errorf("line %d: unexpected vertex", line)
			}
			v, err := parseVector(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			switch vertex {
			case 0:
				current.Vertex1 = v
			case 1:
				current.Vertex2 = v
			case 2:
				current.Vertex3 = v
			}
			vertex++
		case "endfacet":
			if !inFacet || vertex != 3 {
				return nil, fmt.Errorf("line %d: facet with %d vertices", line, vertex)
			}
			triangles = append(triangles, current)
			inFacet = false
		case "endsolid":
			ended = true
		case "solid", "outer", "endloop":
		default:
			return nil, fmt.Errorf("line %d: unexpected keyword %q", line, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inFacet {
		return nil, fmt.Errorf("unterminated facet at end of file")
	}
	if !ended {
		return nil, fmt.Errorf("missing endsolid at end of file")
	}
	return triangles, nil
}

func parseVector(fields []string) ([3]float32, error) {
	var v [3]float32
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return v, fmt.Errorf("invalid number %q", f)
		}
		v[i] = float32(x)
	}
	return v, nil
}

// Write encodes triangles as binary STL
func Write(w io.Writer, triangles []Triangle) error {
	if uint64(len(triangles)) > math.MaxUint32 {
		return fmt.Errorf("too many triangles: %d", len(triangles))
	}

	header := make([]byte, headerSize)
	copy(header, "binary STL written by medpipe")
	if _, err := w.Write(header); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return err
	}

	buf := make([]byte, triangleSize)
	for _, t := range triangles {
		off := 0
		for _, v := range [4][3]float32{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3} {
			for _, c := range v {
				binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(c))
				off += 4
			}
		}
		// attribute byte count stays zero
		buf[48], buf[49] = 0, 0
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// SaveToSTL writes triangles to a binary STL file
func SaveToSTL(filename string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}

	bw := bufio.NewWriter(file)
	if err := Write(bw, triangles); err != nil {
		file.Close()
		return fmt.Errorf("failed to write STL file: %w", err)
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write STL file: %w", err)
	}
	return file.Close()
}
