package graph

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"
)

// Format identifies an edge-list encoding.
type Format string

const (
	// FormatAuto picks a format from the file extension.
	FormatAuto Format = "auto"
	// FormatText is one "from to" pair of unsigned ids per line.
	FormatText Format = "text"
	// FormatSnappy is FormatText wrapped in a snappy framed stream.
	FormatSnappy Format = "snappy"
	// FormatBinary is a sequence of little-endian uint64 pairs.
	FormatBinary Format = "binary"
)

// binaryRecordSize is the size of one (from, to) pair in FormatBinary.
const binaryRecordSize = 16

// DetectFormat maps a file name to its edge-list format.
func DetectFormat(path string) Format {
	switch {
	case strings.HasSuffix(path, ".sz"), strings.HasSuffix(path, ".snappy"):
		return FormatSnappy
	case strings.HasSuffix(path, ".bin"):
		return FormatBinary
	default:
		return FormatText
	}
}

// LoadEdgeList reads a text edge list. Blank lines and lines starting with '#'
// or '%' are ignored; extra columns after the first two are ignored.
func LoadEdgeList(r io.Reader, opts BuildOptions) (*AdjacencyGraph, error) {
	b := NewBuilder(opts)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || text[0] == '#' || text[0] == '%' {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d: expected two ids, got %q", ErrMalformedEdge, line, text)
		}
		from, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedEdge, line, err)
		}
		to, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedEdge, line, err)
		}
		b.AddEdge(from, to)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read edge list: %w", err)
	}
	return b.Build()
}

// LoadEdgeListFile loads a graph from path in the given format.
func LoadEdgeListFile(path string, format Format, opts BuildOptions) (*AdjacencyGraph, error) {
	if format == "" || format == FormatAuto {
		format = DetectFormat(path)
	}

	switch format {
	case FormatBinary:
		return LoadBinaryEdgeList(path, opts)
	case FormatText, FormatSnappy:
	default:
		return nil, fmt.Errorf("unknown edge list format %q", format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edge list %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if format == FormatSnappy {
		r = snappy.NewReader(f)
	}
	g, err := LoadEdgeList(r, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

// LoadBinaryEdgeList memory-maps path and reads little-endian uint64 pairs.
func LoadBinaryEdgeList(path string, opts BuildOptions) (*AdjacencyGraph, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap edge list %s: %w", path, err)
	}
	defer ra.Close()

	size := ra.Len()
	if size%binaryRecordSize != 0 {
		return nil, fmt.Errorf("%w: %s: size %d is not a multiple of %d", ErrMalformedEdge, path, size, binaryRecordSize)
	}

	b := NewBuilder(opts)
	var record [binaryRecordSize]byte
	for off := 0; off < size; off += binaryRecordSize {
		if _, err := ra.ReadAt(record[:], int64(off)); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read edge list %s at %d: %w", path, off, err)
		}
		b.AddEdge(
			binary.LittleEndian.Uint64(record[0:8]),
			binary.LittleEndian.Uint64(record[8:16]),
		)
	}
	return b.Build()
}

// WriteBinaryEdgeList writes edges in FormatBinary.
func WriteBinaryEdgeList(w io.Writer, edges [][2]uint64) error {
	bw := bufio.NewWriter(w)
	var record [binaryRecordSize]byte
	for _, e := range edges {
		binary.LittleEndian.PutUint64(record[0:8], e[0])
		binary.LittleEndian.PutUint64(record[8:16], e[1])
		if _, err := bw.Write(record[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
