package streets

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"trip_viewer/pkg/geo"
)

const (
	magicBytes = "TVSTREET"
	version    = uint32(1)
	maxStreets = 20_000_000
	maxPoints  = 200_000_000
	maxText    = 1 << 30
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic     [8]byte
	Version   uint32
	NumStreet uint32
	NumPoints uint32
	NumText   uint32 // bytes in the name/highway text blob
}

const flagOneway = 1 << 0

// WriteBinary serializes streets to a binary file.
// Uses unsafe.Slice for fast zero-copy I/O.
func WriteBinary(path string, streets []Street) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter

	n := len(streets)
	wayIDs := make([]int64, n)
	flags := make([]uint8, n)
	pointFirst := make([]uint32, n+1)
	nameFirst := make([]uint32, n+1)
	highwayFirst := make([]uint32, n+1)
	var nodeIDs []int64
	var lons, lats []float64
	var text []byte

	for i, s := range streets {
		if len(s.NodeIDs) != len(s.Points) {
			return fmt.Errorf("street %d: %d node IDs for %d points", s.WayID, len(s.NodeIDs), len(s.Points))
		}
		wayIDs[i] = s.WayID
		if s.Oneway {
			flags[i] |= flagOneway
		}
		pointFirst[i] = uint32(len(lons))
		nodeIDs = append(nodeIDs, s.NodeIDs...)
		for _, p := range s.Points {
			lons = append(lons, p.X)
			lats = append(lats, p.Y)
		}
		nameFirst[i] = uint32(len(text))
		text = append(text, s.Name...)
		highwayFirst[i] = uint32(len(text))
		text = append(text, s.Highway...)
	}
	pointFirst[n] = uint32(len(lons))
	nameFirst[n] = uint32(len(text))
	highwayFirst[n] = uint32(len(text))

	if n > maxStreets || len(lons) > maxPoints || len(text) >= maxText {
		return fmt.Errorf("street set too large: %d streets, %d points", n, len(lons))
	}

	hdr := fileHeader{
		Version:   version,
		NumStreet: uint32(n),
		NumPoints: uint32(len(lons)),
		NumText:   uint32(len(text)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	sections := []struct {
		name  string
		write func() error
	}{
		{"WayIDs", func() error { return writeSlice(w, wayIDs) }},
		{"Flags", func() error { return writeSlice(w, flags) }},
		{"PointFirst", func() error { return writeSlice(w, pointFirst) }},
		{"NodeIDs", func() error { return writeSlice(w, nodeIDs) }},
		{"Lons", func() error { return writeSlice(w, lons) }},
		{"Lats", func() error { return writeSlice(w, lats) }},
		{"NameFirst", func() error { return writeSlice(w, nameFirst) }},
		{"HighwayFirst", func() error { return writeSlice(w, highwayFirst) }},
		{"Text", func() error { return writeSlice(w, text) }},
	}
	for _, s := range sections {
		if err := s.write(); err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
	}

	// Write CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// ReadBinary deserializes streets from a binary file.
func ReadBinary(path string) ([]Street, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	// Read and validate header.
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumStreet > maxStreets {
		return nil, fmt.Errorf("NumStreet %d exceeds limit %d", hdr.NumStreet, maxStreets)
	}
	if hdr.NumPoints > maxPoints {
		return nil, fmt.Errorf("NumPoints %d exceeds limit %d", hdr.NumPoints, maxPoints)
	}

	n := int(hdr.NumStreet)
	var (
		wayIDs                  []int64
		flags, text             []uint8
		pointFirst              []uint32
		nameFirst, highwayFirst []uint32
		nodeIDs                 []int64
		lons, lats              []float64
	)

	if wayIDs, err = readSlice[int64](r, n); err != nil {
		return nil, fmt.Errorf("read WayIDs: %w", err)
	}
	if flags, err = readSlice[uint8](r, n); err != nil {
		return nil, fmt.Errorf("read Flags: %w", err)
	}
	if pointFirst, err = readSlice[uint32](r, n+1); err != nil {
		return nil, fmt.Errorf("read PointFirst: %w", err)
	}
	if nodeIDs, err = readSlice[int64](r, int(hdr.NumPoints)); err != nil {
		return nil, fmt.Errorf("read NodeIDs: %w", err)
	}
	if lons, err = readSlice[float64](r, int(hdr.NumPoints)); err != nil {
		return nil, fmt.Errorf("read Lons: %w", err)
	}
	if lats, err = readSlice[float64](r, int(hdr.NumPoints)); err != nil {
		return nil, fmt.Errorf("read Lats: %w", err)
	}
	if nameFirst, err = readSlice[uint32](r, n+1); err != nil {
		return nil, fmt.Errorf("read NameFirst: %w", err)
	}
	if highwayFirst, err = readSlice[uint32](r, n+1); err != nil {
		return nil, fmt.Errorf("read HighwayFirst: %w", err)
	}
	if text, err = readSlice[uint8](r, int(hdr.NumText)); err != nil {
		return nil, fmt.Errorf("read Text: %w", err)
	}

	// Read and validate CRC32.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := validateOffsets(pointFirst, hdr.NumPoints); err != nil {
		return nil, fmt.Errorf("PointFirst invalid: %w", err)
	}
	if err := validateOffsets(nameFirst, hdr.NumText); err != nil {
		return nil, fmt.Errorf("NameFirst invalid: %w", err)
	}
	if err := validateSplits(nameFirst, highwayFirst); err != nil {
		return nil, fmt.Errorf("HighwayFirst invalid: %w", err)
	}

	streets := make([]Street, n)
	for i := range streets {
		p0, p1 := pointFirst[i], pointFirst[i+1]
		points := make([]geo.Point, p1-p0)
		for k := range points {
			points[k] = geo.Point{X: lons[p0+uint32(k)], Y: lats[p0+uint32(k)]}
		}
		streets[i] = Street{
			WayID:   wayIDs[i],
			Name:    string(text[nameFirst[i]:highwayFirst[i]]),
			Highway: string(text[highwayFirst[i]:nameFirst[i+1]]),
			Oneway:  flags[i]&flagOneway != 0,
			NodeIDs: nodeIDs[p0:p1:p1],
			Points:  points,
		}
	}

	return streets, nil
}

// validateOffsets checks that offsets start at 0, never decrease and end at
// total.
func validateOffsets(offsets []uint32, total uint32) error {
	if len(offsets) == 0 {
		return fmt.Errorf("missing offsets")
	}
	if offsets[0] != 0 {
		return fmt.Errorf("first offset %d != 0", offsets[0])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return fmt.Errorf("offsets not monotonic at %d: %d < %d", i, offsets[i], offsets[i-1])
		}
	}
	if last := offsets[len(offsets)-1]; last != total {
		return fmt.Errorf("last offset %d != %d", last, total)
	}
	return nil
}

// validateSplits checks that each street's highway offset falls between the
// start of its name and the start of the next street's name.
func validateSplits(nameFirst, highwayFirst []uint32) error {
	if len(highwayFirst) != len(nameFirst) {
		return fmt.Errorf("%d offsets for %d names", len(highwayFirst), len(nameFirst))
	}
	for i := 0; i+1 < len(nameFirst); i++ {
		if highwayFirst[i] < nameFirst[i] || highwayFirst[i] > nameFirst[i+1] {
			return fmt.Errorf("offset %d at %d outside [%d, %d]", highwayFirst[i], i, nameFirst[i], nameFirst[i+1])
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

type fixedSize interface {
	~uint8 | ~uint32 | ~int64 | ~float64
}

func writeSlice[E fixedSize](w io.Writer, s []E) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
	_, err := w.Write(b)
	return err
}

func readSlice[E fixedSize](r io.Reader, n int) ([]E, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]E, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*int(unsafe.Sizeof(s[0])))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
