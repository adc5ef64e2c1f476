package tiles

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// HeaderLen is the fixed size of a PMTiles v3 header.
const HeaderLen = 127

// PMTiles v3 enum values used by raster archives.
const (
	compressionNone = 1
	compressionGzip = 2
	tileTypePNG     = 2
)

// ErrNotArchive is returned when the magic bytes are missing.
var ErrNotArchive = errors.New("not a pmtiles v3 archive")

// Header is the subset of the PMTiles v3 header a raster archive fills in.
type Header struct {
	RootOffset     uint64
	RootLength     uint64
	MetadataOffset uint64
	MetadataLength uint64
	TileDataOffset uint64
	TileDataLength uint64
	Addressed      uint64
	Entries        uint64
	Contents       uint64
	MinZoom        uint8
	MaxZoom        uint8
	Bound          orb.Bound
	CenterZoom     uint8
	Center         orb.Point
}

// Entry addresses RunLength consecutive tile IDs sharing one blob.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// TileID converts z/x/y to the archive's Hilbert curve ID.
func TileID(t maptile.Tile) uint64 {
	z := uint8(t.Z)
	x, y := t.X, t.Y
	acc := (uint64(1)<<(2*uint64(z)) - 1) / 3
	for s := uint32(1) << z >> 1; s > 0; s >>= 1 {
		rx := s & x
		ry := s & y
		acc += uint64((3*rx)^ry) * uint64(s)
		if ry == 0 {
			if rx != 0 {
				x = s - 1 - x
				y = s - 1 - y
			}
			x, y = y, x
		}
	}
	return acc
}

// Archive accumulates PNG tiles. Identical blobs are stored once.
type Archive struct {
	tiles map[uint64][]byte
	minZ  uint8
	maxZ  uint8
	bound orb.Bound
	meta  map[string]any
}

// NewArchive creates an empty archive covering a lon/lat bound.
func NewArchive(bound orb.Bound, meta map[string]any) *Archive {
	return &Archive{tiles: make(map[uint64][]byte), minZ: math.MaxUint8, bound: bound, meta: meta}
}

// Add stores a tile, replacing any earlier blob for the same tile.
func (a *Archive) Add(t maptile.Tile, data []byte) {
	a.tiles[TileID(t)] = data
	a.minZ = min(a.minZ, uint8(t.Z))
	a.maxZ = max(a.maxZ, uint8(t.Z))
}

// Len is the number of addressed tiles.
func (a *Archive) Len() int { return len(a.tiles) }

// WriteTo serialises the archive: header, root directory, metadata, tile data.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	if len(a.tiles) == 0 {
		return 0, errors.New("no tiles to write")
	}

	ids := make([]uint64, 0, len(a.tiles))
	for id := range a.tiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		entries []Entry
		data    bytes.Buffer
		seen    = make(map[uint64]uint64)
	)
	for _, id := range ids {
		blob := a.tiles[id]
		sum := xxhash.Sum64(blob)
		off, dup := seen[sum]
		if !dup {
			off = uint64(data.Len())
			seen[sum] = off
			data.Write(blob)
		}
		if n := len(entries); n > 0 {
			last := &entries[n-1]
			if last.Offset == off && last.TileID+uint64(last.RunLength) == id {
				last.RunLength++
				continue
			}
		}
		entries = append(entries, Entry{TileID: id, Offset: off, Length: uint32(len(blob)), RunLength: 1})
	}

	root, err := encodeEntries(entries)
	if err != nil {
		return 0, err
	}
	meta, err := encodeMetadata(a.meta)
	if err != nil {
		return 0, err
	}

	h := Header{
		RootOffset:     HeaderLen,
		RootLength:     uint64(len(root)),
		MetadataLength: uint64(len(meta)),
		TileDataLength: uint64(data.Len()),
		Addressed:      uint64(len(ids)),
		Entries:        uint64(len(entries)),
		Contents:       uint64(len(seen)),
		MinZoom:        a.minZ,
		MaxZoom:        a.maxZ,
		Bound:          a.bound,
		CenterZoom:     a.minZ,
		Center:         a.bound.Center(),
	}
	h.MetadataOffset = h.RootOffset + h.RootLength
	h.TileDataOffset = h.MetadataOffset + h.MetadataLength

	var total int64
	for _, part := range [][]byte{encodeHeader(h), root, meta, data.Bytes()} {
		n, err := w.Write(part)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func e7(f float64) uint32 { return uint32(int32(math.Round(f * 1e7))) }

func fromE7(u uint32) float64 { return float64(int32(u)) / 1e7 }

func encodeHeader(h Header) []byte {
	b := make([]byte, HeaderLen)
	copy(b[0:7], "PMTiles")
	b[7] = 3
	le := binary.LittleEndian
	le.PutUint64(b[8:], h.RootOffset)
	le.PutUint64(b[16:], h.RootLength)
	le.PutUint64(b[24:], h.MetadataOffset)
	le.PutUint64(b[32:], h.MetadataLength)
	// 40..55: no leaf directories
	le.PutUint64(b[56:], h.TileDataOffset)
	le.PutUint64(b[64:], h.TileDataLength)
	le.PutUint64(b[72:], h.Addressed)
	le.PutUint64(b[80:], h.Entries)
	le.PutUint64(b[88:], h.Contents)
	b[96] = 1
	b[97] = compressionGzip
	b[98] = compressionNone
	b[99] = tileTypePNG
	b[100] = h.MinZoom
	b[101] = h.MaxZoom
	le.PutUint32(b[102:], e7(h.Bound.Min[0]))
	le.PutUint32(b[106:], e7(h.Bound.Min[1]))
	le.PutUint32(b[110:], e7(h.Bound.Max[0]))
	le.PutUint32(b[114:], e7(h.Bound.Max[1]))
	b[118] = h.CenterZoom
	le.PutUint32(b[119:], e7(h.Center[0]))
	le.PutUint32(b[123:], e7(h.Center[1]))
	return b
}

// ReadHeader parses the first HeaderLen bytes of an archive.
func ReadHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen || string(b[0:7]) != "PMTiles" || b[7] != 3 {
		return Header{}, ErrNotArchive
	}
	le := binary.LittleEndian
	return Header{
		RootOffset:     le.Uint64(b[8:]),
		RootLength:     le.Uint64(b[16:]),
		MetadataOffset: le.Uint64(b[24:]),
		MetadataLength: le.Uint64(b[32:]),
		TileDataOffset: le.Uint64(b[56:]),
		TileDataLength: le.Uint64(b[64:]),
		Addressed:      le.Uint64(b[72:]),
		Entries:        le.Uint64(b[80:]),
		Contents:       le.Uint64(b[88:]),
		MinZoom:        b[100],
		MaxZoom:        b[101],
		Bound: orb.Bound{
			Min: orb.Point{fromE7(le.Uint32(b[102:])), fromE7(le.Uint32(b[106:]))},
			Max: orb.Point{fromE7(le.Uint32(b[110:])), fromE7(le.Uint32(b[114:]))},
		},
		CenterZoom: b[118],
		Center:     orb.Point{fromE7(le.Uint32(b[119:])), fromE7(le.Uint32(b[123:]))},
	}, nil
}

func encodeEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tmp := make([]byte, binary.MaxVarintLen64)
	put := func(v uint64) {
		n := binary.PutUvarint(tmp, v)
		zw.Write(tmp[:n])
	}

	put(uint64(len(entries)))
	var last uint64
	for _, e := range entries {
		put(e.TileID - last)
		last = e.TileID
	}
	for _, e := range entries {
		put(uint64(e.RunLength))
	}
	for _, e := range entries {
		put(uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			put(0)
		} else {
			put(e.Offset + 1)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing directory: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadEntries decodes a gzip-compressed directory.
func ReadEntries(b []byte) ([]Entry, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(raw)

	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, n)
	var last uint64
	for i := range entries {
		d, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		last += d
		entries[i].TileID = last
	}
	for i := range entries {
		v, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		entries[i].RunLength = uint32(v)
	}
	for i := range entries {
		v, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		entries[i].Length = uint32(v)
	}
	for i := range entries {
		v, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		if v == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = v - 1
		}
	}
	return entries, nil
}

func encodeMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	js, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(js)
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing metadata: %w", err)
	}
	return buf.Bytes(), nil
}
