package pmtiles

import (
	"encoding/binary"
	"errors"
)

const magic = "PMTiles"

// SerializeHeader encodes a header into its 127 byte form.
func SerializeHeader(h HeaderV3) []byte {
	le := binary.LittleEndian
	b := make([]byte, 0, HeaderV3LenBytes)
	b = append(b, magic...)
	b = append(b, 3)
	for _, v := range []uint64{
		h.RootOffset, h.RootLength,
		h.MetadataOffset, h.MetadataLength,
		h.LeafDirectoryOffset, h.LeafDirectoryLength,
		h.TileDataOffset, h.TileDataLength,
		h.AddressedTilesCount, h.TileEntriesCount, h.TileContentsCount,
	} {
		b = le.AppendUint64(b, v)
	}

	var clustered byte
	if h.Clustered {
		clustered = 1
	}
	b = append(b, clustered, byte(h.InternalCompression), byte(h.TileCompression), byte(h.TileType), h.MinZoom, h.MaxZoom)
	for _, v := range []int32{h.MinLonE7, h.MinLatE7, h.MaxLonE7, h.MaxLatE7} {
		b = le.AppendUint32(b, uint32(v))
	}
	b = append(b, h.CenterZoom)
	b = le.AppendUint32(b, uint32(h.CenterLonE7))
	b = le.AppendUint32(b, uint32(h.CenterLatE7))
	return b
}

// DeserializeHeader parses a binary header.
func DeserializeHeader(d []byte) (HeaderV3, error) {
	var h HeaderV3
	if len(d) < HeaderV3LenBytes {
		return h, errors.New("pmtiles: buffer too small for header")
	}
	if string(d[:7]) != magic {
		return h, errors.New("pmtiles: magic number not detected")
	}

	le := binary.LittleEndian
	u64 := func(off int) uint64 { return le.Uint64(d[off : off+8]) }
	i32 := func(off int) int32 { return int32(le.Uint32(d[off : off+4])) }

	h.SpecVersion = d[7]
	h.RootOffset, h.RootLength = u64(8), u64(16)
	h.MetadataOffset, h.MetadataLength = u64(24), u64(32)
	h.LeafDirectoryOffset, h.LeafDirectoryLength = u64(40), u64(48)
	h.TileDataOffset, h.TileDataLength = u64(56), u64(64)
	h.AddressedTilesCount = u64(72)
	h.TileEntriesCount = u64(80)
	h.TileContentsCount = u64(88)
	h.Clustered = d[96] == 1
	h.InternalCompression = Compression(d[97])
	h.TileCompression = Compression(d[98])
	h.TileType = TileType(d[99])
	h.MinZoom, h.MaxZoom = d[100], d[101]
	h.MinLonE7, h.MinLatE7 = i32(102), i32(106)
	h.MaxLonE7, h.MaxLatE7 = i32(110), i32(114)
	h.CenterZoom = d[118]
	h.CenterLonE7, h.CenterLatE7 = i32(119), i32(123)
	return h, nil
}
