// Package wire frames encoded payload documents for the handoff store.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version     byte = 1
	kindPayload byte = 1
)

// Format identifies the codec a framed document was encoded with.
type Format byte

const (
	FormatJSON Format = iota + 1
	FormatMsgpack
	FormatCBOR
	FormatProtobuf
)

func (f Format) Valid() bool { return f >= FormatJSON && f <= FormatProtobuf }

var (
	ErrCorrupt = errors.New("asyncdata: corrupt payload frame")
	magic4     = [...]byte{'A', 'D', 'P', 'L'}
)

const header = 4 + 1 + 1 + 1 + 8 + 4

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Frame: magic(4) | ver(1) | kind(1) | format(1) | gen(u64 be) | vlen(u32 be) | payload(vlen)
func Encode(gen uint64, f Format, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(header + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindPayload)
	buf.WriteByte(byte(f))

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func Decode(b []byte) (gen uint64, f Format, payload []byte, err error) {
	if len(b) < header || !hasMagic(b) || b[4] != version || b[5] != kindPayload {
		return 0, 0, nil, ErrCorrupt
	}
	f = Format(b[6])
	if !f.Valid() {
		return 0, 0, nil, ErrCorrupt
	}

	off := 7
	gen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // trailing bytes are corruption too
		return 0, 0, nil, ErrCorrupt
	}

	return gen, f, b[off : off+vlen], nil
}
