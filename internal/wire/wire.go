package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindState byte = 1

	flagData byte = 1 << 0
	flagErr  byte = 1 << 1
)

var (
	ErrCorrupt = errors.New("swrcache: corrupt entry")
	magic4     = [...]byte{'S', 'W', 'R', 'C'}
)

// Record is the persisted form of a cached state. Times are unix milliseconds;
// 0 means unset.
type Record struct {
	HasData    bool
	Payload    []byte
	HasErr     bool
	Err        string
	Time       int64
	Cooldown   int64
	Expiration int64
}

const header = 4 + 1 + 1 + 1 + 8 + 8 + 8

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames r as:
//
//	magic(4) | ver(1) | kind(1) | flags(1) | time(i64 be) | cooldown(i64 be) | expiration(i64 be)
//	errLen(u32 be) | err(errLen) | vlen(u32 be) | payload(vlen)
func Encode(r Record) []byte {
	var buf bytes.Buffer
	buf.Grow(header + 4 + len(r.Err) + 4 + len(r.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindState)

	var flags byte
	if r.HasData {
		flags |= flagData
	}
	if r.HasErr {
		flags |= flagErr
	}
	buf.WriteByte(flags)

	var u8 [8]byte
	var u4 [4]byte
	for _, ts := range [...]int64{r.Time, r.Cooldown, r.Expiration} {
		binary.BigEndian.PutUint64(u8[:], uint64(ts))
		buf.Write(u8[:])
	}

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Err)))
	buf.Write(u4[:])
	buf.WriteString(r.Err)

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Payload)))
	buf.Write(u4[:])
	buf.Write(r.Payload)
	return buf.Bytes()
}

// Decode parses a frame produced by Encode. Trailing bytes are rejected.
func Decode(b []byte) (Record, error) {
	var r Record
	if len(b) < header || !hasMagic(b) || b[4] != version || b[5] != kindState {
		return r, ErrCorrupt
	}
	flags := b[6]
	if flags&^(flagData|flagErr) != 0 {
		return r, ErrCorrupt
	}
	r.HasData = flags&flagData != 0
	r.HasErr = flags&flagErr != 0

	off := 7
	r.Time = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	r.Cooldown = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	r.Expiration = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	// err
	if off+4 > len(b) {
		return r, ErrCorrupt
	}
	elen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if elen < 0 || elen > len(b)-off {
		return r, ErrCorrupt
	}
	r.Err = string(b[off : off+elen])
	off += elen

	// payload
	if off+4 > len(b) {
		return r, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return r, ErrCorrupt
	}
	r.Payload = b[off : off+vlen]

	if !r.HasData && len(r.Payload) != 0 {
		return r, ErrCorrupt
	}
	if !r.HasErr && elen != 0 {
		return r, ErrCorrupt
	}
	return r, nil
}
