package core

// codec.go – the canonical, language-independent binary encoding used for
// transaction/block hashing and for Kura's on-disk block files (spec.md §6).
//
// Format: little-endian fixed-width integers; variable-length sequences are
// prefixed with a compact varint length (LEB128-style, 7 bits per byte,
// continuation bit set on all but the last byte); enums are tagged with a
// one-byte discriminant matching declaration order.
//
// Hand-rolled on the standard library rather than the teacher's
// github.com/ethereum/go-ethereum/rlp encoder: RLP's big-endian
// length-prefixed byte-string scheme does not match this format bit-for-bit,
// and no other pack dependency implements this exact scheme (see
// DESIGN.md).

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encoder writes the canonical binary encoding to an internal buffer.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) WriteByte_(b byte) { e.buf = append(e.buf, b) }

func (e *Encoder) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) WriteInt64(v int64) { e.WriteUint64(uint64(v)) }

// WriteVarint appends a compact LEB128-style varint length/value prefix.
func (e *Encoder) WriteVarint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// WriteBytes writes a length-prefixed byte slice.
func (e *Encoder) WriteBytes(b []byte) {
	e.WriteVarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteString writes a length-prefixed UTF-8 string.
func (e *Encoder) WriteString(s string) { e.WriteBytes([]byte(s)) }

// WriteFixed writes a fixed-size byte array verbatim (no length prefix),
// for hashes and keys whose length is already known to both sides.
func (e *Encoder) WriteFixed(b []byte) { e.buf = append(e.buf, b...) }

// Decoder reads the canonical binary encoding sequentially from a byte
// slice, returning io.ErrUnexpectedEOF on truncated input.
type Decoder struct {
	buf []byte
	pos int
}

func NewDecoder(data []byte) *Decoder { return &Decoder{buf: data} }

func (d *Decoder) remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) ReadByte_() (byte, error) {
	if d.remaining() < 1 {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	if d.remaining() < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos : d.pos+4])
	d.pos += 4
	return v, nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	if d.remaining() < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos : d.pos+8])
	d.pos += 8
	return v, nil
}

func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

func (d *Decoder) ReadVarint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := d.ReadByte_()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("varint overflow")
		}
	}
}

func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadVarint()
	if err != nil {
		return nil, err
	}
	if uint64(d.remaining()) < n {
		return nil, io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+int(n)])
	d.pos += int(n)
	return out, nil
}

func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *Decoder) ReadFixed(n int) ([]byte, error) {
	if d.remaining() < n {
		return nil, io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+n])
	d.pos += n
	return out, nil
}

// Done reports whether the decoder has consumed the entire input.
func (d *Decoder) Done() bool { return d.remaining() == 0 }
