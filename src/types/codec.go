package types

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when a buffer ends before a value is complete.
	ErrTruncated = errors.New("truncated input")
	// ErrTrailingBytes is returned when a buffer holds more than one value.
	ErrTrailingBytes = errors.New("trailing bytes")
)

// maxVecLen bounds the element count of any decoded vector so that a corrupt
// length cannot trigger a huge allocation.
const maxVecLen = 1 << 20

// Writer appends little-endian fixed-width values to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Uint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) Hash(h Hash) {
	w.buf = append(w.buf, h[:]...)
}

// VarBytes writes a u32 length followed by the bytes.
func (w *Writer) VarBytes(b []byte) {
	w.Uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// Reader consumes values written by Writer. The first failure is sticky:
// later reads return zero values and Err reports the original error.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first decoding error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Finish returns the first decoding error, or ErrTrailingBytes when input
// remains unread.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%w: %d unread", ErrTrailingBytes, len(r.data)-r.off)
	}
	return nil
}

// Fail records err unless an earlier error is already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Hash() Hash {
	var h Hash
	if b := r.take(HashSize); b != nil {
		copy(h[:], b)
	}
	return h
}

// VarBytes reads a u32 length followed by that many bytes. The result is a
// copy and does not alias the input.
func (r *Reader) VarBytes() []byte {
	n := r.Uint32()
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// VecLen reads a u32 element count and checks it against maxVecLen.
func (r *Reader) VecLen() int {
	n := r.Uint32()
	if n > maxVecLen {
		r.Fail(fmt.Errorf("vector length %d exceeds limit", n))
		return 0
	}
	return int(n)
}
