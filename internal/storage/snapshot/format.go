package snapshot

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/yndnr/metasnap/internal/core/domain"
)

// Field sizes of the snapshot byte grammar.
const (
	int32Size   = 4
	boolSize    = 1
	utfLenSize  = 2
	maxUTFBytes = 0xFFFF

	// maxPrealloc bounds slice preallocation when the stream length is unknown.
	maxPrealloc = 1024
)

// Writer writes the snapshot primitives to a sequential stream.
type Writer struct {
	w *bufio.Writer
	n int64
}

// NewWriter returns a Writer buffering into w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Written returns the number of bytes accepted so far.
func (w *Writer) Written() int64 {
	return w.n
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func (w *Writer) write(p []byte) error {
	n, err := w.w.Write(p)
	w.n += int64(n)
	return err
}

// WriteInt32 writes a 4-byte big-endian signed integer.
func (w *Writer) WriteInt32(v int32) error {
	var buf [int32Size]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	return w.write(buf[:])
}

// WriteBool writes a single byte, 1 for true and 0 for false.
func (w *Writer) WriteBool(b bool) error {
	var v byte
	if b {
		v = 1
	}
	if err := w.w.WriteByte(v); err != nil {
		return err
	}
	w.n += boolSize
	return nil
}

// WriteUTF writes a uint16 byte length followed by the UTF-8 bytes of s.
func (w *Writer) WriteUTF(s string) error {
	if len(s) > maxUTFBytes {
		return domain.ErrStringTooLong.WithDetailsf("%d bytes", len(s))
	}
	if !utf8.ValidString(s) {
		return domain.ErrInvalidRecord.WithDetails("string is not valid UTF-8")
	}
	var buf [utfLenSize]byte
	binary.BigEndian.PutUint16(buf[:], uint16(len(s)))
	if err := w.write(buf[:]); err != nil {
		return err
	}
	n, err := w.w.WriteString(s)
	w.n += int64(n)
	return err
}

// WriteStringArray writes the element count followed by each element.
func (w *Writer) WriteStringArray(arr []string) error {
	if len(arr) > int(^uint32(0)>>1) {
		return domain.ErrInvalidRecord.WithDetailsf("string array too large: %d", len(arr))
	}
	if err := w.WriteInt32(int32(len(arr))); err != nil {
		return err
	}
	for _, s := range arr {
		if err := w.WriteUTF(s); err != nil {
			return err
		}
	}
	return nil
}

// Reader reads the snapshot primitives from a sequential stream.
//
// When the total stream length is known, counts that would need more bytes
// than remain are rejected before any allocation.
type Reader struct {
	r         *bufio.Reader
	offset    int64
	remaining int64
}

// NewReader returns a Reader over r. size is the number of bytes available,
// or -1 if unknown.
func NewReader(r io.Reader, size int64) *Reader {
	if size < 0 {
		size = -1
	}
	return &Reader{r: bufio.NewReader(r), remaining: size}
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Remaining returns the bytes left in the stream, or -1 if unknown.
func (r *Reader) Remaining() int64 {
	return r.remaining
}

func (r *Reader) corrupt(format string, args ...any) error {
	return domain.ErrCorruptSnapshot.WithDetailsf("offset %d: %s", r.offset, fmt.Sprintf(format, args...))
}

func (r *Reader) need(n int64) error {
	if r.remaining >= 0 && n > r.remaining {
		return r.corrupt("need %d bytes, %d remain", n, r.remaining)
	}
	return nil
}

func (r *Reader) readFull(buf []byte) error {
	if err := r.need(int64(len(buf))); err != nil {
		return err
	}
	n, err := io.ReadFull(r.r, buf)
	r.offset += int64(n)
	if r.remaining >= 0 {
		r.remaining -= int64(n)
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return r.corrupt("unexpected end of stream")
		}
		return err
	}
	return nil
}

// ReadInt32 reads a 4-byte big-endian signed integer.
func (r *Reader) ReadInt32() (int32, error) {
	var buf [int32Size]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// ReadBool reads a single boolean byte. Bytes other than 0 and 1 mean the
// stream is out of position.
func (r *Reader) ReadBool() (bool, error) {
	var buf [boolSize]byte
	if err := r.readFull(buf[:]); err != nil {
		return false, err
	}
	switch buf[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, r.corrupt("invalid boolean byte 0x%02x", buf[0])
	}
}

// ReadUTF reads a length-prefixed UTF-8 string.
func (r *Reader) ReadUTF() (string, error) {
	var lenBuf [utfLenSize]byte
	if err := r.readFull(lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", r.corrupt("invalid UTF-8 in %d byte string", n)
	}
	return string(buf), nil
}

// ReadStringArray reads a count followed by that many strings.
func (r *Reader) ReadStringArray() ([]string, error) {
	count, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, r.corrupt("negative string array length %d", count)
	}
	if err := r.need(int64(count) * utfLenSize); err != nil {
		return nil, err
	}

	capacity := int(count)
	if r.remaining < 0 && capacity > maxPrealloc {
		capacity = maxPrealloc
	}
	arr := make([]string, 0, capacity)
	for i := int32(0); i < count; i++ {
		s, err := r.ReadUTF()
		if err != nil {
			return nil, err
		}
		arr = append(arr, s)
	}
	return arr, nil
}
