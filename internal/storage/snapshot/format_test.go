package snapshot

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yndnr/metasnap/internal/core/domain"
)

func TestWriter_Primitives(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteInt32(-2); err != nil {
		t.Fatalf("WriteInt32 failed: %v", err)
	}
	if err := w.WriteBool(true); err != nil {
		t.Fatalf("WriteBool failed: %v", err)
	}
	if err := w.WriteBool(false); err != nil {
		t.Fatalf("WriteBool failed: %v", err)
	}
	if err := w.WriteUTF("hé"); err != nil {
		t.Fatalf("WriteUTF failed: %v", err)
	}
	if err := w.WriteStringArray([]string{"a", ""}); err != nil {
		t.Fatalf("WriteStringArray failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	want := []byte{
		0xFF, 0xFF, 0xFF, 0xFE,
		0x01,
		0x00,
		0x00, 0x03, 'h', 0xC3, 0xA9,
		0x00, 0x00, 0x00, 0x02, 0x00, 0x01, 'a', 0x00, 0x00,
	}
	if diff := cmp.Diff(want, buf.Bytes()); diff != "" {
		t.Fatalf("bytes mismatch (-want +got):\n%s", diff)
	}
	if w.Written() != int64(len(want)) {
		t.Errorf("Written() = %d, want %d", w.Written(), len(want))
	}
}

func TestWriter_StringLimits(t *testing.T) {
	w := NewWriter(io.Discard)

	if err := w.WriteUTF(strings.Repeat("x", maxUTFBytes)); err != nil {
		t.Fatalf("max length string rejected: %v", err)
	}
	err := w.WriteUTF(strings.Repeat("x", maxUTFBytes+1))
	if !errors.Is(err, domain.ErrStringTooLong) {
		t.Fatalf("expected ErrStringTooLong, got %v", err)
	}
	err = w.WriteUTF(string([]byte{0xFF}))
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for invalid UTF-8, got %v", err)
	}
}

func TestReader_Primitives(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x01, 0x00,
		0x01,
		0x00, 0x02, 'o', 'k',
		0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 'z',
	}
	r := NewReader(bytes.NewReader(data), int64(len(data)))

	n, err := r.ReadInt32()
	if err != nil || n != 256 {
		t.Fatalf("ReadInt32 = %d, %v", n, err)
	}
	b, err := r.ReadBool()
	if err != nil || !b {
		t.Fatalf("ReadBool = %v, %v", b, err)
	}
	s, err := r.ReadUTF()
	if err != nil || s != "ok" {
		t.Fatalf("ReadUTF = %q, %v", s, err)
	}
	arr, err := r.ReadStringArray()
	if err != nil {
		t.Fatalf("ReadStringArray failed: %v", err)
	}
	if diff := cmp.Diff([]string{"z"}, arr); diff != "" {
		t.Fatalf("array mismatch (-want +got):\n%s", diff)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}
	if r.Offset() != int64(len(data)) {
		t.Errorf("Offset() = %d, want %d", r.Offset(), len(data))
	}
}

func TestReader_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		size int64
		read func(r *Reader) error
	}{
		{
			name: "short int32",
			data: []byte{0x00, 0x01},
			size: 2,
			read: func(r *Reader) error { _, err := r.ReadInt32(); return err },
		},
		{
			name: "short int32 unknown size",
			data: []byte{0x00, 0x01},
			size: -1,
			read: func(r *Reader) error { _, err := r.ReadInt32(); return err },
		},
		{
			name: "bool out of range",
			data: []byte{0x02},
			size: 1,
			read: func(r *Reader) error { _, err := r.ReadBool(); return err },
		},
		{
			name: "utf length past end",
			data: []byte{0x00, 0x05, 'a'},
			size: 3,
			read: func(r *Reader) error { _, err := r.ReadUTF(); return err },
		},
		{
			name: "invalid utf8",
			data: []byte{0x00, 0x01, 0xFF},
			size: 3,
			read: func(r *Reader) error { _, err := r.ReadUTF(); return err },
		},
		{
			name: "negative array count",
			data: []byte{0xFF, 0xFF, 0xFF, 0xFF},
			size: 4,
			read: func(r *Reader) error { _, err := r.ReadStringArray(); return err },
		},
		{
			name: "array count exceeds remaining",
			data: []byte{0x7F, 0xFF, 0xFF, 0xFF, 0x00, 0x00},
			size: 6,
			read: func(r *Reader) error { _, err := r.ReadStringArray(); return err },
		},
		{
			name: "array ends early unknown size",
			data: []byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x00},
			size: -1,
			read: func(r *Reader) error { _, err := r.ReadStringArray(); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(bytes.NewReader(tt.data), tt.size)
			err := tt.read(r)
			if !errors.Is(err, domain.ErrCorruptSnapshot) {
				t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
			}
		})
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReader_IOErrorIsNotCorrupt(t *testing.T) {
	ioErr := errors.New("disk unavailable")
	r := NewReader(failingReader{err: ioErr}, -1)

	_, err := r.ReadInt32()
	if !errors.Is(err, ioErr) {
		t.Fatalf("expected underlying I/O error, got %v", err)
	}
	if domain.IsFormatError(err) {
		t.Fatal("I/O error must not be reported as a format error")
	}
}
