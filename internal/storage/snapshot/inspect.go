package snapshot

import (
	"fmt"
	"os"

	"github.com/yndnr/metasnap/internal/core/domain"
)

// RecordInfo summarizes one record of a snapshot file.
type RecordInfo struct {
	Name           string `json:"name" yaml:"name"`
	Kind           string `json:"kind" yaml:"kind"`
	Package        string `json:"package,omitempty" yaml:"package,omitempty"`
	PayloadChunks  int    `json:"payload_chunks" yaml:"payload_chunks"`
	Strings        int    `json:"strings" yaml:"strings"`
	QualifiedNames int    `json:"qualified_names" yaml:"qualified_names"`
}

// Summary describes a snapshot file record by record.
type Summary struct {
	Info         `yaml:",inline"`
	Classes      int          `json:"classes" yaml:"classes"`
	PackageParts int          `json:"package_parts" yaml:"package_parts"`
	Records      []RecordInfo `json:"records" yaml:"records"`
}

// Inspect reads every record of the snapshot at path, decodes it and returns
// a summary in file order. Unlike Load, a missing file is an error.
func (s *Store) Inspect(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("snapshot: stat: %w", err)
	}

	br := NewReader(f, stat.Size())
	count, err := br.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("snapshot: read record count: %w", err)
	}
	if count < 0 {
		return nil, br.corrupt("negative record count %d", count)
	}
	if err := br.need(int64(count) * minRecordSize); err != nil {
		return nil, fmt.Errorf("snapshot: record count %d: %w", count, err)
	}

	sum := &Summary{
		Info:    Info{Path: path, RecordCount: int(count), Size: stat.Size()},
		Records: make([]RecordInfo, 0, min(int(count), maxPrealloc)),
	}
	for i := int32(0); i < count; i++ {
		raw, err := ReadRawRecord(br)
		if err != nil {
			return nil, fmt.Errorf("snapshot: record %d of %d: %w", i+1, count, err)
		}
		rec, err := s.codec.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot: record %d of %d: %w", i+1, count, err)
		}

		info := RecordInfo{
			Name:           raw.Name.String(),
			Kind:           rec.Kind.String(),
			PayloadChunks:  len(raw.Payload),
			Strings:        len(raw.Strings),
			QualifiedNames: len(rec.Table.QualifiedNames()),
		}
		if rec.Kind == domain.KindClass {
			sum.Classes++
		} else {
			sum.PackageParts++
			info.Package = raw.PackageName.String()
		}
		sum.Records = append(sum.Records, info)
	}

	if br.Remaining() > 0 {
		return nil, br.corrupt("%d trailing bytes after %d records", br.Remaining(), count)
	}
	return sum, nil
}
