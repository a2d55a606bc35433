package domain

import "sort"

// Snapshot is the full keyed collection of metadata records that is persisted
// to one file. It exclusively owns its map. The zero value is an empty
// snapshot ready to use.
type Snapshot struct {
	records map[FqName]*Record
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{records: make(map[FqName]*Record)}
}

// NewSnapshotSize creates an empty snapshot with room for n records.
func NewSnapshotSize(n int) *Snapshot {
	if n < 0 {
		n = 0
	}
	return &Snapshot{records: make(map[FqName]*Record, n)}
}

// Put stores rec under name. An existing record with the same name is replaced.
func (s *Snapshot) Put(name FqName, rec *Record) {
	if s.records == nil {
		s.records = make(map[FqName]*Record)
	}
	s.records[name] = rec
}

// Get returns the record for name.
func (s *Snapshot) Get(name FqName) (*Record, bool) {
	rec, ok := s.records[name]
	return rec, ok
}

// Delete removes the record for name.
func (s *Snapshot) Delete(name FqName) {
	delete(s.records, name)
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Names returns all record names in sorted order.
func (s *Snapshot) Names() []FqName {
	names := make([]FqName, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Range calls fn for each record in name order until fn returns false.
func (s *Snapshot) Range(fn func(name FqName, rec *Record) bool) {
	for _, name := range s.Names() {
		if !fn(name, s.records[name]) {
			return
		}
	}
}
